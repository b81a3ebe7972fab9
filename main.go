package main

import "androidagent/cmd"

func main() {
	cmd.Execute()
}
