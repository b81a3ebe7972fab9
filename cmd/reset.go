package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the stored device identity.",
	Long:  `Clears the device id, name and registration flag. The device must be registered again before it can connect.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.agent.Reset(); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("Identity cleared"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
