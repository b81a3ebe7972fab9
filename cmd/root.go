package cmd

import (
	"fmt"
	"os"

	"androidagent/config"

	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "androidagent",
	Short: "Remote control agent for an Android device.",
	Long: `Registers the device with the control server, keeps a control channel open
and executes the gestures, text input and navigation commands it receives.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if db, _ := cmd.Flags().GetString("db"); db != "" {
			loaded.DatabasePath = db
		}
		cfg = loaded
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite database (overrides AGENT_DB_PATH)")
}
