package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register this device with the control server.",
	Long: `Generates a new device id, registers it under the given name and stores it
locally. A failed registration leaves the stored identity untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		a, err := newApp(cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RegistrationTimeout)
		defer cancel()

		identity, err := a.agent.Register(ctx, name)
		if err != nil {
			return err
		}

		fmt.Println(successStyle.Render("Device registered"))
		fmt.Println(renderIdentity(identity, true))
		return nil
	},
}

func init() {
	registerCmd.Flags().String("name", "", "Device name shown to operators")
	registerCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(registerCmd)
}
