package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/admin"
)

func newCreateAdminCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			if err := rt.app.Init(ctx); err != nil {
				return err
			}
			a, err := rt.app.Admin.CreateAdmin(ctx, username, password)
			if err != nil {
				if errors.Is(err, admin.ErrAdminExists) {
					return fmt.Errorf("admin %q already exists", username)
				}
				return err
			}
			rt.sugar.Infow("admin account created", "username", a.Username, "id", a.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "admin", "admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "admin password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
