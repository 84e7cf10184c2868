package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/booklog/backend/internal/models"
	"github.com/booklog/backend/internal/validation"
	"github.com/spf13/cobra"
)

// adminAccounts is the part of the auth service the CLI drives
type adminAccounts interface {
	CreateAdmin(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	SetAdmin(ctx context.Context, username string, isAdmin bool) error
}

// env holds what the commands need from the outside world
type env struct {
	migrate      func(ctx context.Context) (uint, error)
	accounts     func(ctx context.Context) (adminAccounts, error)
	readPassword func(prompt string) (string, error)
	close        func()
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "booklogctl",
		Short:         "Booklog administration tool",
		SilenceUsage: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.close != nil {
				e.close()
			}
		},
	}

	root.AddCommand(
		newMigrateCmd(e),
		newCreateAdminCmd(e),
		newSetAdminCmd(e, "promote", "Grant admin rights to an existing user", true),
		newSetAdminCmd(e, "demote", "Revoke admin rights from a user", false),
	)
	return root
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := e.migrate(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Schema is at version %d\n", version)
			return nil
		},
	}
}

func newCreateAdminCmd(e *env) *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a new user with admin rights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := e.readPassword("Password: ")
			if err != nil {
				return err
			}
			password2, err := e.readPassword("Repeat password: ")
			if err != nil {
				return err
			}

			accounts, err := e.accounts(cmd.Context())
			if err != nil {
				return err
			}

			user, err := accounts.CreateAdmin(cmd.Context(), &models.RegisterRequest{
				Username:  username,
				Email:     email,
				Password:  password,
				Password2: password2,
			})
			var fieldErrs validation.Errors
			if errors.As(err, &fieldErrs) {
				for field, msg := range fieldErrs {
					cmd.PrintErrf("%s: %s\n", field, msg)
				}
				return errors.New("admin not created")
			}
			if err != nil {
				return err
			}

			cmd.Printf("Created admin %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username of the new admin")
	cmd.Flags().StringVar(&email, "email", "", "email address of the new admin")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSetAdminCmd(e *env, use, short string, isAdmin bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := e.accounts(cmd.Context())
			if err != nil {
				return err
			}

			username := args[0]
			if err := accounts.SetAdmin(cmd.Context(), username, isAdmin); err != nil {
				if errors.Is(err, models.ErrNotFound) {
					return fmt.Errorf("user %s not found", username)
				}
				return err
			}

			if isAdmin {
				cmd.Printf("%s is now an admin\n", username)
			} else {
				cmd.Printf("%s is no longer an admin\n", username)
			}
			return nil
		},
	}
}
