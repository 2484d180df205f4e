package main

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
	"lms.com/internal/auth"
	"lms.com/internal/config"
	"lms.com/internal/domain"
	"lms.com/internal/infra"
	"lms.com/internal/service"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and default policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			// NewDatabaseClient migrates on connect
			db, err := infra.NewDatabaseClient(cfg.Database)
			if err != nil {
				return err
			}
			if _, err := auth.InitCasbin(db.DB); err != nil {
				return err
			}
			log.Println("Migration complete")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var form domain.AdminRegistration

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Register an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			db, err := infra.NewDatabaseClient(cfg.Database)
			if err != nil {
				return err
			}

			form.Password2 = form.Password
			accounts := service.NewAccountService(db.DB, auth.NewTokenManager(cfg.Server.JWTSecret, cfg.Server.TokenTTL), nil, nil)
			sess, err := accounts.RegisterAdmin(cmd.Context(), form)
			if err != nil {
				var appErr *domain.AppError
				if errors.As(err, &appErr) {
					for field, msg := range appErr.Fields {
						log.Printf("  %s: %s", field, msg)
					}
				}
				return err
			}
			log.Printf("Administrator %q created (id %d)", sess.User.Username, sess.User.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&form.Username, "username", "", "login name")
	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "password (at least 8 characters)")
	cmd.Flags().StringVar(&form.StaffRole, "staff-role", "Librarian", "staff role")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
