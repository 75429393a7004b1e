package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wecare-health/wecare/internal/app"
	"github.com/wecare-health/wecare/internal/appointment"
	"github.com/wecare-health/wecare/internal/config"
	"github.com/wecare-health/wecare/internal/db"
	"github.com/wecare-health/wecare/internal/identity"
	"github.com/wecare-health/wecare/internal/logging"
)

const adminPasswordEnv = "WECARE_ADMIN_PASSWORD"

func main() {
	rootCmd := &cobra.Command{
		Use:           "wecare-admin",
		Short:         "WeCare operator tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(completeCmd())
	rootCmd.AddCommand(reconcileCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.Env, cfg.LogLevel, "wecare-admin"), nil
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, err
	}
	return app.Open(ctx, cfg, logger, "admin", false)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, app.PoolOptions(cfg, "admin"))
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := db.Migrate(ctx, pool)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			for _, name := range applied {
				fmt.Printf("applied %s\n", name)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", len(applied))
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long:  "Create an administrator account. The password is read from " + adminPasswordEnv + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")

			password := os.Getenv(adminPasswordEnv)
			if password == "" {
				return fmt.Errorf("%s is required", adminPasswordEnv)
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			acct, err := a.Identity.CreateAdmin(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}

			fmt.Printf("created admin %s (%s)\n", acct.Email, acct.ID)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Admin email address")
	cmd.Flags().String("name", "Administrator", "Display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func completeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <appointment-id>",
		Short: "Mark a confirmed appointment as completed",
		Long:  "Mark a confirmed appointment as completed, acting as the admin given by --as. The admin password is read from " + adminPasswordEnv + ".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid appointment id: %w", err)
			}
			email, _ := cmd.Flags().GetString("as")

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			acct, err := a.Identity.Authenticate(cmd.Context(), email, os.Getenv(adminPasswordEnv))
			if err != nil {
				return err
			}
			if acct.Role != identity.RoleAdmin {
				return fmt.Errorf("%s is not an admin account", acct.Email)
			}

			appt, err := a.Appointments.Complete(cmd.Context(), acct.Actor(), id)
			if err != nil {
				var stateErr *appointment.InvalidStateError
				if errors.As(err, &stateErr) {
					return fmt.Errorf("appointment is %s, only confirmed appointments can be completed", stateErr.Current)
				}
				return err
			}

			fmt.Printf("appointment %s is now %s\n", appt.ID, appt.Status)
			return nil
		},
	}
	cmd.Flags().String("as", "", "Email of the admin performing the completion")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute nurse ratings from rated appointments and repair drift",
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			corrected, err := a.Appointments.ReconcileRatings(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("%-36s %-8s %s\n", "NURSE", "RATING", "REVIEWS")
			for _, agg := range corrected {
				fmt.Printf("%-36s %-8.1f %d\n", agg.ListingID, agg.Rating, agg.ReviewCount)
			}
			fmt.Printf("Corrected %d nurse rating(s).\n", len(corrected))
			return nil
		},
	}
	cmd.Flags().Duration("timeout", 5*time.Minute, "Give up after this long")
	return cmd
}
