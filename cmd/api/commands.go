package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jordanlanch/backoffice/pkg/auth"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/testdata"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log := setup()
			a, err := newApp(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.db.Migrate(); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			log.Info("schema migrated", "driver", cfg.DatabaseDriver)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	seedCfg := testdata.DefaultSeedConfig()
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with generated demo data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log := setup()
			a, err := newApp(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.db.Migrate(); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			res, err := testdata.Seed(cmd.Context(), a.db.DB, seedCfg)
			if errors.Is(err, testdata.ErrAlreadySeeded) {
				log.Warn("database already holds data, nothing seeded")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to seed: %w", err)
			}
			out, _ := json.MarshalIndent(res, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	f := cmd.Flags()
	f.Int64Var(&seedCfg.Seed, "seed", seedCfg.Seed, "random seed, 0 picks a random one")
	f.IntVar(&seedCfg.Customers, "customers", seedCfg.Customers, "customers to create")
	f.IntVar(&seedCfg.Products, "products", seedCfg.Products, "products to create")
	f.IntVar(&seedCfg.Leads, "leads", seedCfg.Leads, "leads to create")
	f.IntVar(&seedCfg.Sales, "sales", seedCfg.Sales, "sales to create")
	f.IntVar(&seedCfg.Purchases, "purchases", seedCfg.Purchases, "purchases to create")
	f.IntVar(&seedCfg.Projects, "projects", seedCfg.Projects, "projects to create")
	return cmd
}

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and run background jobs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log := setup()
			a, err := newApp(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer a.Close()

			cm, err := a.cron()
			if err != nil {
				return err
			}
			for _, name := range cm.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "run <name>",
		Short: "Run a job once for the current period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := setup()
			a, err := newApp(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer a.Close()

			cm, err := a.cron()
			if err != nil {
				return err
			}
			ran, err := cm.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ran {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already ran this period\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s completed\n", args[0])
			return nil
		},
	})
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		username string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for an existing user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log := setup()
			a, err := newApp(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer a.Close()

			var user models.User
			if err := a.db.DB.WithContext(cmd.Context()).Where("username = ?", username).First(&user).Error; err != nil {
				return fmt.Errorf("failed to load user %q: %w", username, err)
			}
			if !user.IsActive {
				return fmt.Errorf("user %q is inactive", username)
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.JWTExpirationHours) * time.Hour
			}
			token, err := auth.GenerateJWT(user.ID, user.Username, cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "admin", "username to issue the token for")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to JWT_EXPIRATION_HOURS")
	cmd.AddCommand(revokeCmd())
	return cmd
}

func revokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke an access token until it expires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := setup()
			claims, err := auth.ValidateJWT(args[0], cfg.JWTSecret)
			if err != nil {
				return fmt.Errorf("failed to read token: %w", err)
			}
			remaining := claims.Remaining(time.Now())
			if remaining == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "token already expired")
				return nil
			}

			a, err := newApp(cmd.Context(), cfg, log, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := auth.NewTokenBlacklist(a.redis).Add(cmd.Context(), args[0], remaining); err != nil {
				return fmt.Errorf("failed to revoke token: %w", err)
			}
			log.Info("token revoked", "user_id", claims.UserID, "remaining", remaining.String())
			fmt.Fprintf(cmd.OutOrStdout(), "revoked token of user %d\n", claims.UserID)
			return nil
		},
	}
}
