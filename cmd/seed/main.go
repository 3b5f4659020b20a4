package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/oggyb/rotrade-sync/internal/app"
	"github.com/oggyb/rotrade-sync/internal/config"
	"github.com/oggyb/rotrade-sync/internal/logger"
	"github.com/oggyb/rotrade-sync/internal/service/marketplace"
	"github.com/oggyb/rotrade-sync/internal/store"
)

var opts marketplace.SeedOptions

// rootCmd wipes the configured store and fills it with demo data.
var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Reset the store and load demo data",
	Long: `Reset the configured store (STORE_DRIVER) and load demo data.

Creates the support account, user1..userN with listings, a few
conversations between neighbours and some reviews.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Load configuration
		cfg := config.New()
		logger.InitFromConfig(cfg)
		log := logger.L()

		ctx := cmd.Context()
		s, err := store.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		svc := marketplace.NewService(app.New(cfg, s, log))
		if err := marketplace.SeedDemoData(ctx, svc, opts); err != nil {
			return err
		}

		log.Info("seeding completed", "users", opts.Users, "support", cfg.App.SupportUsername)
		return nil
	},
}

func init() {
	rootCmd.Flags().IntVar(&opts.Users, "users", 5, "number of demo users")
	rootCmd.Flags().IntVar(&opts.ListingsPerUser, "listings", 2, "listings per demo user")
	rootCmd.Flags().StringVar(&opts.Password, "password", "password", "password of every demo account")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
