// Package main Back Office API
//
// @title Back Office API
// @version 1.0
// @description CRM, sales, purchasing, projects and dashboard reporting for a single company.
//
// @contact.name API Support
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jordanlanch/backoffice/config"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "backoffice",
		Short:         "Back office API server and maintenance commands",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCmd(), jobsCmd(), tokenCmd())
	return root
}

// setup loads the configuration and builds the logger for a command.
func setup() (*config.Config, logger.Logger) {
	cfg := config.Load()
	return cfg, logger.ForEnvironment(cfg.APIEnvironment, cfg.LogLevel)
}
