package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/facility-backend/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Run(cmd.Context())
	},
}
