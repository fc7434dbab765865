package main

import (
	"strings"

	"github.com/spf13/cobra"

	"cinefuse/internal/config"
	"cinefuse/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var diagnostic bool
	cmd := &cobra.Command{
		Use:          "daemon",
		Short:        "Run the cinefuse daemon (internal)",
		Hidden:       true,
		Annotations:  map[string]string{"skipConfigLoad": "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    resolvedLogLevel(cfg),
				Development: logDevelopment(cfg),
				Diagnostic:  diagnostic,
			})
		},
	}
	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")
	return cmd
}

func resolvedLogLevel(cfg *config.Config) string {
	if cfg == nil {
		return "info"
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" {
		return level
	}
	return "info"
}

func logDevelopment(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(cfg.Logging.Format), "console")
}
