package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cinefuse/internal/api"
	"cinefuse/internal/daemonctl"
)

func newProvidersCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Show metadata provider health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var providers []api.ProviderStatus
			if client, err := ctx.dialClient(); err == nil {
				defer client.Close()
				resp, err := client.Providers()
				if err != nil {
					return err
				}
				providers = resp.Providers
			} else {
				cfg, cfgErr := ctx.ensureConfig()
				if cfgErr != nil {
					return cfgErr
				}
				providers = daemonctl.ProviderRows(cmd.Context(), cfg)
			}

			if jsonOut {
				return writeJSON(cmd, api.ProviderListResponse{Providers: providers})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if len(providers) == 0 {
				fmt.Fprintln(out, "No providers configured")
				return nil
			}
			for _, provider := range providers {
				fmt.Fprintln(out, providerStatusLine(provider, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of status lines")
	return cmd
}
