package main

import (
	"encoding/json"
	"fmt"
	"time"

	bridgeerrors "github.com/atinylittleshell/ctxbridge/internal/errors"
	"github.com/atinylittleshell/ctxbridge/internal/provider"
	"github.com/atinylittleshell/ctxbridge/internal/render"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDetectCommand(a *app) *cobra.Command {
	var (
		filter    string
		asJSON    bool
		onlyKnown bool
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "List the AI assistant extensions installed in your editors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var descs []provider.ProviderDescriptor
			if onlyKnown {
				descs = provider.KnownProviders()
			} else {
				descs = a.detect()
			}
			descs = provider.Filter(descs, filter)
			a.logger.Debug("detection finished", zap.Int("providers", len(descs)), zap.String("filter", filter))

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(descs)
			}
			render.Providers(a.out, descs, render.TermWidth())
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Fuzzy filter on display name or extension id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print descriptors as JSON")
	cmd.Flags().BoolVar(&onlyKnown, "known", false, "List the built-in allow-list instead of scanning")

	return cmd
}

func newActivateCommand(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "activate <extension-id>",
		Short: "Activate an installed extension and wait for it to load",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			host := a.extensionHost()
			if _, ok := host.Lookup(id); !ok {
				return bridgeerrors.NewNotFound("extension", id)
			}
			if timeout <= 0 {
				timeout = a.cfg.ActivationTimeout
			}

			if !provider.WaitForActivation(cmd.Context(), host, id, timeout) {
				return fmt.Errorf("%s did not activate within %s", id, timeout)
			}
			a.printf("%s %s is active\n", render.StatusSymbol(true), id)
			return nil
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "How long to wait (default from config, 5s)")

	return cmd
}
