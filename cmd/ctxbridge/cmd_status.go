package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/atinylittleshell/ctxbridge/internal/config"
	"github.com/atinylittleshell/ctxbridge/internal/core"
	"github.com/atinylittleshell/ctxbridge/internal/enhance"
	"github.com/atinylittleshell/ctxbridge/internal/livecontext"
	"github.com/atinylittleshell/ctxbridge/internal/mcpserver"
	"github.com/atinylittleshell/ctxbridge/internal/provider"
	"github.com/atinylittleshell/ctxbridge/internal/render"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the knowledge service, the daemon and provider detection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			info := render.StatusInfo{
				Version:       BUILD_VERSION,
				DataDir:       core.DataDir(),
				ConfigSources: a.cfg.Sources,
				ServiceURL:    a.cfg.ServiceURL,
				DaemonAddr:    a.cfg.BridgeAddr,
			}

			if health, err := a.service().Health(ctx); err != nil {
				info.ServiceErr = err
			} else {
				info.ServiceStatus = health.Status
			}
			info.DaemonClients, info.DaemonErr = a.daemon().Health(ctx)
			info.Providers = len(a.detect())

			render.Status(a.out, info)
			return nil
		},
	}
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or initialize configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg.Config
			if cfg.OpenAI.APIKey != "" {
				cfg.OpenAI.APIKey = "<redacted>"
			}
			data, err := yaml.Marshal(&cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = a.out.Write(data)
			return err
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the global config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				path = core.ConfigFile()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Save(config.Default(core.HomeDir()), path); err != nil {
				return err
			}
			a.printf("%s wrote %s\n", render.StatusSymbol(true), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}

// mcpBackend answers MCP tool calls: detection runs locally, live context
// comes from the daemon.
type mcpBackend struct {
	a *app
}

func (b mcpBackend) Providers(ctx context.Context) ([]provider.ProviderDescriptor, error) {
	return b.a.detect(), nil
}

func (b mcpBackend) Snapshot(ctx context.Context, minutes int) (*livecontext.Snapshot, error) {
	return b.a.daemon().Snapshot(ctx, minutes)
}

func (b mcpBackend) Enhance(ctx context.Context, prompt, level string) (*enhance.Result, error) {
	return b.a.enhance(ctx, prompt, level)
}

func newMCPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve ctxbridge tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcpserver.Run(mcpBackend{a: a}, BUILD_VERSION, a.logger)
		},
	}
}

// describeVersion renders a build version for humans.
func describeVersion(v string) string {
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return v + " (development build)"
	}
	if parsed.Prerelease() != "" {
		return "v" + parsed.String() + " (pre-release)"
	}
	return "v" + parsed.String()
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printf("ctxbridge %s\n", describeVersion(BUILD_VERSION))
			return nil
		},
	}
}
