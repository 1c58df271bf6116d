package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/atinylittleshell/ctxbridge/internal/render"
	"github.com/spf13/cobra"
)

var BUILD_VERSION = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, render.ErrorStyle.Render(render.SymbolError+" "+err.Error()))
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out}

	rootCmd := &cobra.Command{
		Use:   "ctxbridge",
		Short: "Bridge live editing context into AI assistant prompts",
		Long: `ctxbridge detects the AI assistant extensions installed in your editor,
keeps a bounded record of recent editing activity and splices project context
from the knowledge service into your prompts.`,
		Version:            BUILD_VERSION,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to the global config file (default ~/.ctxbridge/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&a.logLevelFlag, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&a.workspace, "workspace", "w", "", "Workspace directory (default current directory)")

	rootCmd.AddCommand(
		newDetectCommand(a),
		newActivateCommand(a),
		newWatchCommand(a),
		newSnapshotCommand(a),
		newEnhanceCommand(a),
		newAskCommand(a),
		newDecisionCommand(a),
		newHistoryCommand(a),
		newStatusCommand(a),
		newConfigCommand(a),
		newMCPCommand(a),
		newVersionCommand(a),
	)

	return rootCmd
}
