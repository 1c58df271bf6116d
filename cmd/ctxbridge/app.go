package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/atinylittleshell/ctxbridge/internal/bridge"
	"github.com/atinylittleshell/ctxbridge/internal/config"
	"github.com/atinylittleshell/ctxbridge/internal/core"
	"github.com/atinylittleshell/ctxbridge/internal/enhance"
	"github.com/atinylittleshell/ctxbridge/internal/extensions"
	"github.com/atinylittleshell/ctxbridge/internal/journal"
	"github.com/atinylittleshell/ctxbridge/internal/knowledge"
	"github.com/atinylittleshell/ctxbridge/internal/livecontext"
	"github.com/atinylittleshell/ctxbridge/internal/provider"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries the state shared by every command once the root command's
// pre-run has loaded configuration.
type app struct {
	out io.Writer

	configPath   string
	logLevelFlag string
	workspace    string

	cfg      *config.Loaded
	logger   *zap.Logger
	logLevel zap.AtomicLevel
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	startDir := a.workspace
	if startDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		startDir = wd
	}

	globalFile := a.configPath
	if globalFile == "" {
		globalFile = core.ConfigFile()
	}

	loaded, err := config.Load(config.LoadOptions{
		HomeDir:    core.HomeDir(),
		GlobalFile: globalFile,
		StartDir:   startDir,
	})
	if err != nil {
		return err
	}
	if a.logLevelFlag != "" {
		loaded.LogLevel = a.logLevelFlag
	}
	a.cfg = loaded

	logger, logLevel, err := initializeLogger(loaded.LogLevel)
	if err != nil {
		return err
	}
	a.logger = logger
	a.logLevel = logLevel

	logger.Debug("ctxbridge starting",
		zap.String("command", cmd.CommandPath()),
		zap.String("workspace", loaded.WorkspaceRoot),
		zap.Strings("configSources", loaded.Sources))
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return nil
}

func initializeLogger(levelName string) (*zap.Logger, zap.AtomicLevel, error) {
	logLevel, err := zap.ParseAtomicLevel(levelName)
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", levelName, err)
	}
	if BUILD_VERSION == "dev" {
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	// Logs only go to the file so stdout stays clean for JSON and MCP.
	// Use `tail -f ~/.ctxbridge/ctxbridge.log` to follow them.
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = logLevel
	loggerConfig.OutputPaths = []string{core.LogFile()}
	loggerConfig.ErrorOutputPaths = []string{core.LogFile()}

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	return logger, logLevel, nil
}

func (a *app) extensionHost() *extensions.Host {
	return extensions.NewHost(extensions.NewScanner(a.cfg.ExtensionDirs, a.logger), a.logger)
}

func (a *app) detect() []provider.ProviderDescriptor {
	return provider.Detector{Threshold: a.cfg.HeuristicThreshold}.Detect(a.extensionHost().Installed())
}

func (a *app) service() *knowledge.Client {
	return knowledge.NewClient(a.cfg.ServiceURL, a.cfg.RequestTimeout, a.logger)
}

func (a *app) daemon() *bridge.Client {
	return bridge.NewClient(a.cfg.BridgeAddr, a.cfg.RequestTimeout)
}

func (a *app) openJournal() (*journal.Store, error) {
	store, err := journal.Open(core.JournalFile())
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return store, nil
}

func (a *app) level() enhance.Level {
	return enhance.ParseLevel(a.cfg.EnhancementLevel)
}

// enhance asks the running daemon first so the prompt carries live context.
// Without a daemon it enhances locally against an empty buffer.
func (a *app) enhance(ctx context.Context, prompt, levelName string) (*enhance.Result, error) {
	res, err := a.daemon().Enhance(ctx, prompt, levelName)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, bridge.ErrDaemonUnreachable) {
		return nil, err
	}
	a.logger.Debug("daemon not reachable, enhancing without live context", zap.Error(err))

	store, err := a.openJournal()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	level := a.level()
	if levelName != "" {
		level = enhance.ParseLevel(levelName)
	}
	enhancer := enhance.New(enhance.Options{
		Service:       a.service(),
		State:         livecontext.NewBuffer(livecontext.Options{Logger: a.logger}),
		Recorder:      store,
		WorkspaceRoot: a.cfg.WorkspaceRoot,
		Level:         level,
		Logger:        a.logger,
	})
	return enhancer.EnhanceAt(ctx, prompt, level)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
