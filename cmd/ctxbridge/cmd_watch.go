package main

import (
	"context"
	"fmt"
	"net"

	"github.com/atinylittleshell/ctxbridge/internal/bridge"
	"github.com/atinylittleshell/ctxbridge/internal/enhance"
	"github.com/atinylittleshell/ctxbridge/internal/journal"
	"github.com/atinylittleshell/ctxbridge/internal/knowledge"
	"github.com/atinylittleshell/ctxbridge/internal/livecontext"
	"github.com/atinylittleshell/ctxbridge/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxDetachedCalls bounds in-flight telemetry calls to the service.
const maxDetachedCalls = 32

// daemonOptions are the watch command's flags.
type daemonOptions struct {
	addr   string
	noFS   bool
	noEdit bool
}

// daemon is the long-running half of ctxbridge: a live context buffer fed
// by the workspace watcher and editor plugins, served over the bridge.
type daemon struct {
	logger     *zap.Logger
	service    *knowledge.Client
	dispatcher *knowledge.Dispatcher
	journal    *journal.Store
	buffer     *livecontext.Buffer
	server     *bridge.Server
	fs         *watcher.Host
	tracking   bool
}

func newDaemon(a *app, opts daemonOptions) (*daemon, error) {
	cfg := a.cfg
	d := &daemon{
		logger:     a.logger,
		service:    a.service(),
		dispatcher: knowledge.NewDispatcher(cfg.RequestTimeout, maxDetachedCalls, a.logger),
		tracking:   cfg.Tracking(),
	}

	store, err := a.openJournal()
	if err != nil {
		return nil, err
	}
	d.journal = store

	root := cfg.WorkspaceRoot
	d.buffer = livecontext.NewBuffer(livecontext.Options{
		ChangeCapacity:    cfg.ChangeCapacity,
		SaveCapacity:      cfg.SaveCapacity,
		SelectionCapacity: cfg.SelectionCapacity,
		RecentWindow:      cfg.RecentWindow(),
		ActivityWindow:    cfg.ActivityWindow(),
		TickInterval:      cfg.TrackingInterval,
		Logger:            a.logger,
		OnTick: func(snap livecontext.Snapshot) {
			d.dispatcher.Go("publish_snapshot", func(ctx context.Context) error {
				return d.service.PublishSnapshot(ctx, knowledge.LiveSnapshot{WorkspaceRoot: root, Snapshot: snap})
			})
		},
		OnChange: func(e livecontext.EditEvent) {
			d.dispatcher.Go("track_change", func(ctx context.Context) error {
				return d.service.TrackChange(ctx, knowledge.ChangeRecord{WorkspaceRoot: root, Event: e})
			})
		},
		OnSaveWithEdits: func(file string, edits []livecontext.EditEvent) {
			summary := fmt.Sprintf("saved with %d buffered edit(s)", len(edits))
			d.dispatcher.Go("analyze_save", func(ctx context.Context) error {
				if _, err := d.journal.Record(ctx, journal.KindSave, "", summary, file); err != nil {
					d.logger.Warn("failed to journal save", zap.Error(err))
				}
				return d.service.LearnFromError(ctx, knowledge.ErrorReport{
					WorkspaceRoot: root,
					File:          file,
					Message:       summary,
					Edits:         edits,
				})
			})
		},
	})

	enhancer := enhance.New(enhance.Options{
		Service:       d.service,
		State:         d.buffer,
		Recorder:      d.journal,
		WorkspaceRoot: root,
		Level:         a.level(),
		Logger:        a.logger,
	})

	d.server = bridge.NewServer(bridge.Options{
		Snapshots: d.buffer,
		Enhancer:  enhancer,
		Providers: a.detect,
		Logger:    a.logger,
	})

	if !opts.noFS {
		d.fs, err = watcher.New(root, watcher.Options{IgnorePatterns: cfg.IgnorePatterns, Logger: a.logger})
		if err != nil {
			store.Close()
			return nil, err
		}
	}
	return d, nil
}

func (d *daemon) hosts(withEditors bool) []livecontext.Host {
	var hosts []livecontext.Host
	if withEditors {
		hosts = append(hosts, d.server)
	}
	if d.fs != nil {
		hosts = append(hosts, d.fs)
	}
	return hosts
}

// run serves on ln until ctx is cancelled, then drains detached calls.
func (d *daemon) run(ctx context.Context, ln net.Listener, withEditors bool) error {
	defer d.journal.Close()
	defer d.dispatcher.Wait()

	if hosts := d.hosts(withEditors); d.tracking && len(hosts) > 0 {
		d.buffer.Start(livecontext.Join(hosts...))
		defer d.buffer.Stop()
	} else {
		d.logger.Info("live tracking disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.server.Serve(gctx, ln)
	})
	if d.fs != nil {
		g.Go(func() error {
			defer d.fs.Close()
			return d.fs.Run(gctx)
		})
	}
	return g.Wait()
}

func newWatchCommand(a *app) *cobra.Command {
	var opts daemonOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the daemon that tracks live editing context",
		Long: `watch keeps a bounded buffer of recent edits, saves and selections. Events
come from a filesystem watcher on the workspace and from editor plugins that
connect to the bridge websocket. Snapshots are published to the knowledge
service every tracking interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := opts.addr
			if addr == "" {
				addr = a.cfg.BridgeAddr
			}

			d, err := newDaemon(a, opts)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				d.journal.Close()
				return fmt.Errorf("listening on %s: %w", addr, err)
			}

			a.logger.Info("daemon starting",
				zap.String("addr", ln.Addr().String()),
				zap.String("workspace", a.cfg.WorkspaceRoot),
				zap.Bool("tracking", d.tracking),
				zap.Stringer("logLevel", a.logLevel))
			a.printf("ctxbridge watching %s, bridge on %s\n", a.cfg.WorkspaceRoot, ln.Addr())

			return d.run(cmd.Context(), ln, !opts.noEdit)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Bridge listen address (default from config)")
	cmd.Flags().BoolVar(&opts.noFS, "no-fs", false, "Do not watch the workspace filesystem")
	cmd.Flags().BoolVar(&opts.noEdit, "no-editor", false, "Ignore events from editor plugins")

	return cmd
}
