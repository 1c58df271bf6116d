package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/atinylittleshell/ctxbridge/internal/assist"
	bridgeerrors "github.com/atinylittleshell/ctxbridge/internal/errors"
	"github.com/atinylittleshell/ctxbridge/internal/journal"
	"github.com/atinylittleshell/ctxbridge/internal/knowledge"
	"github.com/atinylittleshell/ctxbridge/internal/render"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSnapshotCommand(a *app) *cobra.Command {
	var (
		minutes int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Show the running daemon's live context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.daemon().Snapshot(cmd.Context(), minutes)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			render.Snapshot(a.out, *snap, time.Now())
			return nil
		},
	}

	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "Recent window in minutes (default from config, 10)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")

	return cmd
}

func newEnhanceCommand(a *app) *cobra.Command {
	var (
		level  string
		copyIt bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "enhance <prompt>",
		Short: "Splice project and live context into a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.enhance(cmd.Context(), strings.Join(args, " "), level)
			if err != nil {
				return err
			}

			if copyIt {
				if err := clipboard.WriteAll(res.Prompt); err != nil {
					a.logger.Warn("failed to copy prompt", zap.Error(err))
					return fmt.Errorf("failed to copy prompt to clipboard: %w", err)
				}
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if render.IsTerminal() {
				render.Prompt(a.out, res.Prompt, render.TermWidth())
			} else {
				fmt.Fprintln(a.out, res.Prompt)
			}
			if copyIt {
				fmt.Fprintln(a.out, render.DimStyle.Render("(copied to clipboard)"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&level, "level", "L", "", "Enhancement level: minimal, standard or maximum")
	cmd.Flags().BoolVar(&copyIt, "copy", false, "Copy the enhanced prompt to the clipboard")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result and its context as JSON")

	return cmd
}

func newAskCommand(a *app) *cobra.Command {
	var (
		level  string
		showIt bool
	)

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Enhance a prompt and send it to the configured chat model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := assist.New(assist.Settings{
				APIKey:  a.cfg.OpenAI.APIKey,
				BaseURL: a.cfg.OpenAI.BaseURL,
				Model:   a.cfg.OpenAI.Model,
			}, a.logger)
			if err != nil {
				return err
			}

			res, err := a.enhance(cmd.Context(), strings.Join(args, " "), level)
			if err != nil {
				return err
			}
			if showIt {
				fmt.Fprintln(a.out, render.DimStyle.Render(res.Prompt))
				fmt.Fprintln(a.out)
			}

			reply, err := client.Ask(cmd.Context(), res.Prompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, reply)
			return nil
		},
	}

	cmd.Flags().StringVarP(&level, "level", "L", "", "Enhancement level: minimal, standard or maximum")
	cmd.Flags().BoolVar(&showIt, "show-prompt", false, "Print the enhanced prompt before the reply")

	return cmd
}

func newDecisionCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "decision <text>",
		Short: "Record an architectural or implementation decision",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return bridgeerrors.NewInvalidRequest("decision text is required")
			}

			store, err := a.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()
			if _, err := store.Record(cmd.Context(), journal.KindDecision, "", text, file); err != nil {
				return fmt.Errorf("failed to journal decision: %w", err)
			}

			// The service is told in the background; an outage only costs
			// the remote copy.
			service := a.service()
			dispatcher := knowledge.NewDispatcher(a.cfg.RequestTimeout, 1, a.logger)
			dispatcher.Go("record_decision", func(ctx context.Context) error {
				return service.RecordDecision(ctx, knowledge.Decision{
					WorkspaceRoot: a.cfg.WorkspaceRoot,
					Text:          text,
					File:          file,
					CreatedAt:     time.Now().UTC(),
				})
			})
			dispatcher.Wait()

			a.printf("%s decision recorded\n", render.StatusSymbol(true))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File the decision applies to")

	return cmd
}

func newHistoryCommand(a *app) *cobra.Command {
	var (
		kind   string
		limit  int
		search string
		remove string
		reset  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled enhancements, decisions and save reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			switch {
			case reset:
				if err := store.Reset(ctx); err != nil {
					return err
				}
				a.printf("%s journal cleared\n", render.StatusSymbol(true))
				return nil
			case remove != "":
				if err := store.Delete(ctx, remove); err != nil {
					return err
				}
				a.printf("%s entry %s deleted\n", render.StatusSymbol(true), remove)
				return nil
			}

			if limit <= 0 {
				return bridgeerrors.NewInvalidRequest("limit must be positive")
			}

			var entries []journal.Entry
			if search != "" {
				entries, err = store.Search(ctx, search, limit)
			} else {
				k, perr := journal.ParseKind(kind)
				if perr != nil {
					return perr
				}
				entries, err = store.Recent(ctx, k, limit)
			}
			if err != nil {
				return err
			}
			render.History(a.out, entries, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Only show entries of this kind (enhancement, decision, save)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show entries whose text contains this")
	cmd.Flags().StringVar(&remove, "delete", "", "Delete the entry with this id")
	cmd.Flags().BoolVar(&reset, "reset", false, "Delete every entry")

	return cmd
}
