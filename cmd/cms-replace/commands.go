package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	cmsreplace "github.com/goliatone/go-cms-replace"
	replacecmd "github.com/goliatone/go-cms-replace/internal/commands/replace"
	"github.com/goliatone/go-cms-replace/internal/reports"
	"github.com/goliatone/go-cms-replace/internal/search"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// app holds the module built for one invocation.
type app struct {
	opts     moduleOptions
	seedDir  string
	jsonOut  bool
	quiet    bool
	module   *cmsreplace.Module
	subs     []replacecmd.CommandSubscription
	actorRaw string
}

// run executes one invocation and always releases the module, even when the
// command fails.
func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	a := &app{}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return err
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "cms-replace",
		Short:         "Search, replace and undo text across structured content records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.ConfigPath, "config", "", "YAML configuration file")
	flags.StringVar(&a.opts.Driver, "driver", "", "Database driver for bun storage (sqlite or postgres)")
	flags.StringVar(&a.opts.DSN, "dsn", "", "Database DSN; switches storage to bun")
	flags.StringVar(&a.seedDir, "seed", "", "Load markdown fixtures from this directory before running")
	flags.StringVar(&a.actorRaw, "actor", "", "Actor id recorded on reports")
	flags.BoolVar(&a.jsonOut, "json", false, "Print JSON instead of tables")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Suppress progress output")

	root.AddCommand(
		a.seedCommand(),
		a.searchCommand(),
		a.replaceCommand(),
		a.undoCommand(),
		a.reportsCommand(),
		a.exportCommand(),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	opts := a.opts
	if !a.quiet {
		opts.Progress = cmd.ErrOrStderr()
	}
	module, err := moduleBuilder(opts)
	if err != nil {
		return err
	}
	a.module = module
	a.subs = module.Commands().Subscribe()

	if dir := strings.TrimSpace(a.seedDir); dir != "" {
		count, err := module.Seed(cmd.Context(), os.DirFS(dir), ".")
		if err != nil {
			return fmt.Errorf("seed %s: %w", dir, err)
		}
		if !a.quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "seeded %d records from %s\n", count, dir)
		}
	}
	return nil
}

func (a *app) close() error {
	replacecmd.Unsubscribe(a.subs)
	a.subs = nil
	if a.module == nil {
		return nil
	}
	err := a.module.Close()
	a.module = nil
	return err
}

func (a *app) actor() (uuid.UUID, error) {
	if strings.TrimSpace(a.actorRaw) == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(a.actorRaw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse actor: %w", err)
	}
	return id, nil
}

func scopeFlags(cmd *cobra.Command, scope *replacecmd.Scope) {
	flags := cmd.Flags()
	flags.BoolVarP(&scope.IsRegex, "regex", "r", false, "Treat the term as a regular expression")
	flags.BoolVarP(&scope.CaseSensitive, "case-sensitive", "c", false, "Match case exactly")
	flags.StringSliceVar(&scope.Kinds, "kind", nil, "Restrict to record kinds (repeatable)")
	flags.StringSliceVar(&scope.Bundles, "bundle", nil, "Restrict to bundles (repeatable)")
	flags.StringVar(&scope.Langcode, "lang", "", "Restrict to one language")
}

func (a *app) seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <dir>",
		Short: "Load markdown fixture documents into the record store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := filepath.Clean(args[0])
			count, err := a.module.Seed(cmd.Context(), os.DirFS(dir), ".")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d records\n", count)
			return nil
		},
	}
}

func (a *app) searchCommand() *cobra.Command {
	msg := replacecmd.SearchCommand{}
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "List the fields matching a term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg.Term = args[0]
			var result *search.Result
			msg.OnResult = func(r *search.Result) { result = r }
			if err := dispatcher.Dispatch(cmd.Context(), msg); err != nil {
				return err
			}
			return printSearch(cmd.OutOrStdout(), result, a.jsonOut)
		},
	}
	scopeFlags(cmd, &msg.Scope)
	cmd.Flags().IntVar(&msg.Page, "page", 0, "Zero based page")
	cmd.Flags().IntVar(&msg.PageSize, "page-size", 0, "Items per page (defaults to the configured size)")
	cmd.Flags().BoolVar(&msg.Unpaged, "all-pages", false, "Return every item")
	return cmd
}

func (a *app) replaceCommand() *cobra.Command {
	msg := replacecmd.ReplaceCommand{}
	cmd := &cobra.Command{
		Use:   "replace <term> <replacement>",
		Short: "Replace every match (--all) or the selected fields (--select)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := a.actor()
			if err != nil {
				return err
			}
			msg.Term, msg.Replacement, msg.ActorID = args[0], args[1], actor
			var outcome *reports.Outcome
			msg.OnOutcome = func(o *reports.Outcome) { outcome = o }
			if err := dispatcher.Dispatch(cmd.Context(), msg); err != nil {
				return err
			}
			return printOutcome(cmd.OutOrStdout(), outcome, a.jsonOut)
		},
	}
	scopeFlags(cmd, &msg.Scope)
	cmd.Flags().BoolVar(&msg.All, "all", false, "Replace every match")
	cmd.Flags().StringArrayVar(&msg.Selection, "select", nil, "Selection key of a field to replace (repeatable)")
	cmd.Flags().BoolVar(&msg.DryRun, "dry-run", false, "Count replacements without saving")
	return cmd
}

func (a *app) undoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "undo <report-id>",
		Short: "Revert a committed replacement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse report id: %w", err)
			}
			actor, err := a.actor()
			if err != nil {
				return err
			}
			var outcome *reports.Outcome
			if err := dispatcher.Dispatch(cmd.Context(), replacecmd.UndoCommand{
				ReportID:  id,
				ActorID:   actor,
				OnOutcome: func(o *reports.Outcome) { outcome = o },
			}); err != nil {
				return err
			}
			return printOutcome(cmd.OutOrStdout(), outcome, a.jsonOut)
		},
	}
}

func (a *app) reportsCommand() *cobra.Command {
	group := &cobra.Command{
		Use:   "reports",
		Short: "Inspect replacement reports",
	}

	var opts cmsreplace.ListOptions
	list := &cobra.Command{
		Use:   "list",
		Short: "List reports newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, total, err := a.module.Reports(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printReports(cmd.OutOrStdout(), items, total, a.jsonOut)
		},
	}
	list.Flags().IntVar(&opts.Limit, "limit", 20, "Maximum reports to list (0 lists all)")
	list.Flags().IntVar(&opts.Offset, "offset", 0, "Reports to skip")

	show := &cobra.Command{
		Use:   "show <report-id>",
		Short: "Show one report with its per-record details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse report id: %w", err)
			}
			report, err := a.module.Report(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report, a.jsonOut)
		},
	}

	group.AddCommand(list, show)
	return group
}

func (a *app) exportCommand() *cobra.Command {
	msg := replacecmd.ExportCommand{}
	var output string
	cmd := &cobra.Command{
		Use:   "export <term>",
		Short: "Write every matching field as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg.Term = args[0]
			msg.Output = cmd.OutOrStdout()
			if path := strings.TrimSpace(output); path != "" && path != "-" {
				file, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create %s: %w", path, err)
				}
				defer file.Close()
				msg.Output = file
			}
			return dispatcher.Dispatch(cmd.Context(), msg)
		},
	}
	scopeFlags(cmd, &msg.Scope)
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output file (defaults to stdout)")
	cmd.Flags().StringVar(&msg.URLGroup, "url-group", "", "Route group for the URL column, e.g. public.fr")
	cmd.Flags().StringVar(&msg.BaseURL, "base-url", "", "Base URL of the route groups")
	return cmd
}
