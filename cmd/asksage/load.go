package main

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Kevin-nav/AskTheSage/internal/profile"
	"github.com/Kevin-nav/AskTheSage/plugin/latex"
	"github.com/Kevin-nav/AskTheSage/server/render"
	"github.com/Kevin-nav/AskTheSage/server/service/loader"
	"github.com/Kevin-nav/AskTheSage/store"
)

type loadOp func(ctx context.Context, l *loader.Loader, courseID int32, items []loader.Item, opts loader.Options) (*loader.Report, error)

// newLoadCommand builds the question-bank loading command tree:
//
//	asksage load add     --course 1 --file questions.json [--dry-run]
//	asksage load update  --course 1 --file questions.json [--dry-run]
//	asksage load replace --course 1 --file questions.json [--dry-run] [--force-render]
func newLoadCommand() *cobra.Command {
	var (
		courseID    int32
		filePath    string
		dryRun      bool
		forceRender bool
	)

	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Reconcile a question file against the store",
	}
	loadCmd.PersistentFlags().Int32Var(&courseID, "course", 0, "course id (required)")
	loadCmd.PersistentFlags().StringVar(&filePath, "file", "", "question JSON file (required)")
	loadCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "report decisions without committing")
	loadCmd.PersistentFlags().BoolVar(&forceRender, "force-render", false, "re-render artifacts even on a cache hit")

	run := func(op loadOp) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			if courseID == 0 {
				return errors.New("--course is required")
			}
			if filePath == "" {
				return errors.New("--file is required")
			}

			ctx := cmd.Context()
			instanceProfile, st, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			items, err := loader.ParseFile(filePath)
			if err != nil {
				return err
			}

			l := loader.New(st, loaderRenderCache(ctx, instanceProfile, st, dryRun))
			report, err := op(ctx, l, courseID, items, loader.Options{DryRun: dryRun, ForceRender: forceRender})
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		}
	}

	loadCmd.AddCommand(
		&cobra.Command{
			Use:   "add",
			Short: "Insert items whose content hash is new; skip duplicates",
			RunE: run(func(ctx context.Context, l *loader.Loader, courseID int32, items []loader.Item, opts loader.Options) (*loader.Report, error) {
				return l.Add(ctx, courseID, items, opts)
			}),
		},
		&cobra.Command{
			Use:   "update",
			Short: "Refresh mutable attributes of items whose hash matches",
			RunE: run(func(ctx context.Context, l *loader.Loader, courseID int32, items []loader.Item, opts loader.Options) (*loader.Report, error) {
				return l.Update(ctx, courseID, items, opts)
			}),
		},
		&cobra.Command{
			Use:   "replace",
			Short: "Delete the course's questions, then insert the input set",
			RunE: run(func(ctx context.Context, l *loader.Loader, courseID int32, items []loader.Item, opts loader.Options) (*loader.Report, error) {
				return l.ReplaceAll(ctx, courseID, items, opts)
			}),
		},
	)
	return loadCmd
}

// loaderRenderCache builds a render cache for eager rendering. Dry runs and
// a missing toolchain both disable it.
func loaderRenderCache(ctx context.Context, p *profile.Profile, st *store.Store, dryRun bool) *render.Cache {
	if dryRun {
		return nil
	}
	renderer := latex.NewClient(&latex.Config{
		PDFLatexPath:   p.PDFLatexPath,
		PDFToCairoPath: p.PDFToCairo,
	})
	if err := renderer.Validate(ctx); err != nil {
		slog.Warn("latex toolchain unavailable, skipping eager rendering", "error", err)
		return nil
	}
	disk, err := render.NewLocalDiskStore(p.Data)
	if err != nil {
		slog.Warn("artifact store unavailable, skipping eager rendering", "error", err)
		return nil
	}
	return render.NewCache(renderer, render.NewIndexedStore(disk, st), render.CacheConfig{
		FastTierSize:  p.FastTierSize,
		RenderTimeout: p.RenderTimeout,
	})
}

func printReport(cmd *cobra.Command, report *loader.Report) {
	label := ""
	if report.DryRun {
		label = " (dry run)"
	}
	cmd.Printf("inserted: %d, updated: %d, skipped: %d, deleted: %d%s\n",
		report.Inserted, report.Updated, report.Skipped, report.Deleted, label)
	for _, decision := range report.Decisions {
		cmd.Printf("  %-6s %s topic=%s\n", decision.Action, decision.ContentHash, decision.Topic)
	}
}
