package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/model"
)

var (
	crawlRegions []string
	crawlJSON    bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one crawl over the given regions",
	Long:  "Collects, resolves, enriches and stores restaurants for each region in turn. Without --region the configured regions are crawled, or every catalog region when none are configured.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initCrawl(ctx, "crawl")
		if err != nil {
			return err
		}
		defer env.Close()

		regions, err := resolveRegions(env.Regions, crawlRegions)
		if err != nil {
			return err
		}

		run, err := env.Orchestrator.Run(ctx, regions)
		if run != nil {
			env.Monitor.Check(context.WithoutCancel(ctx), run)
			for _, s := range run.Stats {
				zap.L().Info("region summary",
					zap.String("region", s.Region),
					zap.Int("merged", s.Merged),
					zap.Int("matched", s.Matched),
					zap.Int("rejected", s.Rejected),
					zap.Int("stored", s.Stored),
					zap.Any("reject_reasons", s.RejectReasons),
				)
			}
			if crawlJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(run); encErr != nil {
					return eris.Wrap(encErr, "encode run")
				}
			}
		}
		if err != nil {
			return eris.Wrap(err, "crawl")
		}
		if run.Status == model.RunStatusFailed {
			return eris.Errorf("crawl: run %s failed: %s", run.ID, run.Error)
		}
		if run.Error != "" {
			zap.L().Warn("crawl finished with failed regions", zap.String("run_id", run.ID), zap.String("error", run.Error))
		}
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringSliceVar(&crawlRegions, "region", nil, "region to crawl (repeatable)")
	crawlCmd.Flags().BoolVar(&crawlJSON, "json", false, "print the run record as JSON")
	rootCmd.AddCommand(crawlCmd)
}
