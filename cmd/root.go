package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohit242-bit/Newshub/internal/display"
	"github.com/Mohit242-bit/Newshub/internal/diversity"
	"github.com/Mohit242-bit/Newshub/internal/model"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagCategory string
	flagLimit    int
	flagShuffle  bool
	flagRefresh  bool
	flagConfig   string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "newshub",
	Short: "Resilient multi-source news aggregator",
	Long: `newshub pulls articles from RSS feeds and news APIs, deduplicates and
ranks them, and always renders something: cached or stale results stand in
when every provider is down.`,
	RunE: runRead,
}

func init() {
	rootCmd.Flags().StringVarP(&flagCategory, "category", "c", "all", "category to read (all, world, business, technology, science, health, sports, entertainment)")
	rootCmd.Flags().IntVarP(&flagLimit, "limit", "n", 0, "maximum number of articles (0 uses the configured feed size)")
	rootCmd.Flags().BoolVar(&flagShuffle, "shuffle", false, "remix the feed instead of strict popularity order")
	rootCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "bypass the cache and refetch")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log provider failures and retries")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(preloadCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	category, ok := model.ParseCategory(flagCategory)
	if !ok {
		return fmt.Errorf("unknown category %q", flagCategory)
	}

	a, err := buildApp(flagConfig, flagVerbose)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	var batch model.Batch
	if flagRefresh {
		batch = a.sched.Refresh(ctx, category)
	} else {
		batch = a.sched.Get(ctx, category)
	}

	if flagLimit > 0 && flagLimit < len(batch.Articles) {
		batch.Articles = batch.Articles[:flagLimit]
		batch.HasMore = true
	}
	if flagShuffle {
		batch.Articles = diversity.New().Remix(batch.Articles, len(batch.Articles))
	}

	fmt.Print(display.Feed(category, batch, time.Now()))

	if flagVerbose {
		if failures := a.orch.Failures(); len(failures) > 0 {
			fmt.Print("\n" + display.Failures(failures))
		}
	}

	// Warm adjacent categories into the durable cache before exit.
	a.sched.PreloadRelated(category)
	a.sched.Wait()
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newshub %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
