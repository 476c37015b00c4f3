package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohit242-bit/Newshub/internal/config"
	"github.com/Mohit242-bit/Newshub/internal/model"
	"github.com/Mohit242-bit/Newshub/internal/scheduler"
	"github.com/Mohit242-bit/Newshub/internal/store"
)

var flagPruneCategory string

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cached feeds from the local cache",
	Long: `Delete cached feed entries and reclaim disk space.

Prunes every category unless narrowed with --category.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(config.CachePath())
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		prefix := "feed:"
		if flagPruneCategory != "" {
			category, ok := model.ParseCategory(flagPruneCategory)
			if !ok {
				return fmt.Errorf("unknown category %q", flagPruneCategory)
			}
			prefix = scheduler.CacheKey(category)
		}

		keys, err := db.KeysWithPrefix(prefix)
		if err != nil {
			return fmt.Errorf("listing cache: %w", err)
		}
		for _, key := range keys {
			if err := db.Remove(key); err != nil {
				return fmt.Errorf("pruning %s: %w", key, err)
			}
		}

		if len(keys) == 0 {
			fmt.Println("Nothing to prune.")
		} else {
			fmt.Printf("Pruned %d cached feed(s).\n", len(keys))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := config.CachePath()
		db, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		count, size, err := db.Stats(dbPath)
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		keys, err := db.KeysWithPrefix("feed:")
		if err != nil {
			return fmt.Errorf("listing cache: %w", err)
		}
		var categories []string
		for _, key := range keys {
			categories = append(categories, strings.TrimPrefix(key, "feed:"))
		}

		fmt.Printf("Cache: %s\n", dbPath)
		fmt.Printf("Entries: %d\n", count)
		fmt.Printf("Size: %s\n", formatBytes(size))
		if len(categories) > 0 {
			fmt.Printf("Feeds: %s\n", strings.Join(categories, ", "))
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().StringVar(&flagPruneCategory, "category", "", "prune a single category instead of everything")
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
