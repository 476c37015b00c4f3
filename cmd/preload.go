package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohit242-bit/Newshub/internal/display"
)

var preloadCmd = &cobra.Command{
	Use:   "preload",
	Short: "Warm the cache for the configured categories",
	Long: `Fetch, rank and cache the categories listed under preload in the config
file, with a stagger between them. Subsequent reads are served instantly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(flagConfig, flagVerbose)
		if err != nil {
			return err
		}
		defer a.close()

		a.sched.Preload(cmd.Context())

		for _, st := range a.sched.StatusAll() {
			if st.Items > 0 {
				fmt.Printf("warmed %s: %d articles from %s\n", st.Category, st.Items, st.Source)
			}
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep category feeds warm until interrupted",
	Long: `Preload the configured categories and refresh them on the configured
interval. Runs until SIGINT or SIGTERM, then shuts down cleanly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(flagConfig, flagVerbose)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a.sched.Start()
		fmt.Println("watching; press Ctrl-C to stop")
		<-ctx.Done()
		fmt.Println("shutting down")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cache state of every category feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(flagConfig, flagVerbose)
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Print(display.StatusTable(a.sched.StatusAll(), time.Now()))
		return nil
	},
}
