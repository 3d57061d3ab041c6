package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/faultline/app/store"
	"github.com/shashiranjanraj/faultline/pkg/monitor"
)

// faultline fixtures [collection]
var fixturesCmd = &cobra.Command{
	Use:       "fixtures [collection]",
	Short:     "Print the seed fixtures as JSON",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"users", "products", "orders", "notifications", "comments", "settings", "pageViews"},
	RunE: func(cmd *cobra.Command, args []string) error {
		f := store.Seed()
		var out any = f
		if len(args) == 1 {
			collections := map[string]any{
				"users":         f.Users,
				"products":      f.Products,
				"orders":        f.Orders,
				"notifications": f.Notifications,
				"comments":      f.Comments,
				"settings":      f.Settings,
				"pageViews":     f.PageViews,
			}
			v, ok := collections[args[0]]
			if !ok {
				return fmt.Errorf("unknown collection %q", args[0])
			}
			out = v
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// faultline monitor:test
var monitorTestCmd = &cobra.Command{
	Use:   "monitor:test",
	Short: "Send a test event to the configured error monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := monitor.ConfigFromEnv()
		if !cfg.Enabled() {
			return errors.New("monitor is not configured: set MONITOR_API_KEY and MONITOR_ENDPOINT")
		}
		mon, err := monitor.New(cfg)
		if err != nil {
			return err
		}
		ev := monitor.Event{
			EventID:     uuid.NewString(),
			ProjectID:   cfg.ProjectID,
			Environment: cfg.Environment,
			Timestamp:   time.Now().UTC(),
			Level:       "info",
			Exception:   monitor.Exception{Type: "test", Message: "faultline monitor test event"},
			Tags:        map[string]string{"source": "cli"},
		}
		if err := mon.Send(cmd.Context(), ev); err != nil {
			return fmt.Errorf("send test event: %w", err)
		}
		fmt.Println("Test event sent:", ev.EventID)
		return nil
	},
}
