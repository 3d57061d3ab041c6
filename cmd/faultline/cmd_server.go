package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/faultline/app/routes"
	"github.com/shashiranjanraj/faultline/config"
	"github.com/shashiranjanraj/faultline/internal/kernel"
	"github.com/shashiranjanraj/faultline/internal/server"
	"github.com/shashiranjanraj/faultline/pkg/logger"
	"github.com/shashiranjanraj/faultline/pkg/router"
)

var portFlag string

// faultline serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run", "start"},
	Short:   "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		closeLogs, err := logger.Setup(logger.OptionsFromConfig())
		if err != nil {
			return err
		}
		defer closeLogs()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := kernel.OptionsFromConfig(ctx)
		if err != nil {
			return err
		}
		k, err := kernel.New(opts)
		if err != nil {
			return err
		}

		port := portFlag
		if port == "" {
			port = config.AppPort()
		}
		serveErr := server.Start(ctx, ":"+port, k.Handler())

		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := k.Close(closeCtx); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
		logger.Info("faultline stopped")
		return serveErr
	},
}

// faultline route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := router.New()
		routes.RegisterAPI(r, routes.Controllers{})

		infos := r.Routes()
		sort.Slice(infos, func(i, j int) bool {
			if infos[i].Path != infos[j].Path {
				return infos[i].Path < infos[j].Path
			}
			return infos[i].Method < infos[j].Method
		})

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}

func init() {
	serveCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Port to listen on (default APP_PORT)")
}
