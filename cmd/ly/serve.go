package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/leadyard/internal/digest"
	"github.com/zulandar/leadyard/internal/notify"
	"github.com/zulandar/leadyard/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the lead qualification API",
		Long:  "Serves registration, chat, lead listing and analytics endpoints backed by the configured store and model.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, store, closeDB, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer closeDB()

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return err
	}
	engine, err := newController(ctx, cfg, store, notifier, log)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	var sched *digest.Scheduler
	if cfg.Digest.Cron != "" && notifier != nil {
		sched, err = digest.NewScheduler(digest.SchedulerOpts{
			Store:    store,
			Notifier: notifier,
			Cron:     cfg.Digest.Cron,
			Window:   cfg.Digest.Window,
			Logger:   log,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Digest scheduled (%s), next at %s\n",
			cfg.Digest.Cron, sched.Next(time.Now()).Format(time.RFC1123))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return web.Start(gctx, web.StartOpts{
			Store:  store,
			Engine: engine,
			Port:   port,
			Out:    cmd.OutOrStdout(),
			Logger: log,
		})
	})
	if sched != nil {
		g.Go(func() error { return sched.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
