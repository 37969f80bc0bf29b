package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhdewitt/diagweb/internal/catalog"
	"github.com/nhdewitt/diagweb/internal/config"
	"github.com/nhdewitt/diagweb/internal/runner"
	"github.com/nhdewitt/diagweb/internal/server"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides config)")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	closer := config.SetupLogging(cfg.Log)
	defer closer.Close()

	store, err := catalog.NewStore(cfg.Catalog.Path)
	if err != nil {
		log.Printf("Failed to load catalog: %v", err)
		return err
	}
	log.Printf("Loaded %d commands from %s", store.Get().Len(), catalogName(cfg.Catalog.Path))

	r := runner.New(runner.Config{
		Timeout:   cfg.ExecTimeout(),
		MaxOutput: cfg.Exec.MaxOutputBytes,
	})

	srv := server.New(server.Config{
		Listen:       cfg.Server.Listen,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}, store, r)

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go watchReload(ctx, store)

	return srv.Start(ctx)
}

// watchReload swaps in a freshly loaded catalog on SIGHUP.
func watchReload(ctx context.Context, store *catalog.Store) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cat, err := store.Reload()
			if err != nil {
				log.Printf("Catalog reload failed, keeping current catalog: %v", err)
				continue
			}
			log.Printf("Catalog reloaded: %d commands", cat.Len())
		}
	}
}

func catalogName(path string) string {
	if path == "" {
		return "embedded catalog"
	}
	return path
}
