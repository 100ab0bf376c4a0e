package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sunerpy/indexproxy/api"
	"github.com/sunerpy/indexproxy/cache"
	"github.com/sunerpy/indexproxy/core"
	"github.com/sunerpy/indexproxy/fetch"
	"github.com/sunerpy/indexproxy/global"
	"github.com/sunerpy/indexproxy/ingest"
	"github.com/sunerpy/indexproxy/ratelimit"
	"github.com/sunerpy/indexproxy/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the single-origin indexer: fetch, cache, rate-limit and serve one upstream",
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		if err := runServe(); err != nil {
			color.Red("serve: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "address to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	log := global.GetLogger()
	cfg := global.GlobalCfg.Indexer

	db, err := core.InitDB()
	if err != nil {
		return fmt.Errorf("init db: %w", err)
	}

	ch, err := cache.New(cfg.CacheDir, cfg.CacheSize, log)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	lim := ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)
	tracker := core.NewTracker(db)
	coordinator := fetch.New(cfg, ch, lim, tracker, log)
	itemStore, err := store.New(db)
	if err != nil {
		return fmt.Errorf("init item store: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	seed := fetch.ListQuery{Term: cfg.SeedQuery.Term, Category: modelCategory(cfg.SeedQuery.Category)}
	in := ingest.New(coordinator, itemStore, cfg.UpdateInterval, seed, log)
	go in.Run(ctx)

	srv := api.NewIndexer(coordinator, itemStore, tracker, log)
	httpSrv := &http.Server{Addr: serveAddr, Handler: srv.Mux()}
	go func() {
		<-ctx.Done()
		_ = httpSrv.Close()
	}()

	log.Info("indexproxy: serving", zap.String("addr", serveAddr), zap.String("origin", cfg.Name))
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
