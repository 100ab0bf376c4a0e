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
	"gorm.io/gorm"

	"github.com/sunerpy/indexproxy/api"
	"github.com/sunerpy/indexproxy/core"
	"github.com/sunerpy/indexproxy/global"
	"github.com/sunerpy/indexproxy/ledger"
	"github.com/sunerpy/indexproxy/mirror"
)

var mirrorAddr string

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Run the multi-origin mirror façade: fan the same API out across configured origins",
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		if err := runMirror(); err != nil {
			color.Red("mirror: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	mirrorCmd.Flags().StringVar(&mirrorAddr, "addr", ":8081", "address to listen on")
	rootCmd.AddCommand(mirrorCmd)
}

func runMirror() error {
	log := global.GetLogger()

	db, err := core.InitDB()
	if err != nil {
		return fmt.Errorf("init db: %w", err)
	}

	f, err := mirror.New(global.GlobalCfg.Mirrors, func(id string) (*ledger.Tracker, error) {
		return trackerFor(db, id), nil
	}, log)
	if err != nil {
		return fmt.Errorf("init mirror façade: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := api.NewMirror(f, log)
	httpSrv := &http.Server{Addr: mirrorAddr, Handler: srv.Mux()}
	go func() {
		<-ctx.Done()
		_ = httpSrv.Close()
	}()

	log.Info("indexproxy: mirror serving", zap.String("addr", mirrorAddr), zap.Strings("origins", f.Origins()))
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// trackerFor shares the single process database across every mirror
// origin; each origin's records stay distinguishable by the mirror_id
// column the ledger Tracker tags them with (fetch.WithMirrorID).
func trackerFor(db *gorm.DB, id string) *ledger.Tracker {
	return core.NewTracker(db)
}
