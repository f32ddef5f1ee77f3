package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/pitchcall/internal/adapters/http"
	"github.com/dkeye/pitchcall/internal/adapters/notify"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local call control API",
	Long: `Serve exposes the call lifecycle over HTTP for a UI: sign in, start and
end the call, toggle the microphone, and stream state changes over a websocket.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Secret == "" {
		cfg.Secret = uuid.NewString() + uuid.NewString()
		log.Warn().Str("module", "cli").Msg("no session secret configured, sign-ins will not survive a restart")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hub := notify.NewHub(notify.HubOptions{PingPeriod: cfg.PingPeriod})
	ctl, err := newController(ctx, cfg, notify.Fanout{notify.NewLogSink(), hub})
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.SetupRouter(cfg, ctl, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("pitchcall server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		ctl.Close()
		hub.Close()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
