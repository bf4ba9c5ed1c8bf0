package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/krau/konaclassify/config"
	"github.com/krau/konaclassify/onnx"
	"github.com/krau/konaclassify/server"
	"github.com/krau/konaclassify/zoo"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()
		slog.Info("Starting KonaClassify")

		if err := onnx.Init(); err != nil {
			slog.Error("Failed to initialize ONNX Runtime environment", slog.String("error", err.Error()))
			return err
		}
		defer onnx.Destroy()

		cfg := config.C()
		reg, err := onnx.NewRegistry(cfg, zoo.NewFetcher(cfg.FetchRetries))
		if err != nil {
			return err
		}
		defer reg.Close()
		server.Init(reg, cfg.ImageTypes)

		addr := cfg.Host + ":" + cfg.Port
		srv := &http.Server{Addr: addr, Handler: server.NewRouter()}
		slog.Info("Listening on", slog.String("address", addr))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", slog.String("error", err.Error()))
				cancel()
			}
		}()

		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	},
}
