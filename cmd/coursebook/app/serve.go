package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coursebook/internal/contract"
	"coursebook/internal/handler"
	"coursebook/internal/hub"
	"coursebook/internal/loader"
)

const shutdownTimeout = 10 * time.Second

type Serve struct {
	cmd *cobra.Command

	mainopts *Options
	addr     string
	sync     string
}

func NewServe(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <options>",
		Short: "serve the HTTP API and change stream",
		Args:  cobra.NoArgs,
	}

	c := &Serve{
		cmd:      cmd,
		mainopts: opts,
	}
	c.cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(cmd.Context()) }
	flags := cmd.Flags()
	flags.StringVarP(&c.addr, "addr", "a", "", "HTTP listen address (overrides config)")
	flags.StringVar(&c.sync, "sync", "", "course file (json or yaml) that replaces the stored courses on start and on every change")
	return cmd
}

func (c *Serve) Run(ctx context.Context) error {
	env, err := c.mainopts.Setup()
	if err != nil {
		return err
	}
	defer env.Close()

	cfg := env.Config
	if c.addr != "" {
		cfg.Server.Addr = c.addr
	}
	log := env.Log
	log.Info("starting coursebook server", zap.String("config", cfg.Summary()))

	// Stop on interrupt
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.sync != "" {
		done, err := loader.New(c.sync, env.Service, log.Named("loader")).Sync(ctx)
		if err != nil {
			return err
		}
		go func() {
			if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
				log.Error("course file watch stopped", zap.Error(err))
			}
		}()
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	sseHub := hub.New(env.Resolver, contract.CollectionURI, log.Named("hub"))
	h := handler.NewCourseHandler(env.Service, sseHub, log.Named("handler"))

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.NewRouter(h, log.Named("http")),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  cfg.Server.IdleTimeout.Duration(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
		return err
	}

	log.Info("server stopped")
	return nil
}
