package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mppwebui "github.com/MegaGrindStone/mpp-web-ui"
	"github.com/MegaGrindStone/mpp-web-ui/internal/handlers"
	"github.com/MegaGrindStone/mpp-web-ui/internal/logger"
	"github.com/MegaGrindStone/mpp-web-ui/internal/models"
	"github.com/MegaGrindStone/mpp-web-ui/internal/render"
	"github.com/MegaGrindStone/mpp-web-ui/internal/services"
	"github.com/MegaGrindStone/mpp-web-ui/internal/stream"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const (
	rootShortDesc = "Serve the Mall Pelayanan Publik portal and its chat widget"
	rootLongDesc  = `Serve the Mall Pelayanan Publik Kota Bengkulu landing page with its chat widget.

Questions typed in the widget are forwarded to the ask-stream answering service and the
streamed answer is pushed back to the browser as it arrives.

Configuration is read from config.yaml in the config directory, then from MPP_*
environment variables (for example MPP_ASKSTREAM_URL), then from flags.`

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type rootCommander struct {
	configDir string
	port      string
	askURL    string
	debug     bool
	logFormat string
}

func newRootCmd() *cobra.Command {
	cmder := &rootCommander{}

	cmd := &cobra.Command{
		Use:          "mppwebui",
		Short:        rootShortDesc,
		Long:         rootLongDesc,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := cmder.viper(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.PersistentFlags().StringVar(&cmder.configDir, "config-dir", "",
		"Directory holding config.yaml and the journal (default: <user config dir>/mppwebui)")
	cmd.PersistentFlags().BoolVar(&cmder.debug, "debug", false, "Log at debug level")
	cmd.PersistentFlags().StringVar(&cmder.logFormat, "log-format", "text", "Log format (text, json, pretty)")
	cmd.Flags().StringVarP(&cmder.port, "port", "p", "8080", "Port to listen on")
	cmd.Flags().StringVarP(&cmder.askURL, "ask-stream-url", "u", "", "URL of the ask-stream answering service")

	cmd.AddCommand(newJournalCmd(cmder))

	return cmd
}

// viper loads the configuration layers and binds the flags the user actually set on top.
func (c *rootCommander) viper(cmd *cobra.Command) (*viper.Viper, error) {
	dir := c.configDir
	if dir == "" {
		var err error
		if dir, err = defaultConfigDir(); err != nil {
			return nil, err
		}
	}

	v, err := initViper(dir)
	if err != nil {
		return nil, err
	}

	bindings := map[string]string{
		"port":           "port",
		"ask-stream-url": "askstream.url",
		"log-format":     "log.format",
	}
	for name, key := range bindings {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}
	if c.debug {
		v.Set("log.level", "debug")
	}
	return v, nil
}

func newLogger(cfg logConfig) *slog.Logger {
	return logger.New(
		logger.WithDebug(logger.ParseLevel(cfg.Level) <= slog.LevelDebug),
		logger.WithJSON(cfg.Format == "json"),
		logger.WithPretty(cfg.Format == "pretty"),
	)
}

func serve(ctx context.Context, cfg config) error {
	log := newLogger(cfg.Log)

	renderer, err := render.New(render.Format(cfg.Render.Format), cfg.Render.HighlightStyle)
	if err != nil {
		return err
	}

	widgetOpts, err := cfg.Widget.widgetOptions()
	if err != nil {
		return err
	}

	if cfg.Journal.Enabled {
		journal, err := services.NewBoltJournal(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer journal.Close()
		widgetOpts = append(widgetOpts, stream.WithRecorder(journal))
		log.Info("Journaling stream sessions", slog.String("path", cfg.Journal.Path))
	}

	transport := services.NewAskStream(cfg.AskStream.URL, cfg.AskStream.RequestIDHeader, &http.Client{}, log)

	m, err := handlers.NewMain(transport, renderer, models.DefaultPortal(), log, widgetOpts...)
	if err != nil {
		return err
	}

	// Serve static files
	staticFS, err := fs.Sub(mppwebui.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("error opening static files: %w", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.HandleFunc("/", m.HandleHome)
	mux.HandleFunc("/chat", m.HandleChats)
	mux.HandleFunc("/chat/open", m.HandleOpen)
	mux.HandleFunc("/chat/close", m.HandleClose)
	mux.HandleFunc("/sse", m.HandleSSE)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// SSE connections never finish on their own, so they are closed as soon as shutdown starts.
	srv.RegisterOnShutdown(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			log.Error("Failed to shutdown sse server", slog.String("err", err.Error()))
		}
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server starting", slog.String("addr", srv.Addr), slog.String("askStream", cfg.AskStream.URL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return m.Sweep(gctx, cfg.Widget.SweepInterval, cfg.Widget.IdleTTL)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Start shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", slog.String("err", err.Error()))
			if err := srv.Close(); err != nil {
				return fmt.Errorf("forcing server close: %w", err)
			}
		}
		return nil
	})

	return g.Wait()
}
