// Command answerer is a development answering service. It speaks the ask-stream protocol the
// portal consumes, answering with an Ollama or OpenAI model.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MegaGrindStone/mpp-web-ui/internal/logger"
	"github.com/MegaGrindStone/mpp-web-ui/internal/services"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		debug   bool
	)

	cmd := &cobra.Command{
		Use:          "answerer",
		Short:        "Answer ask-stream questions with a language model",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := readConfig(cfgPath)
			if err != nil {
				return err
			}
			log := logger.New(logger.WithDebug(debug), logger.WithPretty(true))
			return run(cmd.Context(), cfg, log)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "answerer.yaml", "Path to the configuration file")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log at debug level")

	return cmd
}

func readConfig(path string) (config, error) {
	cfgFile, err := os.Open(path)
	if err != nil {
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := config{}
	if err := yaml.NewDecoder(cfgFile).Decode(&cfg); err != nil {
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config, log *slog.Logger) error {
	answerer, err := cfg.LLM.answerer(cfg.SystemPrompt, log)
	if err != nil {
		return err
	}
	producer, err := services.NewProducer(answerer, cfg.Encoding, log)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ask-stream", producer.HandleAskStream)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Answerer starting", slog.String("addr", srv.Addr), slog.String("encoding", string(cfg.Encoding)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
