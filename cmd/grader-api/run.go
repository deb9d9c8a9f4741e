package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/gradekit/speed-grader/internal/api_server"
	"github.com/gradekit/speed-grader/internal/canvas"
	"github.com/gradekit/speed-grader/internal/config"
	"github.com/gradekit/speed-grader/internal/events"
	"github.com/gradekit/speed-grader/internal/extract"
	"github.com/gradekit/speed-grader/internal/llm"
	"github.com/gradekit/speed-grader/internal/service"
	"github.com/gradekit/speed-grader/internal/store"
	"github.com/gradekit/speed-grader/pkg/log"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the grader api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}

		logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Named("grader-api").Info("Starting API service")
		defer zap.S().Named("grader-api").Info("API service stopped")

		db, err := store.InitDB(cfg)
		if err != nil {
			return fmt.Errorf("initializing data store: %w", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := s.InitialMigration(); err != nil {
			return fmt.Errorf("running initial migration: %w", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		course := canvas.NewClient(cfg.Canvas.BaseUrl, cfg.Canvas.Token, cfg.Canvas.CourseID)
		if err := course.ValidateCredentials(ctx); err != nil {
			zap.S().Named("grader-api").Warnw("canvas credential validation failed", "error", err)
		}

		grader := service.NewGradingService(
			llm.NewOpenAIClient(cfg.Models.OpenAIAPIKey, cfg.Models.OpenAIModel),
			cfg.Models.MaxSubmissionChars,
		)

		geminiClient, err := llm.NewGeminiClient(ctx, cfg.Models.GeminiAPIKey, cfg.Models.GeminiModel)
		if err != nil {
			return fmt.Errorf("initializing review model: %w", err)
		}
		defer geminiClient.Close()
		reviewer := service.NewFairnessService(geminiClient, cfg.Models.MaxReviewChars)

		eventProducer := events.NewEventProducer(&events.StdoutWriter{})
		defer func() { _ = eventProducer.Close() }()

		jobSrv := service.NewJobService(s, course, grader, reviewer, extract.NewExtractor(), eventProducer)

		listener, err := newListener(cfg.Service.Address)
		if err != nil {
			return fmt.Errorf("creating listener: %w", err)
		}

		server := apiserver.New(cfg, jobSrv, listener)
		if err := server.Run(ctx); err != nil {
			return fmt.Errorf("running server: %w", err)
		}

		return nil
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
