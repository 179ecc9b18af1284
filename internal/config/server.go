package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/snditnz/verbumcare/database/postgres"
	notificationHandler "github.com/snditnz/verbumcare/internal/api/notification/handler"
	recordingHandler "github.com/snditnz/verbumcare/internal/api/recording/handler"
	recordingRepository "github.com/snditnz/verbumcare/internal/api/recording/repository"
	recordingService "github.com/snditnz/verbumcare/internal/api/recording/service"
	reviewHandler "github.com/snditnz/verbumcare/internal/api/review/handler"
	reviewRepository "github.com/snditnz/verbumcare/internal/api/review/repository"
	reviewService "github.com/snditnz/verbumcare/internal/api/review/service"
	"github.com/snditnz/verbumcare/internal/middleware"
	"github.com/snditnz/verbumcare/internal/pipeline"
	"github.com/snditnz/verbumcare/pkg/categorize"
	"github.com/snditnz/verbumcare/pkg/gemini"
	"github.com/snditnz/verbumcare/pkg/notifier"
	"github.com/snditnz/verbumcare/pkg/s3"
	"github.com/snditnz/verbumcare/pkg/utils"
	"github.com/snditnz/verbumcare/pkg/whisper"
)

type ServerOption func(*Server) error

type Server struct {
	engine        *fiber.App
	db            *sqlx.DB
	log           *logrus.Logger
	middleware    middleware.Middleware
	validator     *validator.Validate
	utils         utils.IUtils
	handlers      []handler
	whisperClient whisper.IWhisper
	geminiClient  gemini.IGemini
	notifier      notifier.INotifier
	s3Client      s3.ItfS3

	dispatcher *pipeline.Dispatcher
	sweeper    *pipeline.Sweeper
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithGeminiClient() ServerOption {
	return func(s *Server) error {
		client, err := gemini.NewGeminiClient()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to create Gemini client: %v", err)
			}
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.geminiClient = client
		return nil
	}
}

func WithWhisperClient() ServerOption {
	return func(s *Server) error {
		s.whisperClient = whisper.New()
		return nil
	}
}

func WithNotifier() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before notifier")
		}
		s.notifier = notifier.New(s.log)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Review Domain
	reviewRepo := reviewRepository.New(s.db, s.log)
	recordingRepo := recordingRepository.New(s.db, s.log)
	categorizer := categorize.NewEngine(s.geminiClient, s.log)
	reviewServices := reviewService.NewReviewService(s.log, reviewRepo, recordingRepo, categorizer, s.notifier, s.utils)
	reviewHandlers := reviewHandler.New(s.log, s.validator, s.middleware, reviewServices)

	// Processing Pipeline
	s.dispatcher = pipeline.NewDispatcher(s.log, recordingRepo, reviewServices, s.whisperClient, s.s3Client, categorizer, s.notifier)
	s.sweeper = pipeline.NewSweeper(s.log, reviewServices)

	// Recording Domain
	recordingServices := recordingService.NewRecordingService(s.log, recordingRepo, s.s3Client, s.dispatcher, s.notifier, s.utils)
	recordingHandlers := recordingHandler.New(s.log, s.validator, s.middleware, recordingServices)

	// Notifications
	notificationHandlers := notificationHandler.New(s.log, s.middleware, s.notifier)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, recordingHandlers, reviewHandlers, notificationHandlers)
}

func (s *Server) Run(ctx context.Context) error {
	s.dispatcher.Start(ctx)
	s.sweeper.Start(ctx)

	router := s.engine.Group("/api/v1")
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) Shutdown() error {
	err := s.engine.Shutdown()
	s.dispatcher.Stop()
	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		checks := fiber.Map{"server": "ok"}

		if err := s.db.Ping(); err != nil {
			checks["database"] = "unreachable"
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(checks)
		}
		checks["database"] = "ok"

		return ctx.JSON(checks)
	})
}
