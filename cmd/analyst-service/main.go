package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartstock-analyst/internal/analyzer/config"
	delivery "smartstock-analyst/internal/analyzer/delivery/http"
	"smartstock-analyst/internal/analyzer/repository"
	"smartstock-analyst/internal/analyzer/service"
	"smartstock-analyst/pkg/logger"
	"smartstock-analyst/pkg/pdf"
	"smartstock-analyst/pkg/telegram"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"google.golang.org/genai"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the analyst service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration. A missing model API key fails here, at startup,
	// never inside a request.
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Analyst Service", logger.StringField("name", cfg.App.Name), logger.StringField("version", cfg.App.Version))

	// Initialize the Gemini client
	genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize Gemini AI client", logger.ErrorField(err))
	}

	// Initialize repositories
	marketDataRepo, err := repository.NewYahooFinanceRepository(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Yahoo Finance repository", logger.ErrorField(err))
	}
	newsRepo := repository.NewGoogleNewsRepository(cfg, appLogger)
	aiRepo, err := repository.NewGeminiAIRepository(cfg, appLogger, genAiClient)
	if err != nil {
		appLogger.Fatal("Failed to initialize Gemini AI repository", logger.ErrorField(err))
	}

	// Initialize the optional Telegram notifier
	var notifier telegram.Notifier = telegram.NoopNotifier{}
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
		}
	}

	// Initialize services
	extractor := service.NewTickerExtractor(appLogger, aiRepo)
	assembler := service.NewReportAssembler()
	orchestrator := service.NewOrchestrator(cfg, appLogger, extractor, marketDataRepo, newsRepo, aiRepo, assembler)
	renderer := pdf.NewReportRenderer()

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	analysisHandler := delivery.NewAnalysisHandler(orchestrator, renderer, notifier, appLogger)
	apiV1 := e.Group("/api/v1")
	analysisGroup := apiV1.Group("/analysis")
	analysisHandler.RegisterRoutes(analysisGroup)

	// Start the server
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	appLogger.Info("Analyst service started. Waiting for requests...")

	<-ctx.Done()

	appLogger.Info("Shutting down analyst service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Failed to shut down server gracefully", logger.ErrorField(err))
	}
	appLogger.Info("Analyst service stopped.")
}

func main() {
	rootCmd := &cobra.Command{Use: "analyst-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-analyst.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing analyst-service CLI: %s\n", err)
		os.Exit(1)
	}
}
