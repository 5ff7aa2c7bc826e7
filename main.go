package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dormscout-backend/config"
	"dormscout-backend/controller"
	"dormscout-backend/dao"
	"dormscout-backend/db"
	"dormscout-backend/pkg/gemini"
	"dormscout-backend/pkg/notify"
	"dormscout-backend/usecase"
)

const (
	version = "0.1.0"
	appName = "dormscout"

	inboxMaxCost    = 1 << 16
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the marketplace API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}

	cmd := &cobra.Command{
		Use:          appName,
		Short:        "Campus marketplace negotiation and matching backend",
		SilenceUsage: true,
		RunE:         serveCmd.RunE,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	cmd.AddCommand(serveCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the record table on the configured SQL backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return db.Migrate(cmd.Context(), cfg.StoreBackend, dsnFor(cfg), logger)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, version)
		},
	})
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return cfg.Build()
}

func dsnFor(cfg config.Config) string {
	if cfg.StoreBackend == "postgres" {
		return cfg.PostgresURL
	}
	return cfg.MySQLDSN()
}

func serve(parent context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Store
	store, err := dao.OpenStore(ctx, dao.StoreOptions{
		Backend:     cfg.StoreBackend,
		Path:        cfg.StorePath,
		MySQLDSN:    cfg.MySQLDSN(),
		PostgresURL: cfg.PostgresURL,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	logger.Info("store ready", zap.String("backend", cfg.StoreBackend))

	// 2. Agent and image analysis
	var (
		agent      usecase.ChatAgent
		analyzer   usecase.ImageAnalyzer
		classifier usecase.MessageClassifier
	)
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey,
			gemini.WithChatModel(cfg.GeminiChatModel),
			gemini.WithVisionModel(cfg.GeminiVisionModel),
			gemini.WithTimeout(cfg.AgentTimeout),
			gemini.WithLogger(logger.Named("gemini")),
		)
		if err != nil {
			return fmt.Errorf("gemini client: %w", err)
		}
		defer client.Close()
		agent, analyzer, classifier = client, client, client
	} else {
		logger.Warn("GEMINI_API_KEY not set: negotiation disabled, listings stay unverified")
	}

	// 3. Notifications
	inbox, err := notify.NewInbox(inboxMaxCost, cfg.NotificationTTL)
	if err != nil {
		return fmt.Errorf("notification inbox: %w", err)
	}
	defer inbox.Close()
	hub := notify.NewHub(logger.Named("ws"))
	notifiers := notify.Multi{inbox, hub}
	publisher, err := notify.OpenPublisher(cfg.NotifyURL, logger.Named("publisher"))
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
	}

	// 4. Dependency Injection
	listingRepo := dao.NewListingRepository(store)
	userRepo := dao.NewUserRepository(store)
	msgRepo := dao.NewMessageRepository(store)

	matchUsecase := usecase.NewMatchUsecase(userRepo, notifiers, cfg.NotificationTTL, logger.Named("match"))
	listingUsecase := usecase.NewListingUsecase(listingRepo, analyzer, classifier, matchUsecase, logger.Named("listing"))
	negotiationUsecase := usecase.NewNegotiationUsecase(agent, usecase.MarkerParser{}, listingRepo, userRepo, cfg.UPIPayee, logger.Named("negotiation"))
	userUsecase := usecase.NewUserUsecase(userRepo, cfg.CampusEmailDomain, decimal.NewFromInt(cfg.DefaultBudget), logger.Named("user"))
	chatUsecase := usecase.NewChatUsecase(msgRepo)

	// 5. Routing
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := controller.NewRouter(controller.Handlers{
		Listings:      controller.NewListingController(listingUsecase),
		Negotiations:  controller.NewNegotiationController(negotiationUsecase),
		Users:         controller.NewUserController(userUsecase),
		Chats:         controller.NewChatController(chatUsecase),
		Notifications: controller.NewNotificationController(inbox, hub),
	}, cfg.CORSOrigin, logger.Named("http"))

	// 6. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
