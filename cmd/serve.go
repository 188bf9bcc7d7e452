package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"intake_bot/internal/config"
	"intake_bot/internal/entities"
	"intake_bot/internal/infrastructure"
	"intake_bot/internal/interfaces"
	"intake_bot/internal/interfaces/http"
	"intake_bot/internal/repository"
	"intake_bot/internal/usecases"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook receiver and admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := infrastructure.NewLogger(cfg.Log.Level, cfg.Log.Format)

	pgClient, err := infrastructure.NewPostgresClient(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pgClient.Close()

	// Repositories
	formRepo := repository.NewIntakeFormRepository(pgClient.Pool)
	logRepo := repository.NewMessageLogRepository(pgClient.Pool)
	groupRepo := repository.NewGroupRepository(pgClient.Pool)
	responseRepo := repository.NewBotResponseRepository(pgClient.Pool)
	userRepo := repository.NewUserRepository(pgClient.Pool)
	activityRepo := repository.NewActivityRepository(pgClient.Pool)

	authUsecase := usecases.NewAuthUsecase(userRepo, cfg.JWTSecret)
	if err := authUsecase.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminPass); err != nil {
		log.Warn().Err(err).Msg("failed to ensure admin user")
	}
	dashboardUsecase := usecases.NewDashboardUsecase(formRepo, logRepo, groupRepo, activityRepo)

	limiter := infrastructure.NewMessageRateLimiter(cfg.Replies.RatePerSecond, cfg.Replies.Burst)
	go limiter.Run(ctx)

	var (
		messenger  interfaces.Messenger
		readMarker http.ReadMarker
	)
	if cfg.WhatsApp.CloudAPIConfigured() {
		cloud := infrastructure.NewCloudAPIClient(cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.APIVersion, log)
		messenger, readMarker = cloud, cloud
		log.Info().Str("phone_number_id", cfg.WhatsApp.PhoneNumberID).Msg("cloud api enabled")
	}

	// Telegram admin notifications
	var (
		notifier interfaces.Notifier
		tgStatus http.TelegramStatus
	)
	tg, err := infrastructure.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID, log)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("telegram disabled")
	case tg != nil:
		tg.SetStatusFunc(dashboardUsecase.StatusText)
		notifier, tgStatus = tg, tg
		go tg.Run(ctx)
	default:
		log.Info().Msg("telegram disabled (no bot token)")
	}

	// The linked device routes into the service, which is built below
	var intakeService *usecases.IntakeService
	var device *infrastructure.WhatsAppManager
	if cfg.WhatsApp.LinkedDevice {
		device = infrastructure.NewWhatsAppManager(cfg.WhatsApp.DeviceDir, func(ctx context.Context, msg entities.Message) {
			if _, err := intakeService.HandleMessage(ctx, msg); err != nil {
				log.Error().Err(err).Str("message_id", msg.ID).Msg("linked device message failed")
			}
		}, log)
		if messenger == nil {
			messenger = device
		}
	}

	replyMessenger := messenger
	if !cfg.Replies.Enabled {
		replyMessenger = nil
		log.Info().Msg("auto replies disabled")
	}

	intakeService = usecases.NewIntakeService(usecases.IntakeServiceConfig{
		Forms:        formRepo,
		Logs:         logRepo,
		Groups:       groupRepo,
		Responses:    responseRepo,
		Messenger:    replyMessenger,
		Notifier:     notifier,
		Locks:        infrastructure.NewSenderLocks(),
		Limiter:      limiter,
		ReplyTimeout: cfg.Replies.SendTimeout,
	}, log)

	if device != nil {
		if err := device.Start(ctx); err != nil {
			log.Error().Err(err).Msg("linked device failed to start")
		}
		defer device.Stop()
	}

	deps := http.Deps{
		Intake:       intakeService,
		Auth:         authUsecase,
		Forms:        formRepo,
		Logs:         logRepo,
		Groups:       groupRepo,
		Responses:    responseRepo,
		Dashboard:    dashboardUsecase,
		Messenger:    messenger,
		ReadMarker:   readMarker,
		Telegram:     tgStatus,
		VerifyToken:  cfg.WhatsApp.VerifyToken,
		AppSecret:    cfg.WhatsApp.AppSecret,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}
	if device != nil {
		deps.Device = device
	}

	if cfg.Log.Level != zerolog.LevelDebugValue {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	http.SetupRoutes(r, http.NewHandler(deps, log), http.NewMiddleware(cfg.JWTSecret))

	srv := &nethttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
