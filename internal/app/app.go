package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/prepsutra/dpp-backend/internal/cache"
	redisclient "github.com/prepsutra/dpp-backend/internal/clients/redis"
	"github.com/prepsutra/dpp-backend/internal/data/db"
	"github.com/prepsutra/dpp-backend/internal/data/repos"
	httpx "github.com/prepsutra/dpp-backend/internal/http"
	httpH "github.com/prepsutra/dpp-backend/internal/http/handlers"
	httpMW "github.com/prepsutra/dpp-backend/internal/http/middleware"
	"github.com/prepsutra/dpp-backend/internal/observability"
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
	"github.com/prepsutra/dpp-backend/internal/realtime"
	"github.com/prepsutra/dpp-backend/internal/services"
)

// Services groups the DPP core for callers that embed the app (tests, tools).
type Services struct {
	Config     services.ConfigService
	DPP        services.DPPService
	Submission services.SubmissionService
	Stats      services.StatsService
}

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    repos.Repos
	Services Services
	Hub      *realtime.Hub

	bus          redisclient.NotificationBus
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	dbService, err := db.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	theDB := dbService.DB()

	hub := realtime.NewHub(log)

	// The Redis bus is optional. Without it notifications only reach clients
	// connected to this instance.
	var (
		bus      redisclient.NotificationBus
		notifier services.Notifier
	)
	if os.Getenv("REDIS_ADDR") != "" {
		bus, err = redisclient.NewNotificationBus(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init notification bus: %w", err)
		}
		notifier = services.NewBusNotifier(bus, log)
	} else {
		log.Warn("REDIS_ADDR not set, notifications stay in-process")
		notifier = services.NewHubNotifier(hub)
	}

	reposet := repos.New(theDB, log)
	bank := cache.NewQuestionBank(reposet.Question, cfg.QuestionCacheTTL, log)

	configService := services.NewConfigService(reposet, bank, log)
	serviceset := Services{
		Config:     configService,
		DPP:        services.NewDPPService(theDB, reposet, configService, bank, notifier, log),
		Submission: services.NewSubmissionService(theDB, reposet, notifier, log),
		Stats:      services.NewStatsService(reposet, log),
	}

	router := httpx.NewRouter(httpx.RouterConfig{
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
		ConfigHandler:   httpH.NewConfigHandler(serviceset.Config),
		DPPHandler:      httpH.NewDPPHandler(serviceset.DPP, serviceset.Submission),
		StatsHandler:    httpH.NewStatsHandler(serviceset.Stats),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub),
		HealthHandler:   httpH.NewHealthHandler(),
	})

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Hub:      hub,
		bus:      bus,
	}, nil
}

// Start launches the background pieces: tracing and the bus-to-hub forwarder.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.otelShutdown = observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		ServiceName: "dpp-backend",
		Environment: a.Cfg.Environment,
	})

	if a.bus != nil {
		if err := a.bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
			a.Log.Error("notification forwarder failed to start", "error", err)
		}
	}
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(a.Cfg.Addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_ = a.otelShutdown(ctx)
	}
	if a.bus != nil {
		_ = a.bus.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
