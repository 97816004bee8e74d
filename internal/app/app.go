package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bimbel_asn_backend/internal/config"
	"bimbel_asn_backend/internal/controller"
	"bimbel_asn_backend/internal/repository"
	"bimbel_asn_backend/internal/service"
	"bimbel_asn_backend/pkg/configwatcher"
	"bimbel_asn_backend/pkg/database"
	"bimbel_asn_backend/pkg/logger"
	"bimbel_asn_backend/pkg/monitoring"
	"bimbel_asn_backend/pkg/security"
	"bimbel_asn_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client
	scheduler *gocron.Scheduler
	services  *services
}

type repositories struct {
	user     *repository.UserRepository
	question *repository.QuestionRepository
	usage    *repository.UsageRepository
	session  *repository.SessionRepository
	progress *repository.ProgressRepository
}

type services struct {
	auth     *service.AuthService
	selector *service.SelectorService
	quota    *service.QuotaService
	progress *service.ProgressService
	session  *service.SessionService
	question *service.QuestionService
	quality  *service.QualityService
	importer *service.ImportService
	storage  service.FileStorage
	export   *service.ExportService
}

type controllers struct {
	auth     *controller.AuthController
	session  *controller.SessionController
	question *controller.QuestionController
	progress *controller.ProgressController
	health   *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		question: repository.NewQuestionRepository(db),
		usage:    repository.NewUsageRepository(db),
		session:  repository.NewSessionRepository(db),
		progress: repository.NewProgressRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*services, error) {
	s := &services{}

	storage, err := service.NewFileStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}
	s.storage = storage

	s.auth = service.NewAuthService(repos.user, cfg.JWT)
	s.selector = service.NewSelectorService(repos.question, repos.usage)
	s.quota = service.NewQuotaService(rdb, repos.session)
	s.progress = service.NewProgressService(repos.progress, repos.usage, repos.session, repos.question)
	s.session = service.NewSessionService(db, repos.session, repos.usage, repos.question, s.selector, s.progress, s.quota)
	s.question = service.NewQuestionService(repos.question)
	s.quality = service.NewQualityService(repos.question, repos.usage, cfg.Quality)
	s.importer = service.NewImportService(s.question)
	s.export = service.NewExportService(s.session, s.storage)

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		session:  controller.NewSessionController(s.session, s.selector, s.export),
		question: controller.NewQuestionController(s.question, s.quality, s.importer),
		progress: controller.NewProgressController(s.progress),
		health:   controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	windowMinutes := cfg.RateLimit.WindowMinutes
	if windowMinutes <= 0 {
		windowMinutes = 1
	}
	router.Use(security.RateLimiter(maxRequests, time.Duration(windowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startScheduler runs the periodic quality sweep that retires questions with
// bad answer statistics.
func (a *App) startScheduler(s *services, cfg *config.Config) {
	hours := cfg.Quality.ScanHours
	if hours <= 0 {
		hours = 6
	}

	a.scheduler = gocron.NewScheduler(time.UTC)
	a.scheduler.Every(hours).Hours().Do(func() {
		report, err := s.quality.ApplyRetirementSweep()
		if err != nil {
			logger.Log.Error("quality scan failed", zap.Error(err))
			return
		}
		logger.Log.Info("quality scan finished",
			zap.Int("scanned", report.Scanned),
			zap.Int("retired", report.Retired))
	})
	a.scheduler.StartAsync()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, quota counters fall back to the database", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	if cfg.MigrateOnly {
		return app
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	controllers := app.initControllers(services, db)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		_, err := tracing.InitTracer("bimbel-asn", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	app.startScheduler(services, cfg)

	go configwatcher.WatchConfig("configs/config.yaml", cfg, func(newCfg interface{}) {
		c, ok := newCfg.(*config.Config)
		if !ok {
			return
		}
		services.quality.SetThresholds(c.Quality)
		logger.Log.Info("configuration reloaded")
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
