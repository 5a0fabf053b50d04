package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"trivia_backend/internal/config"
	"trivia_backend/internal/controller"
	"trivia_backend/internal/model"
	"trivia_backend/internal/repository"
	"trivia_backend/internal/service"
	"trivia_backend/pkg/configwatcher"
	"trivia_backend/pkg/database"
	"trivia_backend/pkg/logger"
	"trivia_backend/pkg/monitoring"
	"trivia_backend/pkg/security"
	"trivia_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DefaultConfigFile = "configs/config.yaml"

type App struct {
	Config     *config.Config
	ConfigFile string
	Router     *gin.Engine
	DB         *gorm.DB
	Redis      *redis.Client

	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	game        *repository.GameRepository
	achievement *repository.AchievementRepository
	community   *repository.CommunityRepository
	bank        *repository.QuestionBankRepository
	custom      *repository.CustomQuestionRepository
}

type services struct {
	auth           *service.AuthService
	user           *service.UserService
	storage        *service.StorageService
	achievement    *service.AchievementService
	game           *service.GameService
	quiz           *service.QuizService
	community      *service.CommunityService
	questionBank   *service.QuestionBankService
	customQuestion *service.CustomQuestionService
	admin          *service.AdminService
	liveHub        *service.LiveHub
}

type controllers struct {
	auth           *controller.AuthController
	user           *controller.UserController
	quiz           *controller.QuizController
	game           *controller.GameController
	achievement    *controller.AchievementController
	community      *controller.CommunityController
	questionBank   *controller.QuestionBankController
	customQuestion *controller.CustomQuestionController
	admin          *controller.AdminController
	live           *controller.LiveController
	health         *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		game:        repository.NewGameRepository(db),
		achievement: repository.NewAchievementRepository(db),
		community:   repository.NewCommunityRepository(db),
		bank:        repository.NewQuestionBankRepository(db),
		custom:      repository.NewCustomQuestionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.achievement = service.NewAchievementService(repos.achievement, repos.game, service.PerfectRule(cfg.Achievements.PerfectRule))
	s.game = service.NewGameService(repos.game, repos.user, s.achievement, rdb, model.Visibility(cfg.Game.DefaultVisibility))

	s.liveHub = service.NewLiveHub(rdb, cfg.CORS.AllowedOrigins)
	go s.liveHub.Run()

	s.community = service.NewCommunityService(repos.community, repos.game, repos.bank, s.liveHub)
	s.quiz = service.NewQuizService(
		service.NewTriviaClient(cfg.Trivia),
		service.NewRedisSessionStore(rdb, cfg.Game.SessionTTL()),
		repos.bank,
		repos.custom,
		repos.community,
		s.game,
		s.achievement,
		s.liveHub,
	)
	s.questionBank = service.NewQuestionBankService(repos.bank, s.community, s.storage)
	s.customQuestion = service.NewCustomQuestionService(repos.custom)
	s.admin = service.NewAdminService(repos.user, repos.game, repos.custom)
	s.auth = service.NewAuthService(repos.user, rdb, cfg)
	s.user = service.NewUserService(repos.user, s.game)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:           controller.NewAuthController(s.auth),
		user:           controller.NewUserController(s.user),
		quiz:           controller.NewQuizController(s.quiz),
		game:           controller.NewGameController(s.game),
		achievement:    controller.NewAchievementController(s.achievement),
		community:      controller.NewCommunityController(s.community),
		questionBank:   controller.NewQuestionBankController(s.questionBank),
		customQuestion: controller.NewCustomQuestionController(s.customQuestion),
		admin:          controller.NewAdminController(s.admin),
		live:           controller.NewLiveController(s.liveHub),
		health:         controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerHotReload wires the settings that can change without a restart.
func (a *App) registerHotReload(s *services) {
	a.RegisterConfigCallback(func(c *config.Config) {
		logger.SetMode(c.Server.Mode)
	})
	a.RegisterConfigCallback(func(c *config.Config) {
		s.achievement.SetPerfectRule(service.PerfectRule(c.Achievements.PerfectRule))
	})
	a.RegisterConfigCallback(func(c *config.Config) {
		s.game.SetDefaultVisibility(model.Visibility(c.Game.DefaultVisibility))
	})
}

// New builds the application on already opened stores.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config:     cfg,
		ConfigFile: DefaultConfigFile,
		DB:         db,
		Redis:      rdb,
	}

	monitoring.Init()

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)
	app.registerHotReload(services)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app := New(cfg, db, rdb)
	app.tracer = tp
	return app
}

// Close stops background workers. It is safe to call more than once.
func (a *App) Close() {
	if a.services != nil && a.services.liveHub != nil {
		a.services.liveHub.Stop()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
		a.tracer = nil
	}
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

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		if err := configwatcher.Watch(watchCtx, a.ConfigFile, a.applyConfig); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	stopWatch()
	// closes live sockets and clears presence keys
	a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
