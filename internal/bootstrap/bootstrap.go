package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appAuth "github.com/ai2c/amap/internal/app/auth"
	appControllers "github.com/ai2c/amap/internal/app/controllers"
	appMigrations "github.com/ai2c/amap/internal/app/migrations"
	appRepos "github.com/ai2c/amap/internal/app/repositories"
	appRoutes "github.com/ai2c/amap/internal/app/routes"
	appServices "github.com/ai2c/amap/internal/app/services"
	"github.com/ai2c/amap/internal/config"
	"github.com/ai2c/amap/internal/db"
	appMiddleware "github.com/ai2c/amap/internal/middleware"
	pkgAuth "github.com/ai2c/amap/internal/pkg/auth"
	"github.com/ai2c/amap/internal/pkg/email"
	"github.com/ai2c/amap/internal/pkg/events"
	"github.com/ai2c/amap/internal/pkg/filestorage"
	"github.com/ai2c/amap/internal/pkg/helpers"
	"github.com/ai2c/amap/internal/pkg/logger"
	"github.com/ai2c/amap/internal/pkg/validation"
	"github.com/ai2c/amap/internal/pkg/websocket"
	"github.com/ai2c/amap/internal/seed"
)

// DefaultConfigPath is read when no other path is given
const DefaultConfigPath = "configs/config.yaml"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Database *db.PostgresDB
	SourceDB *sql.DB
	Repos    *appRepos.Repositories

	JWTService   *pkgAuth.JWTService
	AuthzService *appAuth.AuthorizationService
	FileStorage  *filestorage.LocalStorage
	Publisher    events.Publisher
	Hub          *websocket.Hub

	UnitService         appServices.UnitService
	UnitLoaderService   appServices.UnitLoaderService
	SoldierService      appServices.SoldierService
	RequestService      appServices.RequestService
	FlagService         appServices.FlagService
	DesignationService  appServices.DesignationService
	FaultService        appServices.FaultService
	FaultETLService     appServices.FaultETLService
	SoldierETLService   appServices.SoldierETLService
	FormService         appServices.FormService
	DocumentService     appServices.DocumentService
	NotificationService appServices.NotificationService
	ReportService       appServices.ReportService

	Seeder *seed.Seeder

	Controllers    appRoutes.Controllers
	WSHandler      *websocket.Handler
	AuthMiddleware *appMiddleware.AuthMiddleware
	Logger         zerolog.Logger

	stopHub context.CancelFunc
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return database, nil
}

// Migrate applies pending migrations from dir
func Migrate(ctx context.Context, database *db.PostgresDB, dir string, lgr zerolog.Logger) error {
	lgr.Info().Str("path", dir).Msg("Running database migrations...")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		lgr.Error().Str("path", dir).Msg("Migrations directory not found")
		return fmt.Errorf("migrations directory not found at %s: %w", dir, err)
	}

	if err := appMigrations.NewMigrator(database.Pool).MigrateFromDirectory(ctx, dir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")
	return nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Database: database, Logger: lgr}

	sourceDB, err := db.NewSourceDB(cfg)
	if err != nil {
		// the API still serves everything but the staging transforms
		lgr.Warn().Err(err).Msg("Staging source database unavailable; ETL endpoints are disabled")
	} else {
		deps.SourceDB = sourceDB
	}
	deps.Repos = appRepos.NewRepositories(database.Pool, deps.SourceDB)

	publicURL := strings.TrimRight(cfg.Server.PublicURL, "/")
	if publicURL == "" {
		publicURL = "http://localhost:" + cfg.Server.Port
	}
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath, publicURL+"/uploads")
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.Publisher, err = events.New(cfg.AMQP.URL, cfg.AMQP.Exchange, logger.Component("events"))
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect event publisher")
		return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
	}

	deps.Hub = websocket.NewHub(logger.Component("websocket"))
	mailer := email.NewEmailService(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
		UseTLS:    cfg.SMTP.UseTLS,
		BaseURL:   publicURL,
	}, logger.Component("email"))

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 8*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	repos := deps.Repos
	var raw appServices.RawSource
	if repos.RawSourceRepository != nil {
		raw = repos.RawSourceRepository
	}

	deps.AuthzService = appAuth.NewAuthorizationService(repos.SoldierRepository, repos.RoleRepository, repos.UnitRepository)
	authz := deps.AuthzService

	rebuilder := appServices.NewHierarchyRebuilder(repos.UnitRepository, repos.LogicalClockRepository, deps.Publisher, logger.Component("hierarchy"))
	deps.UnitService = appServices.NewUnitService(database, repos.UnitRepository, repos.SoldierRepository, rebuilder, authz, lgr)
	deps.UnitLoaderService = appServices.NewUnitLoaderService(database, repos.UnitRepository, rebuilder, lgr)
	deps.SoldierService = appServices.NewSoldierService(
		database,
		repos.SoldierRepository,
		repos.UnitRepository,
		repos.RoleRepository,
		repos.RequestRepository,
		repos.FlagRepository,
		repos.EventRepository,
		authz,
		lgr,
	)
	deps.NotificationService = appServices.NewNotificationService(
		database,
		repos.NotificationRepository,
		repos.SoldierRepository,
		repos.RoleRepository,
		authz,
		deps.Hub,
		mailer,
		deps.Publisher,
		logger.Component("notifications"),
	)
	deps.RequestService = appServices.NewRequestService(
		database,
		repos.RequestRepository,
		repos.RoleRepository,
		repos.SoldierRepository,
		repos.UnitRepository,
		deps.NotificationService,
		authz,
		lgr,
	)
	deps.FlagService = appServices.NewFlagService(repos.FlagRepository, repos.SoldierRepository, repos.UnitRepository, authz, lgr)
	deps.DesignationService = appServices.NewDesignationService(repos.DesignationRepository, repos.SoldierRepository, repos.UnitRepository, authz, lgr)
	deps.FaultService = appServices.NewFaultService(repos.FaultRepository, repos.SoldierRepository, authz, lgr)
	deps.FaultETLService = appServices.NewFaultETLService(
		database,
		raw,
		repos.FaultRepository,
		repos.SoldierRepository,
		repos.UnitRepository,
		deps.Publisher,
		cfg.ETL.FaultLookbackDays,
		logger.Component("etl"),
	)
	deps.SoldierETLService = appServices.NewSoldierETLService(
		database,
		raw,
		repos.SoldierRepository,
		repos.UnitRepository,
		deps.Publisher,
		appServices.SoldierPlacement{TransientUIC: cfg.ETL.TransientUIC, OnboardingUICs: cfg.ETL.OnboardingUICs},
		logger.Component("etl"),
	)
	deps.FormService = appServices.NewFormService(
		database,
		repos.EventRepository,
		repos.SoldierRepository,
		repos.UnitRepository,
		repos.DocumentRepository,
		authz,
		lgr,
	)
	deps.DocumentService = appServices.NewDocumentService(
		repos.DocumentRepository,
		repos.EventRepository,
		repos.SoldierRepository,
		deps.FileStorage,
		authz,
		lgr,
	)
	deps.ReportService = appServices.NewReportService(repos.SoldierRepository, repos.UnitRepository, repos.FlagRepository, authz, lgr)

	deps.Seeder = &seed.Seeder{
		Units:        repos.UnitRepository,
		Soldiers:     repos.SoldierRepository,
		Forms:        repos.EventRepository,
		Documents:    repos.DocumentRepository,
		Designations: repos.DesignationRepository,
		Roles:        repos.RoleRepository,
		Hierarchy:    deps.UnitService,
		Logger:       logger.Component("seed"),
	}

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(
		deps.JWTService,
		pkgAuth.NewServiceKeyVerifier(cfg.Auth.ServiceKeyHash),
		authz,
		cfg.Auth.TrustOnBehalfOfHeader,
	)
	deps.WSHandler = websocket.NewHandler(deps.Hub, websocket.NewMessageHandler(deps.NotificationService, lgr), logger.Component("websocket"))

	deps.Controllers = appRoutes.Controllers{
		Unit:         appControllers.NewUnitController(deps.UnitService),
		Soldier:      appControllers.NewSoldierController(deps.SoldierService),
		Request:      appControllers.NewRequestController(deps.RequestService),
		Flag:         appControllers.NewFlagController(deps.FlagService),
		Designation:  appControllers.NewDesignationController(deps.DesignationService),
		Fault:        appControllers.NewFaultController(deps.FaultService),
		ETL:          appControllers.NewETLController(deps.FaultETLService, deps.SoldierETLService, deps.UnitLoaderService),
		Form:         appControllers.NewFormController(deps.FormService),
		Document:     appControllers.NewDocumentController(deps.DocumentService, lgr),
		Notification: appControllers.NewNotificationController(deps.NotificationService),
		Report:       appControllers.NewReportController(deps.ReportService),
	}

	return deps, nil
}

// StartBackground runs the websocket hub until Close
func (d *Dependencies) StartBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	d.stopHub = cancel
	go d.Hub.Run(ctx)
}

// Close releases connections held by the dependencies
func (d *Dependencies) Close() {
	if d.stopHub != nil {
		d.stopHub()
	}
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("Failed to close event publisher")
		}
	}
	if d.SourceDB != nil {
		if err := d.SourceDB.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("Failed to close source database")
		}
	}
	if d.Database != nil {
		d.Database.Close()
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := validation.RegisterWithGin(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(appMiddleware.RequestLogger(logger.Component("http")))
	router.Use(appMiddleware.SetupCORS(cfg.Server.CORSOrigins))

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.WSHandler, deps.AuthMiddleware)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router, nil
}
