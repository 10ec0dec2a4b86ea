package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/arityo/merchant-bridge/internal"
	"github.com/arityo/merchant-bridge/internal/bridge"
	"github.com/arityo/merchant-bridge/internal/identity"
	identityPostgres "github.com/arityo/merchant-bridge/internal/identity/postgres"
	"github.com/arityo/merchant-bridge/internal/invite"
	merchantPostgres "github.com/arityo/merchant-bridge/internal/merchant/postgres"
	"github.com/arityo/merchant-bridge/internal/permission"
	permissionPostgres "github.com/arityo/merchant-bridge/internal/permission/postgres"
	"github.com/arityo/merchant-bridge/internal/square"
	"github.com/arityo/merchant-bridge/internal/team"
	teamPostgres "github.com/arityo/merchant-bridge/internal/team/postgres"
	"github.com/arityo/merchant-bridge/internal/transport/rest"
	"github.com/arityo/merchant-bridge/internal/transport/swagger"
	"github.com/arityo/merchant-bridge/pkg/logger"
)

const openAPIPath = "./api/openapi.yml"

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	appLogger := logger.LoggerWrapper()

	if err := swagger.ValidateDocument(context.Background(), openAPIPath); err != nil {
		return nil, err
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	// Repositories
	userRepo := identityPostgres.NewUserRepository(gormDB)
	levelRepo := permissionPostgres.NewLevelRepository(gormDB)
	memberRepo := teamPostgres.NewMemberRepository(gormDB)
	linkRepo := merchantPostgres.NewLinkRepository(gormDB)

	// Identity provider
	tokenGen := identity.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	identityService := identity.NewService(userRepo, tokenGen, config.Security.BCryptCost, appLogger)
	identityHandler := identity.NewHandler(identityService)

	// Commerce provider client
	squareClient := square.NewClient(square.Config{
		BaseURL:       config.Square.APIBaseURL(),
		ApplicationID: config.Square.ApplicationID,
		Secret:        config.Square.Secret,
		Scopes:        config.Square.Scopes,
	}, appLogger)

	// Permission levels
	levelService := permission.NewService(levelRepo, appLogger)
	levelHandler := permission.NewHandler(levelService)

	// Team directory
	teamService := team.NewService(memberRepo, levelRepo, squareClient, appLogger)
	teamHandler := team.NewHandler(teamService)

	// OAuth bridge, with fire-and-forget directory syncs
	bridgeService := bridge.NewService(squareClient, identityService, linkRepo, config.Square.RedirectURI, appLogger)
	bridgeService.RegisterSyncer(bridge.SyncerFunc{
		SyncerName: "team-members",
		Fn:         teamService.SyncTeamMembers,
	})
	bridgeService.RegisterSyncer(bridge.SyncerFunc{
		SyncerName: "customers",
		Fn: func(ctx context.Context, merchantID, accessToken string) error {
			customers, err := squareClient.ListCustomers(ctx, accessToken)
			if err != nil {
				return err
			}
			appLogger.Info("customer directory fetched", "merchant_id", merchantID, "customer_count", len(customers))
			return nil
		},
	})
	bridgeHandler := bridge.NewHandler(bridgeService)

	// Invite issuer
	inviteService := invite.NewService(identityService, teamService, levelRepo, appLogger)
	inviteHandler := invite.NewHandler(inviteService)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, bridgeHandler, identityHandler, inviteHandler, teamHandler, levelHandler, appLogger)

	return &Dependencies{
		Config: config,
		Logger: appLogger,
		DB:     db,
		Router: router,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm wraps the existing connection pool. TranslateError turns driver
// unique-violation errors into gorm.ErrDuplicatedKey, which the identity
// service relies on for the email-exists path.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormPostgres.New(gormPostgres.Config{
		Conn: db.DB,
	}), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
	})
}
