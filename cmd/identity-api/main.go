package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-identity/config"
)

type App struct {
	config *config.App
	bunDB  *bun.DB
	repo   identity.RepositoryManager
	ledger *identity.Ledger
	sender identity.NotificationSender
	auther *identity.Auther
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Debug),
		glog.WithName("identity-api"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		lgr.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		lgr.Error("failed to initialize persistence", "error", err)
		os.Exit(1)
	}

	if err := WithIdentity(ctx, app); err != nil {
		lgr.Error("failed to initialize identity services", "error", err)
		os.Exit(1)
	}

	WithHTTPServer(ctx, app)

	lgr.Info("identity-api listening", "address", cfg.Server.Address)

	app.srv.Serve(cfg.Server.Address)

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.config.Storage.DSN)
	if err != nil {
		return err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.RegisterModel((*identity.UserRole)(nil))

	if err := identity.RunMigrations(ctx, sqldb, app.config.Storage.Driver); err != nil {
		return err
	}

	repo := identity.NewRepositoryManager(db)
	repo.MustValidate()

	if err := identity.EnsureDefaultRoles(ctx, repo); err != nil {
		return err
	}

	app.bunDB = db
	app.repo = repo

	return nil
}

func WithIdentity(ctx context.Context, app *App) error {
	app.ledger = identity.NewLedger(app.repo.Users(),
		identity.WithLedgerLogger(app.GetLogger("ledger")),
	)

	app.sender = identity.NewSMTPSender(identity.SMTPConfig{
		Host:     app.config.SMTP.Host,
		Port:     app.config.SMTP.Port,
		Username: app.config.SMTP.Username,
		Password: app.config.SMTP.Password,
		From:     app.config.SMTP.From,
		SSL:      app.config.SMTP.SSL,
	}, identity.WithSenderLogger(app.GetLogger("mailer")))

	provider := identity.NewUserProvider(app.repo.Users(),
		identity.WithProviderLogger(app.GetLogger("provider")),
	)

	auther, err := identity.NewAuthenticator(provider, app.config)
	if err != nil {
		return err
	}

	app.auther = auther.WithLogger(app.GetLogger("auther"))

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	validator := app.auther.TokenService()

	account := srv.Router().Group("/api/account")
	identity.RegisterAccountRoutes(account,
		identity.WithControllerLogger(app.GetLogger("account")),
		identity.WithControllerRepo(app.repo),
		identity.WithControllerLedger(app.ledger),
		identity.WithControllerSender(app.sender),
		identity.WithControllerAuther(app.auther),
	)

	protected := identity.ProtectedRoute(app.config, validator, "")
	profile := srv.Router().Group("/api")
	profile.Use(protected)
	identity.RegisterProfileRoutes(profile,
		identity.WithProfileLogger(app.GetLogger("profile")),
		identity.WithProfileRepo(app.repo),
		identity.WithProfileLedger(app.ledger),
		identity.WithProfileSender(app.sender),
	)

	adminOnly := identity.ProtectedRoute(app.config, validator, identity.RoleAdmin)
	admin := srv.Router().Group("/api/admin")
	admin.Use(adminOnly)
	identity.RegisterAdminRoutes(admin,
		identity.WithAdminLogger(app.GetLogger("admin")),
		identity.WithAdminRepo(app.repo),
	)

	app.srv = srv
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
