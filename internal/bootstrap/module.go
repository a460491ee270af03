package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"formledger/internal/bootstrap/config"
	"formledger/internal/bootstrap/database"
	"formledger/internal/bootstrap/logging"
	"formledger/internal/domain/submission"
	"formledger/internal/errs"
	"formledger/internal/infrastructure/auth"
	cacheinfra "formledger/internal/infrastructure/cache"
	"formledger/internal/infrastructure/fieldprofile"
	"formledger/internal/infrastructure/metrics"
	sqliterepo "formledger/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "formledger/internal/infrastructure/persistence/sqlite/uow"
	"formledger/internal/ports"
	"formledger/internal/usecase/capture"
	"formledger/internal/usecase/export"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewSubmissionRepository,
			fx.As(new(ports.SubmissionRepository)),
		),
	),
	fx.Provide(func(r ports.SubmissionRepository) ports.SubmissionReadRepository { return r }),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(metrics.New),
	fx.Provide(func(r *metrics.Recorder) ports.Metrics { return r }),
	fx.Provide(provideFieldProfile),
	fx.Provide(func(s *fieldprofile.Store) ports.FieldProfile { return s }),
	fx.Provide(provideIssuer),
	fx.Provide(provideCaptureService),
	fx.Provide(provideExportService),
	fx.Provide(provideServices),
)

// Services is everything a command may need, resolved once per run.
type Services struct {
	App     *App
	Capture *capture.Service
	Export  *export.Service
	Issuer  *auth.Issuer
	Metrics *metrics.Recorder
	Profile *fieldprofile.Store
}

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(lc fx.Lifecycle, cfg config.Config, db *gorm.DB) *App {
	app := &App{
		Config: cfg,
		DB:     db,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.Database.AutoMigrate {
				return app.InitSchema(ctx)
			}
			// init-db itself runs with the schema absent, so only warn.
			if err := app.CheckSchema(ctx); err != nil {
				logging.Warn(ctx, "database schema check failed", slog.Any("err", errs.Loggable(err)))
			}
			return nil
		},
	})
	return app
}

func provideFieldProfile(cfg config.Config) (*fieldprofile.Store, error) {
	return fieldprofile.NewStore(cfg.Capture.ProfileFile)
}

func provideIssuer(cfg config.Config) *auth.Issuer {
	return auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.NonceTTL)
}

func provideCaptureService(cfg config.Config, repo ports.SubmissionRepository, uow ports.UnitOfWork, cache ports.Cache, m ports.Metrics) *capture.Service {
	return capture.NewService(repo, uow, cache, capture.Options{
		Rules: submission.Rules{
			ReservedPrefixes: cfg.Capture.ReservedPrefixes,
			IgnoredFields:    cfg.Capture.IgnoredFields,
			DefaultFormTitle: cfg.Capture.DefaultFormTitle,
		},
		DedupTTL: cfg.Capture.DedupTTL,
		Metrics:  m,
	})
}

func provideExportService(cfg config.Config, repo ports.SubmissionReadRepository, profile ports.FieldProfile, m ports.Metrics) *export.Service {
	return export.NewService(repo, export.Options{
		Location:       cfg.Export.Location(),
		FilenamePrefix: cfg.Export.FilenamePrefix,
		Profile:        profile,
		Metrics:        m,
	})
}

func provideServices(
	app *App,
	captureSvc *capture.Service,
	exportSvc *export.Service,
	issuer *auth.Issuer,
	recorder *metrics.Recorder,
	profile *fieldprofile.Store,
) *Services {
	return &Services{
		App:     app,
		Capture: captureSvc,
		Export:  exportSvc,
		Issuer:  issuer,
		Metrics: recorder,
		Profile: profile,
	}
}
