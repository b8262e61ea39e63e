package app

import (
	"context"
	"fmt"

	"github.com/artfundry/bounty-server/internal/config"
	"github.com/artfundry/bounty-server/internal/db"
	"github.com/artfundry/bounty-server/internal/db/drivers"
	"github.com/artfundry/bounty-server/internal/db/models"
	"github.com/artfundry/bounty-server/internal/db/repository"
	"github.com/artfundry/bounty-server/internal/events"
	"github.com/artfundry/bounty-server/internal/mq"
	"github.com/artfundry/bounty-server/internal/services/attachment"
	"github.com/artfundry/bounty-server/internal/services/bounty"
	"github.com/artfundry/bounty-server/internal/services/buzz"
	"github.com/artfundry/bounty-server/internal/services/filestorage"
	"github.com/artfundry/bounty-server/internal/services/fileuploader"
	"github.com/artfundry/bounty-server/internal/services/moderation"
	"github.com/artfundry/bounty-server/pkg/logger"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type App struct {
	mq           mq.MQ
	db           *bun.DB
	config       *config.Config
	ctx          context.Context
	cancelFunc   context.CancelFunc
	fileuploader *fileuploader.Uploader

	Logger     *zap.Logger
	Ledger     buzz.Ledger
	Moderation *moderation.Service
	Events     *events.Publisher
	Bounties   *bounty.Service

	APIKeyRepository repository.IAPIKeyRepository
	TagRepository    repository.ITagRepository
}

// Option funcs used to initialize the App struct
type OptionFunc func(app *App) error

func WithDB(driver drivers.Driver) OptionFunc {
	return func(app *App) error {
		app.db = driver.GetDB()
		return nil
	}
}

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(app *App) error {
		app.Logger = logger
		return nil
	}
}

func WithMQ() OptionFunc {
	return func(app *App) error {
		queue, err := mq.NewMQ(app.config)
		if err != nil {
			return err
		}
		app.mq = queue
		app.Events = events.NewPublisher(queue, app.Logger)
		return nil
	}
}

func WithDBInitialization() OptionFunc {
	return func(app *App) error {
		dbConn, err := db.NewConnection(app.ctx, app.config)
		if err != nil {
			return err
		}
		app.db = dbConn.GetDB()
		app.db.RegisterModel(models.JoinTables()...)

		// Ensure tables exist
		err = app.db.RunInTx(app.ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, table := range models.Tables() {
				if _, err := tx.NewCreateTable().
					Model(table).
					IfNotExists().
					Exec(ctx); err != nil {
					return fmt.Errorf("failed to create table: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		// Initialize repositories and the ledger
		app.APIKeyRepository = repository.NewAPIKeyRepository(app.db)
		app.TagRepository = repository.NewTagRepository(app.db)
		app.Ledger = buzz.NewBunLedger(app.db)

		// The escrow account has to exist before the first contribution
		return app.Ledger.EnsureAccount(app.ctx, models.EscrowAccountID)
	}
}

func WithFileUploader() OptionFunc {
	return func(app *App) error {
		storage, err := filestorage.NewFileStorage(app.config)
		if err != nil {
			return err
		}
		app.fileuploader = fileuploader.NewFileUploader(storage, 10)
		return nil
	}
}

func WithModeration() OptionFunc {
	return func(app *App) error {
		if app.config.OpenAI == nil || app.config.OpenAI.APIKey == "" {
			return fmt.Errorf("openAI API-key is not set. Cannot enable moderation")
		}

		app.Moderation = moderation.NewService(app.config, app.Logger)
		return nil
	}
}

// WithBountyService assembles the core service from whatever the earlier
// options wired up. Must come after WithDBInitialization.
func WithBountyService() OptionFunc {
	return func(app *App) error {
		if app.db == nil {
			return fmt.Errorf("bounty service requires a database connection")
		}

		app.Bounties = bounty.NewService(bounty.Params{
			DB:          app.db,
			Ledger:      app.Ledger,
			Tags:        app.TagRepository,
			Attachments: attachment.NewService(app.fileuploader, app.Logger),
			Moderation:  app.Moderation,
			Events:      app.Events,
			Logger:      app.Logger,
		})
		return nil
	}
}

func NewApp(config *config.Config, options ...OptionFunc) (*App, error) {
	logger, err := logger.InitLogger(config)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		ctx:        ctx,
		config:     config,
		Logger:     logger,
		cancelFunc: cancel,
	}

	// Apply all options
	for _, opt := range options {
		if err := opt(app); err != nil {
			// Continue even if some options fail
			app.Logger.Error("failed to apply option", zap.Error(err))
		}
	}

	return app, nil
}

func (app *App) Close() {
	app.cancelFunc()

	if app.mq != nil {
		app.mq.Close()
	}
	if app.fileuploader != nil {
		app.fileuploader.Stop()
	}
}

func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) Context() context.Context {
	return app.ctx
}

func (app *App) MQ() mq.MQ {
	return app.mq
}

func (app *App) DB() *bun.DB {
	return app.db
}

func (app *App) Uploader() *fileuploader.Uploader {
	return app.fileuploader
}
