package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"paysettle/config"
	"paysettle/internal/database"
	"paysettle/internal/repository"
	"paysettle/internal/router"
	"paysettle/internal/service"
	"paysettle/internal/ws"
	"paysettle/pkg/monnify"
	"paysettle/pkg/queue"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			newDB,
			repository.NewSettingRepository,
			newGatewayConfig,
			newGatewayClient,
			newHookDispatcher,
			ws.NewStatusHub,
			newEngine,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(startServer),
	)
	app.Run()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newDB(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	logger.Info("[DB] connected", zap.String("driver", cfg.Database.Driver))
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return database.Close(db)
		},
	})
	return db, nil
}

func newGatewayConfig(cfg *config.Config, settings *repository.SettingRepository, logger *zap.Logger) monnify.Config {
	ctx := context.Background()
	if err := service.SeedGatewaySettings(ctx, settings, cfg.Monnify); err != nil {
		logger.Warn("[Settings] seed gateway settings failed", zap.Error(err))
	}
	gw := service.LoadGatewaySettings(ctx, settings, cfg.Monnify, logger)
	if gw.SecretKey == "" {
		logger.Warn("[Monnify] secret key not configured, every webhook will be rejected")
	}
	logger.Info("[Monnify] gateway configured", zap.String("mode", gw.Mode), zap.String("base_url", gw.BaseURL))
	return gw
}

func newGatewayClient(gw monnify.Config, logger *zap.Logger) *monnify.Client {
	return monnify.NewClient(gw, logger)
}

func newHookDispatcher(cfg *config.Config, logger *zap.Logger) (*service.HookDispatcher, error) {
	d := service.NewHookDispatcher(logger)
	if cfg.Queue.SQSQueueURL == "" {
		logger.Info("[Hooks] no queue configured, hooks are logged only")
		return d, service.RegisterDefaultHooks(d, nil, logger)
	}
	pub, err := queue.NewSQSPublisher(context.Background(), queue.Options{
		Region:    cfg.Queue.Region,
		AccessKey: cfg.Queue.AccessKey,
		Secret:    cfg.Queue.Secret,
		QueueURL:  cfg.Queue.SQSQueueURL,
	}, logger)
	if err != nil {
		return nil, err
	}
	return d, service.RegisterDefaultHooks(d, pub, logger)
}

func newEngine(cfg *config.Config, logger *zap.Logger, db *gorm.DB, client *monnify.Client, hooks *service.HookDispatcher, hub *ws.StatusHub) *gin.Engine {
	return router.Setup(cfg, logger, db, client, hooks, hub)
}

func startServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine, logger *zap.Logger) {
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("[Server] listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("[Server] serve failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("[Server] shutting down")
			return srv.Shutdown(ctx)
		},
	})
}
