package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"lendtrack/internal/core/auth"
	"lendtrack/internal/core/cache"
	"lendtrack/internal/core/config"
	"lendtrack/internal/core/database"
	"lendtrack/internal/core/logger"
	"lendtrack/internal/core/server"
	"lendtrack/internal/domain"
	"lendtrack/internal/notify"
	"lendtrack/internal/repo"
	"lendtrack/internal/service"
	"lendtrack/internal/transport/http/handler"
	"lendtrack/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))

	var log *zap.Logger
	var cleanup func()
	if cfg.Log.File != "" {
		log, cleanup = logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON,
			cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays, cfg.Log.Compress)
	} else {
		log, cleanup = logger.New(cfg.Log.Level, cfg.Log.JSON)
	}
	defer cleanup()

	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(
			&domain.Person{},
			&domain.Operator{},
			&domain.PasswordToken{},
			&domain.Item{},
			&domain.PatrimonyUnit{},
			&domain.Loan{},
			&domain.LoanLine{},
		); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	var rc *cache.Cache
	if cfg.Redis.Addr != "" {
		rc = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}

	jwter := &auth.JWTer{
		Secret:     []byte(cfg.JWT.Secret),
		Issuer:     cfg.JWT.Issuer,
		TTL:        time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
		Inactivity: time.Duration(cfg.JWT.InactivityMin) * time.Minute,
	}

	operators := repo.NewOperatorRepo(db)
	people := repo.NewPersonRepo(db)
	catalog := repo.NewCatalogRepo(db)
	loans := repo.NewLoanRepo(db)

	recalc := service.NewRecalculator(catalog)
	policy := service.NewPolicy(operators, loans, rc)
	notifier := notify.NewResetLinkSender(log, cfg.App.FrontendURL)

	operatorSvc := service.NewOperatorService(db, operators, policy, jwter, notifier, log)
	personSvc := service.NewPersonService(people, policy)
	catalogSvc := service.NewCatalogService(db, catalog, loans, recalc, policy, log)
	lendingSvc := service.NewLendingService(db, loans, catalog, people, recalc, policy, log)

	r := router.NewAPIEngine(log, jwter, cfg.App.FrontendURL, router.Handlers{
		Operator: handler.NewOperatorHandler(operatorSvc, policy),
		Person:   handler.NewPersonHandler(personSvc, policy),
		Catalog:  handler.NewCatalogHandler(catalogSvc, policy),
		Lending:  handler.NewLendingHandler(lendingSvc, policy),
	})

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("lendtrack api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("lendtrack api start FAILED", zap.Error(err))
		}
	}()
	log.Info("lendtrack api started SUCCESS")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("lendtrack api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
