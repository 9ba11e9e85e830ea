package main

import (
	"context"
	"time"

	"github.com/cppla/newspaper/config"
	"github.com/cppla/newspaper/metrics"
	"github.com/cppla/newspaper/models"
	"github.com/cppla/newspaper/routes"
	"github.com/cppla/newspaper/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.All()...)

	rc, err := utils.NewRedis(context.Background(), cfg)
	if err != nil {
		utils.Sugar.Warnf("redis unavailable, using in-memory sessions: %v", err)
		rc = nil
	}
	if rc == nil {
		utils.Sugar.Info("sessions are kept in memory; run a single instance")
	} else {
		defer rc.Close()
	}
	store := utils.NewSessionStore(rc)
	throttle := utils.NewSignupThrottle(rc,
		time.Duration(cfg.RegisterAttemptCooldownSec)*time.Second,
		cfg.RegisterMaxPerIPPerDay,
	)

	var captcha *utils.Captcha
	if cfg.RegisterCaptchaEnabled {
		captcha = utils.NewCaptcha(rc, 10*time.Minute)
	}

	r := routes.SetupRouter(routes.Deps{
		Config:   cfg,
		DB:       db,
		Sessions: store,
		Throttle: throttle,
		Captcha:  captcha,
	})

	if sqlDB, err := db.DB(); err == nil {
		collector := metrics.NewStatsCollector(sqlDB, store)
		collector.Start(15 * time.Second)
		defer collector.Stop()
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
