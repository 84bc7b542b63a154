package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"kioskhub/internal/auth"
	"kioskhub/internal/config"
	"kioskhub/internal/httpserver"
	"kioskhub/internal/logger"
	"kioskhub/internal/mailer"
	"kioskhub/internal/models"
	"kioskhub/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg := logger.New(cfg.Logging.Level)
	defer lg.Sync()

	if cfg.Database.URL == "" {
		lg.Fatalw("database.url is empty")
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.URL), &gorm.Config{})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(
		&models.Franchise{}, &models.Gym{}, &models.User{}, &models.Invitation{},
		&models.VoiceSession{}, &models.ConversationMessage{}, &models.DemoLead{},
		&models.RateLimitRecord{}, &models.AuditLog{}, &models.Session{},
	); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}
	seedSuperAdmin(db, lg)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		lg.Fatalw("redis connect failed", "error", err)
	}
	limiter := ratelimit.New(rdb, &ratelimit.GormStore{DB: db}, lg, cfg.Demo.DailyLimit)
	m := mailer.New(cfg.Email.ResendAPIKey, cfg.Email.FromAddress, cfg.App.BaseURL, lg)

	router := httpserver.NewRouter(db, limiter, m, lg)
	lg.Infow("listening", "port", cfg.App.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.App.HTTPPort, router); err != nil {
		log.Fatal(err)
	}
}

func seedSuperAdmin(db *gorm.DB, lg *zap.SugaredLogger) {
	var count int64
	db.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&count)
	if count > 0 {
		return
	}
	hash, _ := auth.HashPassword("changeme")
	u := models.User{
		Email:        "admin@kioskhub.local",
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&u).Error; err != nil {
		lg.Warnw("super admin seed failed", "error", err)
		return
	}
	lg.Infow("seeded super admin", "email", u.Email)
}
