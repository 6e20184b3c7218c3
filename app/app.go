package app

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"gso_supply_tracker/config"
	"gso_supply_tracker/db"
	"gso_supply_tracker/session"
)

// Shorthand for handlers.
type Ctx = gin.Context
type H = gin.H

// App aggregates the process-wide dependencies.
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Config Config

	appSess *session.AppSessionStore
}

type Config struct {
	RedisAddr      string
	RedisPwd       string
	WebOrigin      string
	SessionTTL     time.Duration
	DueSoonDays    int
	ReminderPeriod time.Duration
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }

func MustNew() *App {
	cfg := loadConfig()

	dbConn := db.ConnectDB()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	r := gin.Default()
	useCORS(r, cfg.WebOrigin)

	return &App{
		Router: r, DB: dbConn, RDB: rdb, Config: cfg,
		appSess: session.NewAppSessionStore(rdb, cfg.SessionTTL),
	}
}

func (a *App) Close() { _ = a.RDB.Close() }

func loadConfig() Config {
	ttl := 24 * time.Hour
	if d, err := time.ParseDuration(config.Get("SESSION_TTL_SECONDS", "86400") + "s"); err == nil {
		ttl = d
	}
	dueSoon := 2
	if n, err := strconv.Atoi(config.Get("DUE_SOON_DAYS", "2")); err == nil && n > 0 {
		dueSoon = n
	}
	period := 1 * time.Hour
	if d, err := time.ParseDuration(config.Get("REMINDER_PERIOD", "1h")); err == nil {
		period = d
	}
	return Config{
		RedisAddr:      config.Get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:       config.Get("REDIS_PASSWORD", ""),
		WebOrigin:      config.Get("WEB_ORIGIN", "http://localhost:5173"),
		SessionTTL:     ttl,
		DueSoonDays:    dueSoon,
		ReminderPeriod: period,
	}
}

func (c Config) SecureCookies() bool {
	return strings.HasPrefix(c.WebOrigin, "https://")
}
