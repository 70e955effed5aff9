package main // Entry point package

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/game-station-rental/internal/catalog"
	"github.com/iliyamo/game-station-rental/internal/config"
	"github.com/iliyamo/game-station-rental/internal/engine"
	"github.com/iliyamo/game-station-rental/internal/events"
	"github.com/iliyamo/game-station-rental/internal/handler"
	"github.com/iliyamo/game-station-rental/internal/middleware"
	"github.com/iliyamo/game-station-rental/internal/router"
	"github.com/iliyamo/game-station-rental/internal/store"
)

func main() {
	cfg := config.Load()

	// Device inventory: the built-in four stations unless DEVICES_FILE
	// points at a custom JSON inventory.
	cat := catalog.Default()
	if cfg.DevicesFile != "" {
		loaded, err := catalog.FromFile(cfg.DevicesFile)
		if err != nil {
			log.Printf("devices file %s unusable, using built-in catalog: %v", cfg.DevicesFile, err)
		} else {
			cat = loaded
		}
	}

	// Redis is the persistence store; a nil client means the cashier runs
	// memory-only and rate limiting is disabled.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; running without persistence and rate limiting")
	}
	st := store.NewRedisStore(rdb, cfg.Tiers)

	var publish events.PublishFunc
	if cfg.EventsEnabled {
		publish = events.Publish
		go func() {
			if err := events.StartSessionConsumer(); err != nil {
				log.Printf("session consumer stopped: %v", err)
			}
		}()
	}

	eng := engine.New(cat, engine.SystemClock{}, st, publish)
	eng.Restore(st.Load(context.Background()))

	clock := engine.NewExpiryClock(eng, cfg.TickPeriod)
	clock.Start()

	e := echo.New()
	e.HideBanner = true
	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	router.RegisterRoutes(e, handler.NewBookingHandler(eng), rateLimit)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, devices=%d)", addr, cfg.Env, len(cat.Devices()))

	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Shut down in order: stop accepting commands, then stop the expiry
	// clock so no tick runs against a half-closed process.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	clock.Stop()
	log.Printf("shut down cleanly")
}
