package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/anshulsingh8326/FusionDash/api"
	"github.com/anshulsingh8326/FusionDash/board"
	"github.com/anshulsingh8326/FusionDash/catalog"
	"github.com/anshulsingh8326/FusionDash/status"
	"github.com/anshulsingh8326/FusionDash/storage"
	"github.com/anshulsingh8326/FusionDash/widget"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	store := storage.New(redis.NewClient(redisOpts))

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		log.Fatalf("redis: %v", err)
	}

	logger := log.New()

	var discoverer catalog.Discoverer
	var inventory *catalog.Inventory
	if path := os.Getenv("INVENTORY_FILE"); path != "" {
		inventory = catalog.NewInventory(path)
		discoverer = inventory
	}
	cat := catalog.New(store, discoverer, logger)
	if err := cat.Rebuild(ctx); err != nil {
		log.Fatalf("catalog: %v", err)
	}

	boards := board.NewStore(store, logger)
	if err := boards.Load(ctx); err != nil {
		log.Fatalf("boards: %v", err)
	}
	if boards.Seeded() {
		// First run against an empty store: fold the legacy pinned flag into
		// explicit placements on the default board.
		var pinned []string
		for _, svc := range cat.Services() {
			if svc.Pinned {
				pinned = append(pinned, svc.ID)
			}
		}
		if err := boards.AdoptPinned(ctx, pinned); err != nil {
			log.Fatalf("adopt pinned services: %v", err)
		}
	}

	probeTimeout := durationEnv("PROBE_TIMEOUT", 2*time.Second)
	pollInterval := durationEnv("POLL_INTERVAL", 60*time.Second)
	workers := 8
	if v := os.Getenv("STATUS_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("invalid STATUS_WORKERS: %v", v)
		}
		workers = n
	}

	tracker := status.NewTracker()
	prober := status.NewProber(probeTimeout)
	poller := status.NewPoller(tracker, prober, cat, pollInterval, workers, logger)
	poller.Start()
	defer poller.Stop()

	if inventory != nil {
		watcher, err := catalog.NewWatcher(cat, inventory.Path(), logger)
		if err != nil {
			log.Fatalf("inventory watcher: %v", err)
		}
		watcher.Start(ctx)
		defer watcher.Stop()
	}

	arr := widget.NewArrQueue(probeTimeout)
	widgets := widget.NewRegistry(logger)
	widgets.Register(widget.TypeArrQueue, arr)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(echoprometheus.NewMiddleware("fusiondash"))
	e.GET("/metrics", echoprometheus.NewHandler())

	if staticDir := os.Getenv("STATIC_DIR"); staticDir != "" {
		e.Static("/", staticDir)
	}

	api.Register(e, api.Deps{
		Store:   store,
		Catalog: cat,
		Boards:  boards,
		Tracker: tracker,
		Prober:  prober,
		Poller:  poller,
		Widgets: widgets,
		Arr:     arr,
		Log:     logger,
	})

	listenAddr := ":8080"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		listenAddr = v
	} else if v := os.Getenv("PORT"); v != "" {
		listenAddr = ":" + v
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("shutdown")
		}
	}()

	if err := e.Start(listenAddr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server: %v", err)
	}
	logger.Info("server stopped")
}

func durationEnv(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Fatalf("invalid %s: %v", name, v)
	}
	return d
}
