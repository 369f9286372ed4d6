package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beybuilmek.com/internal/auth"
	"beybuilmek.com/internal/config"
	"beybuilmek.com/internal/httpapi"
	"beybuilmek.com/internal/obs"
	"beybuilmek.com/internal/order"
	"beybuilmek.com/internal/payment"
	"beybuilmek.com/internal/store/pg"
	"beybuilmek.com/internal/user"
)

var version = "1.2.0"

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()

	var (
		db        *sql.DB
		userStore user.Store
		orders    order.Store
		sessions  payment.SessionStore
		events    payment.EventStore
	)
	if cfg.PostgresDSN != "" {
		db, err = pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		userStore = user.NewPGStore(db)
		orders = pg.NewOrderStore(db)
		sessions = pg.NewSessionStore(db)
		events = pg.NewEventStore(db)
	} else {
		if cfg.Environment == config.EnvProduction {
			log.Fatal("SHOP_PG_DSN is required in production")
		}
		log.Println("no SHOP_PG_DSN set, using in-memory stores")
		userStore = user.NewInMemory()
		orders = order.NewInMemory()
		sessions = payment.NewInMemorySessions()
		events = payment.NewInMemoryEvents()
	}

	issuer, err := auth.NewIssuer(cfg.TokenSecret, cfg.TokenLifetime)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	verifier, err := payment.NewVerifier(cfg.WebhookSecret)
	if err != nil {
		log.Fatalf("webhook: %v", err)
	}

	var gateway payment.Gateway
	if cfg.GatewayURL != "" {
		gateway = payment.NewClient(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)
	} else {
		// Development only; FromEnv refuses this combination in production.
		log.Println("no SHOP_GATEWAY_URL set, using stub payment gateway")
		gateway = payment.NewStubGateway()
	}

	api := httpapi.New(httpapi.Options{
		Users:  user.NewService(userStore),
		Issuer: issuer,
		Cookies: auth.CookiePolicy{
			Name:     cfg.CookieName,
			Secure:   cfg.SecureCookies(),
			SameSite: cfg.CookieSameSite,
		},
		Orders:      orders,
		Checkout:    payment.NewInitiator(orders, sessions, gateway, cfg.BaseURL, cfg.GatewayTimeout),
		Webhooks:    payment.NewReconciler(verifier, events, sessions, orders),
		ReadyProbe:  httpapi.ReadyProbe{DB: db},
		Version:     version,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting shop-api %s on %s (%s)", version, srv.Addr, cfg.Environment)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
