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

	_ "github.com/jackc/pgx/v5/stdlib"

	"identra.org/internal/config"
	"identra.org/internal/entitlement"
	"identra.org/internal/federation"
	"identra.org/internal/httpapi"
	"identra.org/internal/identity"
	"identra.org/internal/obs"
	"identra.org/internal/session"
	"identra.org/internal/token"
)

var version = "0.3.1"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var db *sql.DB
	if cfg.PGDSN != "" {
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	codec, err := token.NewCodec(cfg.AuthSecret,
		token.WithIssuer(cfg.Issuer),
		token.WithAccessTTL(cfg.AccessTTL),
		token.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	accounts := identity.NewPGAccountStore(db)
	admins := identity.NewPGAdminStore(db)
	operators := identity.NewPGOperatorStore(db)
	profiles := identity.NewPGProfileStore(db)

	sessions, err := session.NewService(session.NewPGStore(db))
	if err != nil {
		log.Fatalf("sessions: %v", err)
	}
	resolver, err := identity.NewResolver(accounts, admins, operators, profiles)
	if err != nil {
		log.Fatalf("resolver: %v", err)
	}
	directory, err := identity.NewDirectory(accounts, admins, operators, sessions)
	if err != nil {
		log.Fatalf("directory: %v", err)
	}

	box, err := federation.NewSecretBox(cfg.CredentialKey)
	if err != nil {
		log.Fatalf("secret box: %v", err)
	}
	configs := federation.NewPGConfigStore(db)
	registry, err := federation.NewRegistry(configs, box)
	if err != nil {
		log.Fatalf("provider registry: %v", err)
	}
	broker, err := federation.NewBroker(accounts, federation.NewPGLinkStore(db))
	if err != nil {
		log.Fatalf("federation broker: %v", err)
	}

	entStore := entitlement.NewPGStore(db)
	cache := entitlement.NewLRUCache(256, 30*time.Second)
	manager, err := entitlement.NewManager(entStore, cache, accounts, codec, sessions)
	if err != nil {
		log.Fatalf("entitlements: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, httpapi.Deps{
		Codec:        codec,
		Resolver:     resolver,
		Directory:    directory,
		Sessions:     sessions,
		Registry:     registry,
		Broker:       broker,
		Configs:      configs,
		SecretBox:    box,
		Entitlements: manager,
		Services:     entStore,
		FrontendURL:  cfg.FrontendURL,
	})

	handler := httpapi.RequestID(api.Handler())
	handler = httpapi.Logging(handler)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.CORS(handler, cfg.FrontendURL)
	handler = httpapi.RateLimit(handler, cfg.RateLimitBurst, cfg.RateLimitPerSecond)
	handler = httpapi.MaxBodyBytes(handler, 1<<20)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting identra-auth %s on %s", version, srv.Addr)

	// session cleanup in the background
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				if n, err := sessions.PurgeExpired(cleanupCtx); err == nil && n > 0 {
					obs.Log("info", "purged expired sessions", map[string]any{"count": n})
				}
			}
		}
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	cancelCleanup()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
