// cmd/auth-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tenauth/internal/admin"
	"tenauth/internal/identity"
	"tenauth/internal/oauth"
	"tenauth/internal/userapi"
	"tenauth/internal/users"
	"tenauth/pkg/config"
	"tenauth/pkg/db"
	"tenauth/pkg/isolation"
	"tenauth/pkg/logger"
	"tenauth/pkg/middleware"
	"tenauth/pkg/tenants"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, "auth-service")
	defer func() { _ = log.Sync() }()

	pool := db.MustConnect(cfg, log)
	rdb := db.MustRedis(cfg, log)

	var tenantStore tenants.Store
	var backend users.Backend
	if pool != nil {
		if err := tenants.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalw("tenant schema", "err", err)
		}
		if err := users.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalw("user schema", "err", err)
		}
		tenantStore = tenants.NewPostgresStore(pool, log)
		backend = users.NewPostgresBackend(pool)
	} else {
		tenantStore = tenants.NewMemoryStore()
		backend = users.NewMemoryBackend()
	}
	if err := tenants.SeedFromEnv(context.Background(), tenantStore, os.Getenv("TENANT_SEED_JSON")); err != nil {
		log.Warnw("tenant seed", "err", err)
	}

	userStore := users.NewStore(backend)
	if err := identity.SeedFromEnv(context.Background(), userStore.Unscoped(), os.Getenv("USER_SEED_JSON")); err != nil {
		log.Warnw("user seed", "err", err)
	}
	ident := identity.NewManager(userStore.Unscoped())
	validator := tenants.NewValidator(tenantStore)
	log.Infow("tenant-scoped kinds", "kinds", isolation.Kinds())

	signer, err := oauth.NewSigner(cfg)
	if err != nil {
		log.Fatalw("signer", "err", err)
	}
	var clients *oauth.ClientRegistry
	if cfg.ClientsFile != "" {
		if clients, err = oauth.LoadClients(cfg.ClientsFile); err != nil {
			log.Fatalw("clients", "err", err)
		}
	} else {
		log.Warn("CLIENTS_FILE not set — no OAuth clients registered")
		clients = oauth.NewClientRegistry()
	}
	var grants oauth.GrantStore
	if rdb != nil {
		grants = oauth.NewRedisGrantStore(rdb)
	} else {
		grants = oauth.NewMemoryGrantStore()
	}
	svc := oauth.NewService(log, cfg, signer, clients, grants, ident)

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(log))
	r.Use(middleware.Tracing("auth-service"))
	r.Use(middleware.TenantValidation(validator, log))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("tenauth authorization server is running"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	svc.Routes(r)
	r.Group(func(gr chi.Router) {
		gr.Use(middleware.BearerAuth(cfg, signer.PublicKeys()))
		gr.Get("/connect/userinfo", svc.HandleUserinfo)
		gr.Post("/connect/userinfo", svc.HandleUserinfo)
	})
	r.Route("/api", func(ar chi.Router) {
		ar.Use(middleware.BearerAuth(cfg, signer.PublicKeys()))
		userapi.New(log, userStore).Routes(ar)
	})
	r.Route("/admin", func(ar chi.Router) {
		ar.Use(middleware.BearerAuth(cfg, signer.PublicKeys()))
		ar.Use(middleware.RequireScope(cfg.Env, "admin"))
		admin.New(log, tenantStore).Routes(ar)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Infow("auth-service listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("auth-service stopped")
}
