package server

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"policedir/internal/domain/auth"
	"policedir/internal/domain/directory"
	"policedir/internal/domain/notifications"
	"policedir/internal/domain/otp"
	"policedir/internal/domain/registration"
	"policedir/internal/domain/reports"
	"policedir/internal/platform/config"
	"policedir/internal/platform/db"
	"policedir/internal/platform/email"
	"policedir/internal/platform/identity"
	"policedir/internal/platform/jobs"
	"policedir/internal/platform/legacy"
	"policedir/internal/platform/push"
	"policedir/internal/platform/storage"
	"policedir/internal/session"
	authhandler "policedir/internal/transport/http/handlers/auth"
	directoryhandler "policedir/internal/transport/http/handlers/directory"
	galleryhandler "policedir/internal/transport/http/handlers/gallery"
	notificationshandler "policedir/internal/transport/http/handlers/notifications"
	registrationhandler "policedir/internal/transport/http/handlers/registration"
	reportshandler "policedir/internal/transport/http/handlers/reports"
	"policedir/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	cache := directory.NewCache()
	remote := directory.NewRemote(pool)
	objects := storage.NewFS(cfg.DataDir, cfg.MediaBaseURL)

	// legacy.New returns nil when the bridge URL is unset; keep the interfaces
	// nil too so the directory service skips mirroring and the gallery
	// endpoints report unavailable.
	bridge := legacy.New(cfg.LegacyBridgeURL)
	var mirror directory.LegacyMirror
	var gallery galleryhandler.Bridge
	if bridge != nil {
		mirror = bridge
		gallery = bridge
	}

	dirSvc := directory.NewService(cache, remote, objects, mirror)

	sess, err := session.Open(cfg.SessionFile)
	if err != nil {
		log.Fatalf("session open failed: %v", err)
	}

	otpSvc := otp.NewService(otp.NewStore(pool), email.New(cfg), cfg.EmailFrom)
	authSvc := auth.NewService(cache, remote, dirSvc, sess, otpSvc, identity.New(cfg.IdentitySecret))

	notifySvc := notifications.NewService(remote, cache, notifications.NewStore(pool), push.New(cfg))
	regSvc := registration.NewService(remote, cache, notifySvc)
	reportSvc := reports.NewService(dirSvc)

	// Restore the persisted device session before serving; a dangling session
	// is cleared here rather than surfacing on first request.
	if emp, err := authSvc.RestoreSession(ctx); err != nil {
		slog.Warn("session restore failed", "err", err)
	} else if emp != nil {
		slog.Info("session restored", "email", emp.Email)
	}

	jobSvc := jobs.New(pool, cfg, dirSvc, otpSvc)
	jobSvc.Start(ctx)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	// Auth before Logger so request logs carry the caller's KGID.
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.Logger)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authSvc, sess, cfg.JWTSecret).RegisterRoutes(r)
		directoryhandler.NewHandler(dirSvc).RegisterRoutes(r)
		registrationhandler.NewHandler(regSvc, remote).RegisterRoutes(r)
		notificationshandler.NewHandler(notifySvc).RegisterRoutes(r)
		reportshandler.NewHandler(reportSvc).RegisterRoutes(r)
		galleryhandler.NewHandler(gallery).RegisterRoutes(r)
	})

	// Stored photos are served straight off disk under the media base URL.
	router.Mount(cfg.MediaBaseURL, http.StripPrefix(cfg.MediaBaseURL, http.FileServer(http.Dir(cfg.DataDir))))

	log.Printf("directory server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
