package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"review_proxy/internal/adapters/cloudinary"
	"review_proxy/internal/adapters/genderize"
	server "review_proxy/internal/adapters/http_server"
	"review_proxy/internal/adapters/judgeme"
	"review_proxy/internal/adapters/memory"
	"review_proxy/internal/adapters/observability"
	redisad "review_proxy/internal/adapters/redis"
	"review_proxy/internal/app"
	"review_proxy/internal/domain"
	"review_proxy/internal/shared"
	"review_proxy/internal/storage/file"
	fsstore "review_proxy/internal/storage/firestore"
	mysqlrepo "review_proxy/internal/storage/mysql"
	"review_proxy/internal/storage/noop"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		rdb = redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rdb.Close()
	}

	store, closeStore, err := openStore(ctx, cfg, rdb)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("document store")
	}
	defer closeStore()

	// judge.me
	jm, err := judgeme.New(cfg.JudgeMeBase, cfg.JudgeMeToken, cfg.ShopDomain, cfg.JudgeMeRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Judge.me client")
	}
	var source domain.ReviewSource = jm
	var cached *app.CachedReviewSource
	if cfg.ReviewsCacheTTL > 0 && rdb != nil {
		cached = app.NewCachedReviewSource(jm, redisad.NewCache(rdb, "reviewproxy:cache"), cfg.ReviewsCacheTTL)
		source = cached
		log.Info().Dur("ttl", cfg.ReviewsCacheTTL).Msg("review listing cache enabled")
	}

	// media host is optional; without it pictures are dropped
	var uploader domain.ImageUploader
	if up, err := cloudinary.New(cfg.CloudinaryCloud, cfg.CloudinaryKey, cfg.CloudinarySecret, cfg.CloudinaryFolder); err != nil {
		log.Warn().Err(err).Msg("image uploads disabled")
	} else {
		uploader = up
	}

	avatars := app.NewAvatarBuilder(
		genderize.New(cfg.GenderizeBase, cfg.GenderizeTimeout),
		memory.NewGenderCache(),
		nil,
	)
	pins := app.NewPinService(store)
	resolve := app.ResolveChain(
		app.FromFetchedReviews(source),
		app.FromProductLookup(jm),
		app.FromOverrides(cfg.ProductIDs),
	)
	submit := app.NewSubmissionService(uploader, jm, resolve, cfg.ShopDomain)
	if cached != nil {
		submit.OnAccepted(cached.Invalidate)
	}

	// http
	srv := server.New(cfg.RequestTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Reviews: app.NewReviewService(source, pins, avatars),
		Pins:    pins,
		Submit:  submit,
		Auth:    app.NewAuthService(store, cfg.JWTSecret, cfg.AdminUsername, cfg.AdminPassword),
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

// openStore picks the document store. "auto" prefers Firestore, then a writable
// DATA_DIR, then the no-op store.
func openStore(ctx context.Context, cfg shared.Config, rdb *goredis.Client) (domain.DocumentStore, func(), error) {
	nop := func() {}
	backend := cfg.StorageBackend

	if backend == "auto" {
		switch {
		case cfg.FirebaseProject != "":
			backend = "firestore"
		case file.Writable(cfg.DataDir) == nil:
			backend = "file"
		default:
			backend = "none"
		}
	}

	switch backend {
	case "firestore":
		creds, err := cfg.FirebaseCredentialsJSON()
		if err != nil {
			return nil, nop, err
		}
		s, err := fsstore.New(ctx, cfg.FirebaseProject, creds, cfg.FirestoreCollection)
		if err != nil {
			if cfg.StorageBackend != "auto" {
				return nil, nop, err
			}
			log.Warn().Err(err).Msg("firestore unavailable; falling back to local storage")
			return fallbackStore(cfg), nop, nil
		}
		log.Info().Str("project", cfg.FirebaseProject).Msg("using firestore document store")
		return s, func() { _ = s.Close() }, nil

	case "redis":
		if rdb == nil {
			return nil, nop, errors.New("STORAGE_BACKEND=redis requires REDIS_ADDR")
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis document store")
		return redisad.NewStore(rdb, "reviewproxy:doc:"), nop, nil

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nop, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nop, fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Msg("using mysql document store")
		return mysqlrepo.New(db), func() { _ = db.Close() }, nil

	case "file":
		if err := file.Writable(cfg.DataDir); err != nil {
			return nil, nop, fmt.Errorf("DATA_DIR %s: %w", cfg.DataDir, err)
		}
		log.Info().Str("dir", cfg.DataDir).Msg("using file document store")
		return file.New(cfg.DataDir), nop, nil

	case "none":
		log.Warn().Msg("no durable storage; pins and credentials will not persist")
		return noop.Store{}, nop, nil
	}
	return nil, nop, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
}

func fallbackStore(cfg shared.Config) domain.DocumentStore {
	if file.Writable(cfg.DataDir) == nil {
		return file.New(cfg.DataDir)
	}
	return noop.Store{}
}
