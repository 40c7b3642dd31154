package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/campaign"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/config"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/database"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/handlers"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/middleware"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/routes"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/services"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/auth"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/events"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/logger"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", false)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.LogPretty)
	if envErr != nil {
		log.Debug().Msg("no .env file found")
	}
	ctx := log.WithContext(context.Background())

	log.Info().Str("uri", logger.MaskURI(cfg.MongoURI)).Msg("connecting to MongoDB")
	db, err := database.Connect(ctx, cfg.MongoURI, cfg.DatabaseName())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer database.Disconnect(db)

	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Warn().Err(err).Msg("failed to ensure MongoDB indexes")
	} else {
		log.Info().Msg("MongoDB indexes ensured")
	}

	var (
		redisClient *redis.Client
		cache       services.Cache = services.NopCache{}
	)
	if cfg.RedisEnabled() {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURI)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, continuing without cache and rate limiting")
		} else {
			defer redisClient.Close()
			cache = services.NewRedisCache(redisClient)
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSEnabled() {
		nc, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, domain events disabled")
		} else {
			defer nc.Close()
			publisher = nc
			log.Info().Msg("publishing domain events to NATS")
		}
	}

	var images services.ImageStore
	if cfg.CloudinaryEnabled() {
		images, err = services.NewCloudinaryImageStore(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Cloudinary")
		}
		log.Info().Msg("property images stored on Cloudinary")
	} else {
		images, err = services.NewLocalImageStore(cfg.UploadsDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.UploadsDir).Msg("failed to prepare uploads directory")
		}
		log.Info().Str("dir", cfg.UploadsDir).Msg("property images stored on local disk")
	}

	confirmed := services.NewCachedConfirmedClient(
		services.NewConfirmedClient(cfg.Confirmed.BaseURL, cfg.Confirmed.RegisterTimeout, cfg.Confirmed.ProfileTimeout),
		cache,
		cfg.Confirmed.CacheTTL,
	)

	h := &handlers.Handler{
		Users:          services.NewUserStore(db),
		Properties:     services.NewPropertyStore(db),
		Prospects:      services.NewProspectStore(db),
		Images:         images,
		Confirmed:      confirmed,
		Tokens:         auth.NewIssuer(cfg.JWTSecret, cfg.JWTAudience, cfg.JWTTTL),
		Events:         publisher,
		Dispatcher:     campaign.NewDispatcher(cfg.CampaignDelay),
		CreditTimeout:  cfg.Confirmed.CreditTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	realIP, err := middleware.TrustedRealIP(cfg.TrustedProxies)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid TRUSTED_PROXIES")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(realIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: security headers, host check, per-IP and login limits.
	// Elsewhere: the Redis window limiter when Redis is up.
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		log.Info().Str("host", cfg.AllowedHost).Msg("production security enabled")
	} else if redisClient != nil {
		r.Use(middleware.RateLimit(redisClient))
	}

	uploadsDir := cfg.UploadsDir
	if cfg.CloudinaryEnabled() {
		uploadsDir = ""
	}
	routes.SetupRoutes(r, h, uploadsDir)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("SmartAqar API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

