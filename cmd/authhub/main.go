package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"

	"github.com/amirhosseinghanipour/authhub/internal/application/admin"
	"github.com/amirhosseinghanipour/authhub/internal/application/auth"
	"github.com/amirhosseinghanipour/authhub/internal/application/authz"
	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
	"github.com/amirhosseinghanipour/authhub/internal/application/project"
	"github.com/amirhosseinghanipour/authhub/internal/application/verification"
	"github.com/amirhosseinghanipour/authhub/internal/config"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	infraauth "github.com/amirhosseinghanipour/authhub/internal/infrastructure/auth"
	httprouter "github.com/amirhosseinghanipour/authhub/internal/infrastructure/http"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/http/handlers"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/http/middleware"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/lockout"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/persistence/db"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/persistence/memory"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/persistence/postgres"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/queue"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/security"
)

type globalUserStore interface {
	ports.GlobalUserRepository
	ports.VerificationStore
}

type projectUserStore interface {
	ports.ProjectUserRepository
	ports.VerificationStore
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()

	var (
		sqlDB        *sql.DB
		globalUsers  globalUserStore
		projectUsers projectUserStore
		projects     ports.ProjectRepository
	)
	if cfg.Database.URL != "" {
		sqlDB, err = db.Open(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to database")
		}
		defer sqlDB.Close()
		if err := db.Migrate(ctx, sqlDB); err != nil {
			log.Fatal().Err(err).Msg("apply migrations")
		}
		globalUsers = postgres.NewGlobalUserRepository(sqlDB)
		projectUsers = postgres.NewProjectUserRepository(sqlDB)
		projects = postgres.NewProjectRepository(sqlDB)
	} else {
		log.Warn().Msg("DATABASE_URL not set; using the in-memory store, data is lost on restart")
		store := memory.NewStore()
		globalUsers = store.GlobalUsers()
		projectUsers = store.ProjectUsers()
		projects = store.Projects()
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse REDIS_URL")
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed; continuing without redis")
			redisClient = nil
		}
	}

	var taskEnqueuer ports.TaskEnqueuer
	var asynqWorker *queue.Worker
	if redisClient != nil {
		asynqOpt, err := asynq.ParseRedisURI(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse REDIS_URL for asynq")
		}
		asynqEnq := queue.NewAsynqEnqueuer(asynqOpt, log)
		defer asynqEnq.Close()
		taskEnqueuer = asynqEnq
		asynqWorker = queue.NewWorker(asynqOpt, log)
		go func() {
			if err := asynqWorker.Run(); err != nil {
				log.Warn().Err(err).Msg("asynq worker stopped")
			}
		}()
	} else {
		taskEnqueuer = queue.NewInlineEnqueuer(log)
	}

	hasher := security.NewBoundedHasher(security.NewArgon2Hasher(security.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
	}), cfg.Argon2.Concurrency)

	var issuer *infraauth.TokenIssuer
	if cfg.JWT.PrivateKeyPath != "" {
		pemBytes, err := cfg.LoadJWTPrivateKey()
		if err != nil {
			log.Fatal().Err(err).Msg("load JWT private key")
		}
		privateKey, err := infraauth.LoadRSAPrivateKeyFromPEM(pemBytes)
		if err != nil {
			log.Fatal().Err(err).Msg("parse JWT private key")
		}
		issuer = infraauth.NewTokenIssuer(privateKey, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.SessionTTL)
	} else {
		issuer = infraauth.NewHMACTokenIssuer([]byte(cfg.JWT.Secret), cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.SessionTTL)
	}

	loginLockout := lockout.NewMemoryStore(cfg.Lockout.MaxAttempts, cfg.Lockout.CooldownSeconds)

	vcfg := verification.DefaultConfig()
	vcfg.Mode = verification.ParseMode(cfg.Verification.Mode)
	vcfg.BaseURL = cfg.Verification.BaseURL
	globalEngine := verification.NewEngine(domain.AccountGlobal, globalUsers, taskEnqueuer, vcfg).WithAttemptGuard(loginLockout)
	projectEngine := verification.NewEngine(domain.AccountProject, projectUsers, taskEnqueuer, vcfg).WithAttemptGuard(loginLockout)

	keys := project.NewKeyGenerator(projects)

	authHandler := handlers.NewAuthHandler(
		auth.NewRegisterOwner(globalUsers, hasher, globalEngine),
		auth.NewLoginOwner(globalUsers, hasher, issuer, loginLockout),
		auth.NewVerifyEmail(globalEngine),
		auth.NewSendEmailVerification(globalEngine),
		cfg.Server.CookieSecure, log)
	projectUserHandler := handlers.NewProjectUserHandler(
		auth.NewRegisterProjectUser(projectUsers, hasher, projectEngine),
		auth.NewLoginProjectUser(projectUsers, hasher, issuer, loginLockout),
		auth.NewVerifyEmail(projectEngine),
		auth.NewSendEmailVerification(projectEngine),
		cfg.Server.CookieSecure, log)
	projectHandler := handlers.NewProjectHandler(
		project.NewCreateProject(projects, keys),
		project.NewListOwnedProjects(projects),
		project.NewRotateProjectKey(projects, keys),
		log)
	adminHandler := handlers.NewAdminHandler(
		admin.NewListUsers(projectUsers),
		admin.NewUpdateRole(projectUsers),
		admin.NewDeleteUser(projectUsers),
		log)

	var limiterClient redis.UniversalClient
	if redisClient != nil {
		limiterClient = redisClient
	}
	limiterStore, err := middleware.NewRateLimitStore(limiterClient)
	if err != nil {
		log.Fatal().Err(err).Msg("create rate limit store")
	}
	rate := limiter.Rate{Period: cfg.RateLimit.Window, Limit: cfg.RateLimit.Requests}

	var healthRedis redis.UniversalClient
	if redisClient != nil {
		healthRedis = redisClient
	}

	router := httprouter.NewRouter(httprouter.RouterConfig{
		AuthHandler:        authHandler,
		ProjectUserHandler: projectUserHandler,
		ProjectHandler:     projectHandler,
		AdminHandler:       adminHandler,
		HealthHandler:      handlers.NewHealthHandler(sqlDB, healthRedis, log),
		Gates: httprouter.GateSet{
			ResolveProject:          authz.ResolveProject{Projects: project.NewResolver(projects)},
			AuthenticateOwner:       authz.AuthenticateOwner{Tokens: issuer, Users: globalUsers},
			AuthenticateProjectUser: authz.AuthenticateProjectUser{Tokens: issuer, Users: projectUsers},
		},
		Log:              log,
		Secure:           middleware.NewSecure(middleware.SecureOptions(cfg.Server.SecureDev)),
		CORS:             middleware.CORS(cfg.Server.CORSOrigins),
		RateLimit:        middleware.NewRateLimiter(limiterStore, rate),
		ProjectRateLimit: middleware.NewProjectRateLimiter(limiterStore, rate),
		Metrics:          true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("verification_mode", string(vcfg.Mode)).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if asynqWorker != nil {
		asynqWorker.Shutdown()
	}
}
