package main

import (
	"context"
	"os"
	"time"

	"shopapi/internal/config"
	"shopapi/internal/handler"
	"shopapi/internal/infra/cache"
	"shopapi/internal/infra/db"
	infraRepo "shopapi/internal/infra/repository"
	"shopapi/internal/infra/storage"
	"shopapi/internal/middleware"
	"shopapi/internal/server"
	"shopapi/internal/usecase"
	auth "shopapi/internal/usecase/auth_usecase"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env is optional, real environment wins
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogger(cfg)

	ctx := context.Background()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("database handle")
	}
	defer sqlDB.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(gormDB); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	checks := map[string]server.HealthCheck{"postgres": sqlDB.PingContext}

	// refresh-token revocation needs redis, without it logout is not offered
	var denylist auth.RefreshDenylist
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		defer rdb.Close()
		denylist = cache.NewRefreshDenylistRedis(rdb)
		checks["redis"] = redisCheck(rdb)
	}

	files, err := storage.NewLocalStorage(cfg.UploadDir, cfg.UploadURL)
	if err != nil {
		log.Fatal().Err(err).Msg("init upload storage")
	}

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	verifier := auth.NewBcryptPasswordVerifier()
	issuer := auth.NewJWTIssuer(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL, auth.SystemClock{})

	//Usecase生成
	authUC := auth.NewAuthUsecase(userRepo, verifier, issuer, denylist, cfg.LoginField)
	userUC := usecase.NewUserUsecase(userRepo, hasher, verifier, files, cfg.MaxUploadBytes)
	productUC := usecase.NewProductUsecase(txm, productRepo)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, userRepo)
	auditUC := usecase.NewAuditLogUsecase(auditRepo)

	if cfg.AdminEmail != "" {
		admin, err := userUC.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("bootstrap admin")
		}
		log.Info().Str("email", admin.Email).Msg("admin account ready")
	}

	//Handler生成
	e := server.New()
	server.RegisterRoutes(e, server.Routes{
		Guards: handler.Guards{
			Auth:   middleware.AuthJWT(issuer),
			Active: middleware.ActiveUserGuard(userRepo),
			Admin:  middleware.AdminRoleGuard(),
		},
		Handlers: []server.RouteRegistrar{
			handler.NewAuthHandler(authUC),
			handler.NewUserHandler(userUC, cfg.MaxUploadBytes),
			handler.NewProductHandler(productUC),
			handler.NewOrderHandler(orderUC),
			handler.NewAuditLogHandler(auditUC),
		},
		UploadDir: files.Dir(),
		Checks:    checks,
	})

	//Server起動
	if err := server.Start(ctx, e, cfg.Addr()); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}

func setupLogger(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", "shopapi").Logger()
	// log.Ctx falls back to the global logger outside requests
	zerolog.DefaultContextLogger = &log.Logger
}

func redisCheck(rdb *redis.Client) server.HealthCheck {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
