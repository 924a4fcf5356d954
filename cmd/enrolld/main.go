// Command enrolld serves the enrollment state machine over HTTP.
//
// Endpoints:
//
//	POST /login            {"username":"...", "password":"..."}
//	POST /change-password  {"username":"...", "old_password":"...", "new_password":"..."}
//	POST /setup-totp       {"username":"...", "totp_code":"..."} + Bearer proof token
//	POST /setup-biometric  {"username":"...", "key_material":"..."} + Bearer proof token
//	GET  /healthz          liveness only
//
// Bodies may be JSON objects of string fields or regular form encoding.
// The store backend is chosen at startup via ENROLLD_STORE_BACKEND
// (memory, redis, dynamodb, secretsmanager).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/store"
)

type config struct {
	Addr         string        `env:"ENROLLD_ADDR" envDefault:":8080"`
	StoreBackend string        `env:"ENROLLD_STORE_BACKEND" envDefault:"memory"`
	StoreTimeout time.Duration `env:"ENROLLD_STORE_TIMEOUT" envDefault:"3s"`

	RedisAddr     string `env:"ENROLLD_REDIS_ADDR" envDefault:"localhost:6379"`
	DynamoTable   string `env:"ENROLLD_DYNAMO_TABLE" envDefault:"credentials"`
	SecretsPrefix string `env:"ENROLLD_SECRETS_PREFIX" envDefault:"enrolld/credentials/"`

	JWTSecret  string        `env:"ENROLLD_JWT_SECRET,required"`
	TokenTTL   time.Duration `env:"ENROLLD_TOKEN_TTL" envDefault:"15m"`
	TOTPIssuer string        `env:"ENROLLD_TOTP_ISSUER" envDefault:"enrolld"`

	// Seed provisioning for local runs against the memory backend. Record
	// creation is otherwise an external administrative step.
	SeedUser     string `env:"ENROLLD_SEED_USER"`
	SeedPassword string `env:"ENROLLD_SEED_PASSWORD"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if err := run(logger); err != nil {
		logger.Error("enrolld exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}

	engineCfg := goEnroll.DefaultConfig()
	engineCfg.JWT.PrivateKey = []byte(cfg.JWTSecret)
	engineCfg.JWT.AccessTTL = cfg.TokenTTL
	engineCfg.JWT.Issuer = "enrolld"
	engineCfg.TOTP.Issuer = cfg.TOTPIssuer
	engineCfg.Store.OpTimeout = cfg.StoreTimeout

	engine, err := goEnroll.New().
		WithConfig(engineCfg).
		WithStore(st).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	if cfg.SeedUser != "" {
		if err := seedRecord(ctx, st, engineCfg, cfg.SeedUser, cfg.SeedPassword); err != nil {
			return fmt.Errorf("seed record: %w", err)
		}
		logger.Info("seeded credential record", "username", cfg.SeedUser)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(engine, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildStore(ctx context.Context, cfg config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemory(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return store.NewRedis(client, ""), nil
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewDynamo(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable), nil
	case "secretsmanager":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewSecrets(secretsmanager.NewFromConfig(awsCfg), cfg.SecretsPrefix), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// seedRecord provisions one record the way an external administrative step
// would: initial password hash, rotation required, no factors enrolled.
func seedRecord(ctx context.Context, st store.Store, engineCfg goEnroll.Config, username, initialPassword string) error {
	if initialPassword == "" {
		return errors.New("seed user set without seed password")
	}

	if _, found, err := st.Get(ctx, username); err != nil {
		return err
	} else if found {
		return nil
	}

	hash, err := goEnroll.HashForProvisioning(engineCfg.Password, initialPassword)
	if err != nil {
		return err
	}
	return st.Put(ctx, store.Record{
		Username:       username,
		PasswordHash:   hash,
		RequiresChange: true,
	})
}
