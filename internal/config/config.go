package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
	Lock      LockConfig
	Pipeline  PipelineConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type StorageConfig struct {
	// Backend is "redis" (deployed) or "memory" (development).
	Backend string
	// JobRetention bounds how long finished job records live in Redis;
	// zero keeps them forever.
	JobRetention time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	EditsPerHour  int
	LocksPerMin   int
	AssetsPerHour int
}

type SchedulerConfig struct {
	Workers      int
	LockTTL      time.Duration
	RetryBackoff time.Duration
}

type LockConfig struct {
	// CollabTTL is the default lease for human collaboration locks.
	CollabTTL time.Duration
}

type PipelineConfig struct {
	// BaseURL of the media-processing service; empty runs the simulator.
	BaseURL   string
	Timeout   time.Duration
	StepDelay time.Duration // simulator pacing
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("storage.backend", "redis")
	viper.SetDefault("storage.job_retention", "168h")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.edits_per_hour", 30)
	viper.SetDefault("ratelimit.locks_per_min", 60)
	viper.SetDefault("ratelimit.assets_per_hour", 100)
	viper.SetDefault("scheduler.workers", 8)
	viper.SetDefault("scheduler.lock_ttl", "60s")
	viper.SetDefault("scheduler.retry_backoff", "2s")
	viper.SetDefault("lock.collab_ttl", "5m")
	viper.SetDefault("pipeline.base_url", "")
	viper.SetDefault("pipeline.timeout", "10m")
	viper.SetDefault("pipeline.step_delay", "2s")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Storage: StorageConfig{
			Backend:      viper.GetString("storage.backend"),
			JobRetention: viper.GetDuration("storage.job_retention"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			EditsPerHour:  viper.GetInt("ratelimit.edits_per_hour"),
			LocksPerMin:   viper.GetInt("ratelimit.locks_per_min"),
			AssetsPerHour: viper.GetInt("ratelimit.assets_per_hour"),
		},
		Scheduler: SchedulerConfig{
			Workers:      viper.GetInt("scheduler.workers"),
			LockTTL:      viper.GetDuration("scheduler.lock_ttl"),
			RetryBackoff: viper.GetDuration("scheduler.retry_backoff"),
		},
		Lock: LockConfig{
			CollabTTL: viper.GetDuration("lock.collab_ttl"),
		},
		Pipeline: PipelineConfig{
			BaseURL:   viper.GetString("pipeline.base_url"),
			Timeout:   viper.GetDuration("pipeline.timeout"),
			StepDelay: viper.GetDuration("pipeline.step_delay"),
		},
	}

	return cfg, nil
}
