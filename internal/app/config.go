package app

import (
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/mycelium-backend/internal/data/db"
	"github.com/yungbote/mycelium-backend/internal/http/middleware"
	"github.com/yungbote/mycelium-backend/internal/observability"
	"github.com/yungbote/mycelium-backend/internal/platform/envutil"
	"github.com/yungbote/mycelium-backend/internal/platform/logger"
	"github.com/yungbote/mycelium-backend/internal/realtime/bus"
)

type Config struct {
	Port           string
	JWTSecretKey   string
	JWTAudience    string
	AccessTokenTTL time.Duration
	CORSOrigins    []string
	MetricsAddr    string

	DB    db.Config
	Redis bus.RedisConfig
	OTel  observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	accessTokenTTLSeconds := envutil.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	return Config{
		Port:           envutil.GetEnv("PORT", "8080", log),
		JWTSecretKey:   envutil.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		JWTAudience:    envutil.GetEnv("JWT_AUDIENCE", "", log),
		AccessTokenTTL: time.Duration(accessTokenTTLSeconds) * time.Second,
		CORSOrigins:    middleware.ParseOrigins(envutil.GetEnv("CORS_ORIGINS", "", log)),
		MetricsAddr:    envutil.GetEnv("METRICS_ADDR", "", log),

		DB: db.LoadConfig(log),
		Redis: bus.RedisConfig{
			Addr:     envutil.GetEnv("REDIS_ADDR", "", log),
			Password: envutil.GetEnv("REDIS_PASSWORD", "", log),
			DB:       envutil.GetEnvAsInt("REDIS_DB", 0, log),
			Channel:  envutil.GetEnv("REDIS_CHANNEL", bus.DefaultChannel, log),
		},
		OTel: observability.OtelConfig{
			Enabled:     envutil.GetEnvAsBool("OTEL_ENABLED", false, log),
			ServiceName: envutil.GetEnv("OTEL_SERVICE_NAME", "mycelium-api", log),
			Environment: envutil.GetEnv("ENVIRONMENT", "development", log),
			Version:     envutil.GetEnv("APP_VERSION", "dev", log),
			Endpoint:    strings.TrimSpace(envutil.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "", log)),
			Headers:     envutil.GetEnv("OTEL_EXPORTER_OTLP_HEADERS", "", log),
			Insecure:    envutil.GetEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
			SampleRatio: sampleRatio(envutil.GetEnv("OTEL_SAMPLER_RATIO", "1", log)),
		},
	}
}

func sampleRatio(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 1
	}
	return f
}
