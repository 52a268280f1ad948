package app

import (
	"time"

	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
	"github.com/prepsutra/dpp-backend/internal/utils"
)

type Config struct {
	Addr             string
	JWTSecretKey     string
	Environment      string
	QuestionCacheTTL time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	port := utils.GetEnv("PORT", "8080", log)
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	environment := utils.GetEnv("ENVIRONMENT", "development", log)
	cacheTTLSeconds := utils.GetEnvAsInt("QUESTION_CACHE_TTL", 300, log)
	return Config{
		Addr:             ":" + port,
		JWTSecretKey:     jwtSecretKey,
		Environment:      environment,
		QuestionCacheTTL: time.Duration(cacheTTLSeconds) * time.Second,
	}
}
