package app

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mx-space/footprint/internal/config"
	jwtpkg "github.com/mx-space/footprint/internal/pkg/jwt"
)

func applyRuntimeSettings(cfg *config.AppConfig, logger *zap.Logger) {
	if cfg.JWTSecret != "" {
		jwtpkg.SetSecret(cfg.JWTSecret)
	} else {
		logger.Warn("jwt_secret is empty, using built-in default secret")
	}

	if cfg.Timezone == "" {
		return
	}
	time.Local = cfg.Location()
	_ = os.Setenv("TZ", cfg.Timezone)
}
