package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port          string
	RedisAddr     string
	ContentPath   string
	LogLevel      string
	PlatformOwner string
	FeeCollector  string
	FeeBps        int
	SchedulingFee int64
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		ContentPath:   getEnv("CONTENT_PATH", "/tmp/weft/content"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		PlatformOwner: getEnv("PLATFORM_OWNER", "platform"),
		FeeCollector:  getEnv("FEE_COLLECTOR", "platform-fees"),
		FeeBps:        GetEnvInt("PLATFORM_FEE_BPS", 200),
		SchedulingFee: int64(GetEnvInt("SCHEDULING_FEE_MICRO", 10_000)),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}
