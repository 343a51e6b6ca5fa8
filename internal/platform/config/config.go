package config

import (
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"lsmkv/internal/platform/repository/lsmtree"
)

var portCmd = flag.Int("port", 3000, "HTTP demo server port")

// Config holds the process-level settings for the lsmkv demo server:
// where the HTTP listener binds, where the engine's data directory
// lives, and the engine's own tuning options.
type Config struct {
	ServerPort int
	DataDir    string
	Engine     lsmtree.Config
}

// LoadConfig loads .env (if present), then layers environment
// variables and the -port flag over the engine's default tuning
// options.
func LoadConfig() Config {
	godotenv.Load(".env")

	cfg := Config{
		ServerPort: *portCmd,
		DataDir:    envOr("LSMKV_DATA_DIR", "./data"),
		Engine:     lsmtree.DefaultConfig(),
	}

	cfg.Engine.MemMaxBytes = envInt64Or("LSMKV_MEM_MAX_BYTES", cfg.Engine.MemMaxBytes)
	cfg.Engine.Level0MaxFiles = envIntOr("LSMKV_LEVEL0_MAX_FILES", cfg.Engine.Level0MaxFiles)
	cfg.Engine.LevelsMax = envIntOr("LSMKV_LEVELS_MAX", cfg.Engine.LevelsMax)
	cfg.Engine.BlockSizeBytes = envIntOr("LSMKV_BLOCK_SIZE_BYTES", cfg.Engine.BlockSizeBytes)

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64Or(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
