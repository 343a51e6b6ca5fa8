package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	os.Unsetenv("LSMKV_DATA_DIR")
	os.Unsetenv("LSMKV_MEM_MAX_BYTES")
	os.Unsetenv("LSMKV_LEVEL0_MAX_FILES")
	os.Unsetenv("LSMKV_LEVELS_MAX")
	os.Unsetenv("LSMKV_BLOCK_SIZE_BYTES")

	cfg := LoadConfig()

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, int64(4*1024*1024), cfg.Engine.MemMaxBytes)
	assert.Equal(t, 4, cfg.Engine.Level0MaxFiles)
	assert.Equal(t, 7, cfg.Engine.LevelsMax)
	assert.Equal(t, 4096, cfg.Engine.BlockSizeBytes)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LSMKV_DATA_DIR", "/var/lib/lsmkv")
	t.Setenv("LSMKV_MEM_MAX_BYTES", "2048")
	t.Setenv("LSMKV_LEVEL0_MAX_FILES", "2")
	t.Setenv("LSMKV_LEVELS_MAX", "3")
	t.Setenv("LSMKV_BLOCK_SIZE_BYTES", "512")

	cfg := LoadConfig()

	assert.Equal(t, "/var/lib/lsmkv", cfg.DataDir)
	assert.Equal(t, int64(2048), cfg.Engine.MemMaxBytes)
	assert.Equal(t, 2, cfg.Engine.Level0MaxFiles)
	assert.Equal(t, 3, cfg.Engine.LevelsMax)
	assert.Equal(t, 512, cfg.Engine.BlockSizeBytes)
}
