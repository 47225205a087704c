package config

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		assert.NoError(t, err)
		assert.Equal(t, Defaults(), cfg)
	})

	t.Run("file overrides only the fields it sets", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := path.Join(dir, "petro.yaml")
		contents := "num_frames: 128\ndb_path: bench.db\n"
		assert.NoError(t, os.WriteFile(cfgPath, []byte(contents), 0644))

		cfg, err := Load(cfgPath)
		assert.NoError(t, err)
		assert.Equal(t, 128, cfg.NumFrames)
		assert.Equal(t, "bench.db", cfg.DbPath)
		assert.Equal(t, Defaults().LruK, cfg.LruK)
		assert.Equal(t, Defaults().LeafMaxSize, cfg.LeafMaxSize)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(path.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
