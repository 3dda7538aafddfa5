package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/foldersync/internal/config"
)

const minimal = `
api:
  base_url: https://api.example.com
log:
  path: /var/lib/foldersync/ops.db
`

func TestParse_AppliesSchemaDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Empty(t, cfg.API.Token)
	assert.Equal(t, 15*time.Second, cfg.Timeout())
	assert.Equal(t, 30*24*time.Hour, cfg.PruneAfter())
	assert.Equal(t, 10*time.Second, cfg.HealthInterval())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestParse_OverridesSurviveValidation(t *testing.T) {
	cfg, err := config.Parse([]byte(`
api:
  base_url: https://api.example.com
  token: tok-1
  timeout_seconds: 5
log:
  path: ops.db
  prune_after_days: 0
logging:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, "tok-1", cfg.API.Token)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Zero(t, cfg.PruneAfter())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestParse_RejectsInvalidConfigs(t *testing.T) {
	cases := map[string]string{
		"missing base_url": `
log:
  path: ops.db
`,
		"empty log path": `
api:
  base_url: https://api.example.com
log:
  path: ""
`,
		"unknown log level": `
api:
  base_url: https://api.example.com
log:
  path: ops.db
logging:
  level: verbose
`,
		"negative timeout": `
api:
  base_url: https://api.example.com
  timeout_seconds: -1
log:
  path: ops.db
`,
		"not yaml": `{{{`,
	}

	for name, in := range cases {
		_, err := config.Parse([]byte(in))
		assert.Error(t, err, name)
	}
}

func TestLoad_ReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/foldersync/ops.db", cfg.Log.Path)

	_, err = config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
