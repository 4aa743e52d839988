package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timada-org/todoboard/internal/core"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := core.NewConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, core.DefaultAddr, cfg.Addr)
	assert.Equal(t, core.DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, core.DefaultStoreDriver, cfg.Store.Driver)
	assert.NotEmpty(t, cfg.ID)
	assert.Empty(t, cfg.Broker.URL)
}

func TestNewConfig_FileAndLocalOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	writeFile(t, path, `
id: node-1
addr: 127.0.0.1:9000
store:
  driver: sqlite
  dsn: /tmp/todoboard.db
broker:
  url: pulsar://localhost:6650
`)
	writeFile(t, filepath.Join(dir, "config.local.yml"), `
addr: 127.0.0.1:9001
log:
  level: debug
`)

	cfg, err := core.NewConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "node-1", cfg.ID)
	assert.Equal(t, "127.0.0.1:9001", cfg.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/todoboard.db", cfg.Store.DSN)
	assert.Equal(t, "pulsar://localhost:6650", cfg.Broker.URL)
	assert.Equal(t, core.DefaultBrokerTopic, cfg.Broker.Topic)
}

func TestNewConfig_EnvExpansion(t *testing.T) {
	t.Setenv("TODOBOARD_TEST_DSN", "/data/board.db")

	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, `
store:
  driver: sqlite
  dsn: ${TODOBOARD_TEST_DSN}
`)

	cfg, err := core.NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/board.db", cfg.Store.DSN)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() core.Config {
		return core.Config{
			ID:    "n",
			Addr:  ":6750",
			Log:   core.Log{Level: "info"},
			Store: core.Store{Driver: "memory"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *core.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*core.Config) {}},
		{name: "empty addr", mutate: func(c *core.Config) { c.Addr = "" }, wantErr: "addr"},
		{name: "bad level", mutate: func(c *core.Config) { c.Log.Level = "loud" }, wantErr: "log.level"},
		{name: "bad driver", mutate: func(c *core.Config) { c.Store.Driver = "redis" }, wantErr: "store.driver"},
		{name: "sqlite without dsn", mutate: func(c *core.Config) { c.Store.Driver = "sqlite" }, wantErr: "store.dsn"},
		{name: "bad jwks url", mutate: func(c *core.Config) { c.JwksURL = "ftp://x" }, wantErr: "jwks_url"},
		{name: "bad broker url", mutate: func(c *core.Config) { c.Broker.URL = "http://x" }, wantErr: "broker.url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			require.Len(t, fieldErrs, 1)
			assert.Equal(t, tt.wantErr, fieldErrs[0].Field)
		})
	}
}
