package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)

	config, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	config, err = LoadConfig(empty)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".degoto.yaml")
	content := `max_rounds: 50
flag_prefix: jmp_
verify: false
ignore_funcs:
  - parseState
cache_dir: .cache
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "degoto", config.Name, "unset keys keep their defaults")
	assert.Equal(t, 50, config.MaxRounds)
	assert.Equal(t, "jmp_", config.FlagPrefix)
	assert.False(t, config.Verify)
	assert.Equal(t, []string{"parseState"}, config.IgnoreFuncs)
	assert.Equal(t, ".cache", config.CacheDir)
	assert.Equal(t, DefaultConfig().VerifyAlphabet, config.VerifyAlphabet)

	fc := config.frontendConfig(nil)
	assert.Equal(t, 50, fc.Options.MaxRounds)
	assert.Equal(t, "jmp_", fc.Options.FlagPrefix)
	assert.False(t, fc.Verify)
	assert.Equal(t, []string{"parseState"}, fc.IgnoreFuncs)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"bad yaml", "max_rounds: [", "parse"},
		{"zero rounds", "max_rounds: 0", "max_rounds must be positive"},
		{"negative depth", "verify_depth: -1", "verify_depth must not be negative"},
		{"empty alphabet", "verify_alphabet: []", "verify_alphabet must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestWriteConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".degoto.yaml")
	config := DefaultConfig()
	config.FlagPrefix = "jump_"
	config.IgnoreFuncs = []string{"a", "b"}

	require.NoError(t, WriteConfig(path, config))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "cache_dir", "empty cache_dir is omitted")
}
