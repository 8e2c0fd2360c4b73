package transform

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/degoto/internal/eliminate"
	"github.com/gnoswap-labs/degoto/internal/frontend"
	"github.com/gnoswap-labs/degoto/internal/interp"
)

// DefaultConfigPath is where the config file is looked up by default.
const DefaultConfigPath = ".degoto.yaml"

// Config is the content of the config file.
type Config struct {
	Name           string   `yaml:"name"`
	MaxRounds      int      `yaml:"max_rounds"`
	FlagPrefix     string   `yaml:"flag_prefix"`
	Verify         bool     `yaml:"verify"`
	VerifyDepth    int      `yaml:"verify_depth"`
	VerifyAlphabet []int64  `yaml:"verify_alphabet"`
	IgnoreFuncs    []string `yaml:"ignore_funcs"`
	CacheDir       string   `yaml:"cache_dir,omitempty"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() Config {
	verify := interp.DefaultVerifyConfig()
	return Config{
		Name:           "degoto",
		MaxRounds:      eliminate.DefaultMaxRounds,
		FlagPrefix:     eliminate.DefaultFlagPrefix,
		Verify:         true,
		VerifyDepth:    verify.Depth,
		VerifyAlphabet: verify.Alphabet,
		IgnoreFuncs:    []string{},
	}
}

// LoadConfig reads the config file at path on top of the defaults. A
// missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return config, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return config, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := config.validate(); err != nil {
		return config, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

func (c Config) validate() error {
	if c.MaxRounds < 1 {
		return fmt.Errorf("max_rounds must be positive, got %d", c.MaxRounds)
	}
	if c.VerifyDepth < 0 {
		return fmt.Errorf("verify_depth must not be negative, got %d", c.VerifyDepth)
	}
	if c.Verify && len(c.VerifyAlphabet) == 0 {
		return errors.New("verify_alphabet must not be empty")
	}
	return nil
}

// WriteConfig stores config as YAML at path.
func WriteConfig(path string, config Config) error {
	d, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, d, 0o644)
}

// fingerprint digests every setting that affects rewrite output.
func (c Config) fingerprint() (string, error) {
	c.CacheDir = ""
	d, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", md5.Sum(d)), nil
}

// frontendConfig translates c for the rewriter.
func (c Config) frontendConfig(logger *zap.Logger) frontend.Config {
	verify := interp.DefaultVerifyConfig()
	verify.Depth = c.VerifyDepth
	verify.Alphabet = c.VerifyAlphabet
	return frontend.Config{
		Options: eliminate.Options{
			MaxRounds:  c.MaxRounds,
			FlagPrefix: c.FlagPrefix,
			Logger:     logger,
		},
		Verify:      c.Verify,
		Verifier:    verify,
		IgnoreFuncs: c.IgnoreFuncs,
	}
}
