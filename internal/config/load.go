package config

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// FileNames are the configuration files looked up in the source directory, in order.
var FileNames = []string{"_config.yaml", "_config.yml"}

// ErrConfigNotFound is the cause of the error returned by Load when the source
// directory contains no configuration file.
var ErrConfigNotFound = stderrors.New("configuration file not found")

// Find returns the path of the configuration file in srcDir.
func Find(srcDir string) (string, error) {
	for _, name := range FileNames {
		p := filepath.Join(srcDir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", errors.WrapError(ErrConfigNotFound, errors.CategoryConfig, "configuration file not found").
		Fatal().
		WithContext("path", filepath.Join(srcDir, FileNames[0])).
		Build()
}

// Load builds a Store for the site in srcDir: site defaults plus the user
// configuration file. Environment references (${VAR}) in the file are expanded
// after loading .env files from srcDir; existing process variables win.
func Load(srcDir string) (*Store, error) {
	path, err := Find(srcDir)
	if err != nil {
		return nil, err
	}

	loadEnvFiles(srcDir)

	store := NewStore()
	ApplyDefaults(store)
	if err := LoadFile(store, path); err != nil {
		return nil, err
	}
	return store, nil
}

// LoadFile decodes a YAML file into the user layer of store.
func LoadFile(store *Store, path string) error {
	// #nosec G304 -- path is the site's own configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to read config file").
			Fatal().WithContext("path", path).Build()
	}

	values, err := Decode(data)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to parse config file").
			Fatal().WithContext("path", path).Build()
	}
	store.Merge(LayerUser, values)
	return nil
}

// Decode parses YAML configuration after expanding environment references.
func Decode(data []byte) (map[string]any, error) {
	expanded := os.ExpandEnv(string(data))

	var values map[string]any
	if err := yaml.Unmarshal([]byte(expanded), &values); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

// loadEnvFiles loads .env and .env.local from srcDir when present.
func loadEnvFiles(srcDir string) {
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(srcDir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load env file", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Loaded environment variables", slog.String("path", p))
	}
}
