package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// DefaultDir returns the per-user config directory, e.g. ~/.config/cicada.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DirName), nil
}

// Load loads the configuration from the directory. If the directory has no
// config.yaml the built in defaults are used.
func Load(path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	return LoadFs(afero.NewBasePathFs(afero.NewOsFs(), path), path)
}

// LoadFs loads the configuration from the root of configFs. Dir is reported by
// Configuration.Dir and used for files opened outside configFs.
func LoadFs(configFs afero.Fs, dir string) (*Configuration, error) {
	// Fields missing from the file keep their defaults.
	out := defaultConfig()

	configContents, err := afero.ReadFile(configFs, ConfigurationName)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.UnmarshalStrict(configContents, out); err != nil {
			return nil, fmt.Errorf("%s: %w", ConfigurationName, err)
		}
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigurationName, err)
	}

	out.configFs = configFs
	out.configDir = dir
	return out, nil
}

// Initialize writes the default configuration to the directory, creating it
// if needed. Existing files are left alone.
func Initialize(path string, logger *log.Logger) (*Configuration, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	return InitializeFs(afero.NewBasePathFs(afero.NewOsFs(), path), path, logger)
}

// InitializeFs is Initialize for an arbitrary filesystem.
func InitializeFs(configFs afero.Fs, dir string, logger *log.Logger) (*Configuration, error) {
	exists, err := afero.Exists(configFs, ConfigurationName)
	switch {
	case err != nil:
		return nil, err
	case exists:
		logger.Printf("%s already exists in %s, skipping", ConfigurationName, dir)
	default:
		logger.Printf("Writing %s to %s", ConfigurationName, dir)
		if err := afero.WriteFile(configFs, ConfigurationName, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	}

	return LoadFs(configFs, dir)
}
