package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load reads the configuration from the directory. A missing file
// falls back to the embedded default.
func Load(aferoFs afero.Fs, path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	contents, err := afero.ReadFile(aferoFs, filepath.Join(path, ConfigurationName))
	if errors.Is(err, fs.ErrNotExist) {
		return Default()
	}
	if err != nil {
		return nil, err
	}

	var out Configuration
	if err := yaml.UnmarshalStrict(contents, &out); err != nil {
		return nil, err
	}
	out.expandHome()

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &out, nil
}

// Initialize writes the default configuration into the directory so
// it can be edited. It refuses to overwrite an existing file.
func Initialize(aferoFs afero.Fs, path string) (string, error) {
	if err := aferoFs.MkdirAll(path, 0755); err != nil {
		return "", err
	}

	target := filepath.Join(path, ConfigurationName)
	exists, err := afero.Exists(aferoFs, target)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%s already exists", target)
	}

	if err := afero.WriteFile(aferoFs, target, defaultConfigData, 0644); err != nil {
		return "", err
	}
	return target, nil
}
