// Package config loads and validates the shell's configuration.
package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"
)

//go:embed default/config.yaml
var defaultConfigData []byte

// ConfigurationName is the file name inside the configuration
// directory.
const ConfigurationName = "config.yaml"

type Configuration struct {
	// PathFile is the backing file for the persistent search-directory
	// list, one directory per line.
	PathFile string `json:"path_file" validate:"required"`

	// RCFile is executed line by line at startup; missing is fine.
	RCFile string `json:"rc_file"`

	// Prompt is the interactive prompt template. \w expands to the
	// working directory.
	Prompt string `json:"prompt" validate:"required"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// Default returns the embedded default configuration with home
// locations expanded.
func Default() (*Configuration, error) {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		return nil, err
	}
	out.expandHome()
	return &out, nil
}

// expandHome resolves a leading "~/" in file locations against the
// user's home directory.
func (c *Configuration) expandHome() {
	c.PathFile = expandHomePath(c.PathFile)
	c.RCFile = expandHomePath(c.RCFile)
}

func expandHomePath(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
