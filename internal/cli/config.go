package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultConfigPath is consulted when --config is not given. A missing
// default file is not an error; a missing explicit path is.
const defaultConfigPath = "tidemark.yaml"

// Config is the optional tidemark.yaml file: registry location, default
// project, and the operator identity recorded on mutations.
type Config struct {
	DB      string `yaml:"db"`
	Project string `yaml:"project"`
	User    struct {
		Name  string `yaml:"name"`
		Email string `yaml:"email"`
	} `yaml:"user"`
}

// LoadConfig reads the config file at path, or the default path when path
// is empty.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
