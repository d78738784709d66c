// Package config loads the stabledracor.jsonc configuration file.
//
// The file is optional: every setting has a default and can also be
// overridden with command line flags, so the tool works out of the box
// against a stock local stack. JSONC is used instead of plain JSON so
// the shipped example file can carry comments; comments are stripped
// with github.com/tidwall/jsonc before parsing with encoding/json.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/dracor-org/stabledracor/internal/model"
)

// DefaultFileName is the config file looked up in the working directory
// when no --config flag is given.
const DefaultFileName = "stabledracor.jsonc"

// APIConfig holds the connection settings for the local DraCor API.
type APIConfig struct {
	// URL is the base URL of the local API, normally the frontend
	// proxy at http://localhost:8088/api/.
	URL string `json:"url,omitempty"`

	// Username and Password are the HTTP Basic credentials for write
	// operations. A fresh stack accepts admin with an empty password.
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Config is the parsed stabledracor.jsonc file.
type Config struct {
	// Name identifies the system in the manifest and in frozen image
	// tags.
	Name string `json:"name,omitempty"`

	// Description is free text recorded in the manifest.
	Description string `json:"description,omitempty"`

	// Project is the docker compose project name. Defaults to the
	// system name, or "stabledracor" when no name is set.
	Project string `json:"project,omitempty"`

	// API configures the local API connection.
	API APIConfig `json:"api,omitempty"`

	// Images overrides the image used for individual services, keyed
	// by service name. Used to run a pinned api version or a frozen
	// stable-dracor image.
	Images map[string]string `json:"images,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:      "http://localhost:8088/api/",
			Username: "admin",
			Password: "",
		},
	}
}

// ComposeProject returns the effective compose project name.
func (c *Config) ComposeProject() string {
	if c.Project != "" {
		return c.Project
	}
	if c.Name != "" {
		return c.Name
	}
	return "stabledracor"
}

// ServiceImages converts the Images map to typed service names,
// rejecting unknown keys so a typo in the config file fails loudly
// instead of silently starting a stock image.
func (c *Config) ServiceImages() (map[model.ServiceName]string, error) {
	if len(c.Images) == 0 {
		return nil, nil
	}

	images := make(map[model.ServiceName]string, len(c.Images))
	for key, image := range c.Images {
		name, err := model.ParseServiceName(key)
		if err != nil {
			return nil, model.WrapCLIError(
				model.ExitBadInput,
				fmt.Sprintf("invalid service name %q in images config", key),
				err,
			)
		}
		images[name] = image
	}
	return images, nil
}

// Load reads and parses a config file. Missing optional files are not
// an error: when path is empty and the default file does not exist,
// Load returns the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		if os.IsNotExist(err) {
			return nil, model.NewCLIError(
				model.ExitBadInput,
				fmt.Sprintf("config file not found: %s", path),
			)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Strip JSONC comments and trailing commas before parsing.
	cleanJSON := jsonc.ToJSON(data)

	cfg := Default()
	if err := json.Unmarshal(cleanJSON, cfg); err != nil {
		return nil, model.WrapCLIError(
			model.ExitBadInput,
			fmt.Sprintf("failed to parse config file %s", path),
			err,
		)
	}

	if _, err := cfg.ServiceImages(); err != nil {
		return nil, err
	}

	return cfg, nil
}
