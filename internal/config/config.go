package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models growthdesk.yml.
type Config struct {
	Agency struct {
		Name string `yaml:"name"`
	} `yaml:"agency"`
	Links struct {
		// BaseURL is prepended to notification deep links.
		BaseURL string `yaml:"base_url"`
	} `yaml:"links"`
	Deliverables struct {
		Catalog map[string]DeliverableType `yaml:"catalog"`
	} `yaml:"deliverables"`
}

type DeliverableType struct {
	Description string `yaml:"description"`
	// HasText marks types whose content blob carries a display text field.
	HasText bool `yaml:"has_text"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Agency.Name == "" {
		return fmt.Errorf("config.agency.name is required")
	}
	if len(c.Deliverables.Catalog) == 0 {
		return fmt.Errorf("config.deliverables.catalog is required")
	}
	for kind, dt := range c.Deliverables.Catalog {
		if kind == "" {
			return fmt.Errorf("config.deliverables.catalog contains empty type")
		}
		if dt.Description == "" {
			return fmt.Errorf("deliverable type %s has no description", kind)
		}
	}
	if _, ok := c.Deliverables.Catalog["other"]; !ok {
		return fmt.Errorf("config.deliverables.catalog must include other")
	}
	return nil
}

// KnownDeliverableType reports whether the type is in the catalog.
func (c *Config) KnownDeliverableType(kind string) bool {
	_, ok := c.Deliverables.Catalog[kind]
	return ok
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "growthdesk.yml")
}

// Default returns the built-in default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// DefaultTemplate returns the starter growthdesk.yml contents.
func DefaultTemplate() []byte {
	return []byte(defaultTemplate)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `agency:
  name: Growthdesk

links:
  base_url: ""

deliverables:
  catalog:
    email_template:
      description: "Email campaign template"
      has_text: true
    landing_page:
      description: "Landing page draft"
      has_text: true
    social_post:
      description: "Social media post"
      has_text: true
    script:
      description: "Video or call script"
      has_text: true
    document:
      description: "Supporting document"
      has_text: false
    ad_creative:
      description: "Ad creative asset"
      has_text: false
    other:
      description: "Anything else"
      has_text: false
`
