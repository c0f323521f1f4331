// Package config loads the daemon configuration. Engine credentials and
// endpoints come from a YAML file; database settings stay environment
// based (see helper.NewDatabaseConfiguration).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/textgraph/enricher/engine/celi"
	"github.com/textgraph/enricher/engine/localner"
	"github.com/textgraph/enricher/engine/opencalais"
	"github.com/textgraph/enricher/engine/uima"
	"github.com/textgraph/enricher/helper"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Token   string `yaml:"token"`
}

// EnginesConfig holds one optional section per engine. A nil section
// means the engine is not configured and stays out of the chain.
type EnginesConfig struct {
	OpenCalais *opencalais.Config `yaml:"opencalais"`
	CELI       *celi.Config       `yaml:"celi"`
	UIMA       *uima.Config       `yaml:"uima"`
	LocalNER   *localner.Config   `yaml:"local_ner"`
}

// Config is the full daemon configuration.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Engines  EnginesConfig `yaml:"engines"`
	Indexing string        `yaml:"indexing"`
}

// DefaultAddress is used when the server section leaves the address
// empty.
const DefaultAddress = "localhost:8080"

// Load reads and validates the daemon configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helper.NewError("os.ReadFile", err)
	}
	return Parse(data)
}

// Parse parses and validates raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	config := &Config{}
	err := yaml.Unmarshal(data, config)
	if err != nil {
		return nil, helper.NewError("yaml.Unmarshal", err)
	}

	if config.Server.Address == "" {
		config.Server.Address = DefaultAddress
	}
	if !config.Engines.any() {
		return nil, fmt.Errorf("no engines configured")
	}

	return config, nil
}

func (e EnginesConfig) any() bool {
	return e.OpenCalais != nil || e.CELI != nil || e.UIMA != nil || e.LocalNER != nil
}
