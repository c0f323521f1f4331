// Package indexing builds the entity index: it reads entity records,
// runs their popularity scores through a configurable normalizer
// chain, maps source fields into index fields, embeds the primary
// label and upserts the result into the pgvector backed index.
//
// The pipeline is driven by a declarative YAML configuration so index
// layouts can change without code changes.
package indexing

import (
	"fmt"
	"os"
	"slices"

	"github.com/textgraph/enricher/helper"
	"gopkg.in/yaml.v3"
)

// Config is the declarative description of one indexing pipeline.
type Config struct {
	Name        string             `yaml:"name"`
	Normalizers []NormalizerConfig `yaml:"normalizers"`
	Fields      []FieldMapping     `yaml:"fields"`
	Destination Destination        `yaml:"destination"`
}

// NormalizerConfig is one step of the score normalizer chain.
type NormalizerConfig struct {
	Type    string  `yaml:"type"`
	Min     float64 `yaml:"min"`
	Factor  float64 `yaml:"factor"`
	Upper   float64 `yaml:"upper"`
	Ceiling float64 `yaml:"ceiling"`
}

// FieldMapping maps a source field of an entity record to a field of
// the index entry. Languages restricts label mappings to the given
// languages; empty means any language.
type FieldMapping struct {
	Source    string   `yaml:"source"`
	Target    string   `yaml:"target"`
	Languages []string `yaml:"languages"`
}

// Destination describes the entity index table fed by the pipeline.
type Destination struct {
	Dimension int `yaml:"dimension"`
}

// knownSources are the record fields a mapping may read.
var knownSources = []string{"label", "type", "score", "reference"}

// LoadConfig reads and validates a pipeline configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helper.NewError("read indexing config", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates a YAML pipeline configuration.
func ParseConfig(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, helper.NewError("parse indexing config", err)
	}

	if config.Name == "" {
		return nil, helper.NewError("validate indexing config",
			fmt.Errorf("name must be set"))
	}
	if len(config.Fields) == 0 {
		return nil, helper.NewError("validate indexing config",
			fmt.Errorf("at least one field mapping must be set"))
	}
	for i, f := range config.Fields {
		if !slices.Contains(knownSources, f.Source) {
			return nil, helper.NewError("validate indexing config",
				fmt.Errorf("field %d: unknown source %q", i, f.Source))
		}
		if f.Target == "" {
			return nil, helper.NewError("validate indexing config",
				fmt.Errorf("field %d: target must be set", i))
		}
	}
	if config.Destination.Dimension <= 0 {
		return nil, helper.NewError("validate indexing config",
			fmt.Errorf("destination dimension must be positive"))
	}
	if _, err := BuildNormalizerChain(config.Normalizers); err != nil {
		return nil, err
	}

	return config, nil
}
