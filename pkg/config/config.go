// Package config provides configuration loading and management for slicerio.
// It handles loading configuration and extraction selections from YAML files
// and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"slicerio/pkg/nrrd"
	"slicerio/pkg/segerr"
	"slicerio/pkg/segmentation"
	"slicerio/pkg/terminology"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Write parameters
	Write struct {
		// CompressionLevel is the gzip level used for the voxel payload, 0 to 9
		CompressionLevel int `yaml:"compressionLevel"`

		// Encoding is the payload encoding, "gzip" or "raw"
		Encoding string `yaml:"encoding"`
	} `yaml:"write"`

	// Extraction parameters
	Extract struct {
		// MinimalExtent sets each extracted segment's extent to the union of
		// the merged segments' extents instead of the full volume
		MinimalExtent bool `yaml:"minimalExtent"`
	} `yaml:"extract"`

	// Preview parameters
	Preview struct {
		// Axis is the slicing axis, x, y or z
		Axis string `yaml:"axis"`
	} `yaml:"preview"`

	// Logging parameters
	Logging struct {
		// Level is one of debug, info, warn or error
		Level string `yaml:"level"`

		// Format is text or json
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Write.CompressionLevel = nrrd.DefaultCompressionLevel
	cfg.Write.Encoding = segmentation.DefaultEncoding

	cfg.Extract.MinimalExtent = false

	cfg.Preview.Axis = "z"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	return cfg
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	if c.Write.CompressionLevel < 0 || c.Write.CompressionLevel > 9 {
		return segerr.Valuef("write.compressionLevel must be between 0 and 9, got %d", c.Write.CompressionLevel)
	}
	switch c.Write.Encoding {
	case "gzip", "raw":
	default:
		return segerr.Valuef("write.encoding must be gzip or raw, got %q", c.Write.Encoding)
	}
	switch c.Preview.Axis {
	case "x", "y", "z":
	default:
		return segerr.Valuef("preview.axis must be x, y or z, got %q", c.Preview.Axis)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return segerr.Valuef("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// selectionRecord is one entry of a selections file. Exactly one of Name and
// Terminology must be set; Terminology uses the tilde-separated encoding.
//
//	- name: ribs
//	  label: 1
//	- terminology: "Segmentation category and type - 3D Slicer General Anatomy list~SCT^123037004^Anatomical Structure~SCT^113197003^Rib~^^~~^^~^^"
//	  label: 2
type selectionRecord struct {
	Name        string `yaml:"name"`
	Terminology string `yaml:"terminology"`
	Label       *int   `yaml:"label"`
}

// LoadSelections reads the extraction selections listed in a YAML file
func LoadSelections(path string) ([]segmentation.Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading selections file: %w", err)
	}
	return ParseSelections(data)
}

// ParseSelections decodes YAML selection records
func ParseSelections(data []byte) ([]segmentation.Selection, error) {
	var records []selectionRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, &segerr.FormatError{Field: "selections", Msg: "invalid YAML", Err: err}
	}

	selections := make([]segmentation.Selection, 0, len(records))
	for n, rec := range records {
		if rec.Label == nil {
			return nil, segerr.Formatf("selections", "record %d has no label", n)
		}
		var sel segmentation.Selector
		switch {
		case rec.Name != "" && rec.Terminology != "":
			return nil, segerr.Formatf("selections", "record %d sets both name and terminology", n)
		case rec.Name != "":
			sel = segmentation.ByName(rec.Name)
		case rec.Terminology != "":
			entry, err := terminology.Decode(rec.Terminology)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", n, err)
			}
			sel = segmentation.ByTerminology(entry)
		default:
			return nil, segerr.Formatf("selections", "record %d sets neither name nor terminology", n)
		}
		selections = append(selections, segmentation.Selection{Selector: sel, LabelValue: *rec.Label})
	}
	return selections, nil
}
