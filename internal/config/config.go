// Package config holds runtime configuration for chargeload commands and
// the multi-hospital batch manifest.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for a chargeload run.
type Config struct {
	DSN          string
	FilePath     string
	MappingPath  string
	HospitalID   string
	ManifestPath string
	OutPath      string
	LogFormat    string // "text" or "json"
}

// Validate checks the fields every file-driven command needs.
func (c *Config) Validate() error {
	if c.FilePath == "" {
		return fmt.Errorf("--file is required")
	}
	if _, err := os.Stat(c.FilePath); err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}
	if c.MappingPath == "" {
		return fmt.Errorf("--mapping is required")
	}
	if _, err := os.Stat(c.MappingPath); err != nil {
		return fmt.Errorf("mapping not accessible: %w", err)
	}
	return nil
}

// ValidateWithDSN checks file fields plus the database connection string.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or DATABASE_URL is required")
	}
	return nil
}

// BatchEntry names one hospital's source file and mapping descriptor within
// a batch manifest.
type BatchEntry struct {
	HospitalID string `yaml:"hospital_id"`
	File       string `yaml:"file"`
	Mapping    string `yaml:"mapping"`
}

// Manifest is the on-disk YAML structure for batch runs.
type Manifest struct {
	Hospitals []BatchEntry `yaml:"hospitals"`
}

// LoadManifest reads and validates a batch manifest YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Hospitals) == 0 {
		return nil, fmt.Errorf("manifest lists no hospitals")
	}
	seen := make(map[string]bool, len(m.Hospitals))
	for i, e := range m.Hospitals {
		if e.HospitalID == "" {
			return nil, fmt.Errorf("manifest entry %d: hospital_id is required", i)
		}
		if seen[e.HospitalID] {
			return nil, fmt.Errorf("manifest entry %d: duplicate hospital_id %q", i, e.HospitalID)
		}
		seen[e.HospitalID] = true
		if e.File == "" || e.Mapping == "" {
			return nil, fmt.Errorf("manifest entry %s: file and mapping are required", e.HospitalID)
		}
	}
	return &m, nil
}
