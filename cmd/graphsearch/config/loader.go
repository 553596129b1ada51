// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "graphsearch.yaml"

// Environment variables that override file values.
const (
	EnvDataset  = "GRAPHSEARCH_DATASET"
	EnvPort     = "GRAPHSEARCH_PORT"
	EnvLogLevel = "GRAPHSEARCH_LOG_LEVEL"
)

// Load reads the configuration at path.
//
// Description:
//
//	An empty path means DefaultPath, which is created with defaults on
//	first run. An explicit path must exist. Keys missing from the file keep
//	their defaults. Environment overrides are applied after the file, and
//	the result is validated.
func Load(path string) (GraphSearchConfig, error) {
	if path == "" {
		path = DefaultPath
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, " First run detected, creating the config at %s\n", path)
			if err := createDefault(path); err != nil {
				return GraphSearchConfig{}, err
			}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return GraphSearchConfig{}, fmt.Errorf("failed to read the config file %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return GraphSearchConfig{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return GraphSearchConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return GraphSearchConfig{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *GraphSearchConfig) error {
	if v := os.Getenv(EnvDataset); v != "" {
		cfg.Graph.Dataset = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a port", ErrInvalidConfig, EnvPort, v)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

func createDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create the config directory %w", err)
		}
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
