/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package config provides structures and functions for loading and managing
// cache module configurations.
package config

import (
	"os"
	"path/filepath"

	"github.com/asgardeo/sqlcache/log"

	yaml "gopkg.in/yaml.v3"
)

// DataSource holds the individual database connection details.
type DataSource struct {
	Name            string `yaml:"name"`
	Type            string `yaml:"type"`
	Hostname        string `yaml:"hostname"`
	Port            int    `yaml:"port"`
	Database        string `yaml:"database"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"sslmode"`
	Path            string `yaml:"path"`
	Options         string `yaml:"options"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
}

// CacheProperty holds the configuration details for an individual cache.
type CacheProperty struct {
	Name             string `yaml:"name"`
	DataSource       string `yaml:"data_source"`
	Schema           string `yaml:"schema"`
	Table            string `yaml:"table"`
	SweepFrequency   int    `yaml:"sweep_frequency"`
	MaxRandomSeconds *int   `yaml:"max_random_seconds"`
	EnableLogging    bool   `yaml:"enable_logging"`
	Order            int    `yaml:"order"`
}

// Config holds the complete configuration details of the cache module.
type Config struct {
	ProviderName string          `yaml:"provider_name"`
	DataSources  []DataSource    `yaml:"data_sources"`
	Caches       []CacheProperty `yaml:"caches"`
}

// LoadConfig loads the configurations from the specified YAML file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	path = filepath.Clean(path)

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if ferr := file.Close(); ferr != nil {
			log.GetLogger().Error("Failed to close config file", log.Error(ferr))
		}
	}()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
