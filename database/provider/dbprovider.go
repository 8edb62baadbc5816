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

// Package provider provides functionality for managing database connections and clients.
package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asgardeo/sqlcache/config"
	"github.com/asgardeo/sqlcache/database/client"
	"github.com/asgardeo/sqlcache/database/model"
	"github.com/asgardeo/sqlcache/log"
)

const (
	dataSourceTypePostgres = "postgres"
	dataSourceTypeSQLite   = "sqlite"
)

// DefaultProviderName is the provider name used when none is configured.
const DefaultProviderName = "sql"

// ErrUnknownDataSource is returned when a client is requested for a data source
// that is not present in the configuration.
var ErrUnknownDataSource = errors.New("unknown data source")

// dbConfig represents the local database configuration.
type dbConfig struct {
	dsn        string
	driverName string
}

// DBProviderInterface defines the interface for acquiring scoped database clients.
type DBProviderInterface interface {
	// GetDBClient returns a client holding a connection checked out of the pool
	// for the named data source. Callers must Close the client to release the
	// connection once the operation completes.
	GetDBClient(dataSourceName string) (client.DBClientInterface, error)
	// ProviderName returns the configured name tag of this provider.
	ProviderName() string
	// Close closes all connection pools held by the provider.
	Close() error
}

// DBProvider is the implementation of DBProviderInterface.
type DBProvider struct {
	name        string
	dataSources map[string]config.DataSource
	pools       map[string]*sql.DB
	mutex       sync.RWMutex
}

// NewDBProvider creates a new provider for the data sources in the given
// configuration. Connection pools are opened lazily on first use.
func NewDBProvider(cfg *config.Config) (DBProviderInterface, error) {
	name := cfg.ProviderName
	if name == "" {
		name = DefaultProviderName
	}

	dataSources := make(map[string]config.DataSource, len(cfg.DataSources))
	for _, ds := range cfg.DataSources {
		if ds.Name == "" {
			return nil, fmt.Errorf("data source name cannot be empty")
		}
		if _, exists := dataSources[ds.Name]; exists {
			return nil, fmt.Errorf("duplicate data source name: %s", ds.Name)
		}
		if ds.Type != dataSourceTypePostgres && ds.Type != dataSourceTypeSQLite {
			return nil, fmt.Errorf("unsupported data source type: %s", ds.Type)
		}
		dataSources[ds.Name] = ds
	}

	return &DBProvider{
		name:        name,
		dataSources: dataSources,
		pools:       make(map[string]*sql.DB),
	}, nil
}

// GetDBClient returns a client holding a connection checked out of the pool for
// the named data source.
func (d *DBProvider) GetDBClient(dataSourceName string) (client.DBClientInterface, error) {
	dataSource, ok := d.dataSources[dataSourceName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataSource, dataSourceName)
	}

	pool, err := d.getOrOpenPool(dataSource)
	if err != nil {
		return nil, err
	}

	conn, err := pool.Conn(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for data source %s: %w", dataSourceName, err)
	}

	return client.NewDBClient(model.NewConn(conn), dataSource.Type), nil
}

// ProviderName returns the configured name tag of this provider.
func (d *DBProvider) ProviderName() string {
	return d.name
}

// getOrOpenPool gets or opens the connection pool for a data source with locking.
func (d *DBProvider) getOrOpenPool(dataSource config.DataSource) (*sql.DB, error) {
	d.mutex.RLock()
	if pool, ok := d.pools[dataSource.Name]; ok {
		d.mutex.RUnlock()
		return pool, nil
	}
	d.mutex.RUnlock()

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if pool, ok := d.pools[dataSource.Name]; ok {
		return pool, nil
	}

	pool, err := d.openPool(dataSource)
	if err != nil {
		return nil, err
	}

	d.pools[dataSource.Name] = pool
	return pool, nil
}

// openPool opens and verifies a connection pool for a data source.
func (d *DBProvider) openPool(dataSource config.DataSource) (*sql.DB, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "DBProvider"))

	dbConfig := d.getDBConfig(dataSource)
	dsName := dataSource.Name

	db, err := sql.Open(dbConfig.driverName, dbConfig.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to data source %s: %w", dsName, err)
	}

	// Configure connection pool using values from configuration
	db.SetMaxOpenConns(dataSource.MaxOpenConns)
	db.SetMaxIdleConns(dataSource.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(dataSource.ConnMaxLifetime) * time.Second)

	// Test the database connection.
	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping data source %s: %w (close error: %w)", dsName, err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping data source %s: %w", dsName, err)
	}

	// Wait on locks briefly instead of failing immediately when SQLite
	// serializes concurrent writers.
	if dbConfig.driverName == dataSourceTypeSQLite {
		_, err := db.Exec("PRAGMA busy_timeout = 5000;")
		if err != nil {
			if closeErr := db.Close(); closeErr != nil {
				return nil, fmt.Errorf("failed to set busy timeout for %s: %w (close error: %w)",
					dsName, err, closeErr)
			}
			return nil, fmt.Errorf("failed to set busy timeout for %s: %w", dsName, err)
		}
	}

	logger.Debug("Opened database connection pool", log.String("dataSource", dsName),
		log.String("type", dataSource.Type), log.String("user", log.MaskString(dataSource.Username)))

	return db, nil
}

// getDBConfig returns the database configuration based on the provided data source.
func (d *DBProvider) getDBConfig(dataSource config.DataSource) dbConfig {
	var dbConfig dbConfig

	switch dataSource.Type {
	case dataSourceTypePostgres:
		dbConfig.driverName = dataSourceTypePostgres
		dbConfig.dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			dataSource.Hostname, dataSource.Port, dataSource.Username, dataSource.Password,
			dataSource.Database, dataSource.SSLMode)
	case dataSourceTypeSQLite:
		dbConfig.driverName = dataSourceTypeSQLite
		options := dataSource.Options
		if options != "" && options[0] != '?' {
			options = "?" + options
		}
		dbConfig.dsn = fmt.Sprintf("%s%s", dataSource.Path, options)
	}

	return dbConfig
}

// Close closes all connection pools held by the provider.
func (d *DBProvider) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	var errs []error
	for name, pool := range d.pools {
		if err := pool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close pool for data source %s: %w", name, err))
		}
		delete(d.pools, name)
	}
	return errors.Join(errs...)
}
