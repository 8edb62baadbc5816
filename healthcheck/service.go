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

package healthcheck

import (
	"github.com/asgardeo/sqlcache/config"
	"github.com/asgardeo/sqlcache/database/provider"
	"github.com/asgardeo/sqlcache/log"
)

const loggerComponentName = "HealthCheckService"

// HealthCheckServiceInterface defines the interface for the health check service.
type HealthCheckServiceInterface interface {
	CheckReadiness() ServerStatus
}

// HealthCheckService is the default implementation of the HealthCheckServiceInterface.
type HealthCheckService struct {
	DBProvider  provider.DBProviderInterface
	dataSources []string
}

// NewHealthCheckService creates a health check service covering every data
// source in the configuration.
func NewHealthCheckService(cfg *config.Config, dbProvider provider.DBProviderInterface) HealthCheckServiceInterface {
	var dataSources []string
	if cfg != nil {
		dataSources = make([]string, 0, len(cfg.DataSources))
		for _, dataSource := range cfg.DataSources {
			dataSources = append(dataSources, dataSource.Name)
		}
	}
	return &HealthCheckService{
		DBProvider:  dbProvider,
		dataSources: dataSources,
	}
}

// CheckReadiness checks the reachability of every configured data source.
// The server is up only when all data sources are up.
func (hcs *HealthCheckService) CheckReadiness() ServerStatus {
	status := StatusUp
	serviceStatus := make([]ServiceStatus, 0, len(hcs.dataSources))

	for _, dataSourceName := range hcs.dataSources {
		dataSourceStatus := ServiceStatus{
			ServiceName: dataSourceName,
			Status:      hcs.checkDataSourceStatus(dataSourceName),
		}
		if dataSourceStatus.Status == StatusDown {
			status = StatusDown
		}
		serviceStatus = append(serviceStatus, dataSourceStatus)
	}

	return ServerStatus{
		Status:        status,
		ServiceStatus: serviceStatus,
	}
}

// checkDataSourceStatus pings the specified data source through a scoped client.
func (hcs *HealthCheckService) checkDataSourceStatus(dataSourceName string) Status {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	dbClient, err := hcs.DBProvider.GetDBClient(dataSourceName)
	if err != nil {
		logger.Error("Failed to get database client", log.Error(err))
		return StatusDown
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			logger.Error("Error closing database client", log.Error(closeErr))
		}
	}()

	if err := dbClient.Ping(); err != nil {
		logger.Error("Failed to ping data source", log.String("dataSource", dataSourceName), log.Error(err))
		return StatusDown
	}
	return StatusUp
}
