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

package cache

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/asgardeo/sqlcache/config"
	"github.com/asgardeo/sqlcache/database/provider"
	"github.com/asgardeo/sqlcache/log"
	"github.com/asgardeo/sqlcache/serializer"
)

// cacheStore is a singleton that holds all cache managers.
type cacheStore struct {
	caches map[string]interface{}
	mu     sync.RWMutex
}

var (
	instance *cacheStore
	once     sync.Once
)

// getCacheStore returns the singleton instance of the cache store.
func getCacheStore() *cacheStore {
	once.Do(func() {
		instance = &cacheStore{
			caches: make(map[string]interface{}),
		}
	})
	return instance
}

// GetCacheManager returns a shared cache manager for the given type and cache
// name, creating it on first use. Repeated calls with the same name and type
// return the same instance, so the backing table is only set up once.
// Construction failures are not cached; a later call may succeed.
func GetCacheManager[T any](
	cfg *config.Config,
	cacheName string,
	dbProvider provider.DBProviderInterface,
	ser serializer.SerializerInterface,
) (CacheManagerInterface[T], error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName))

	cp := getCacheStore()

	// Create unique key for the cache manager
	typeName := reflect.TypeOf((*T)(nil)).Elem().String()
	cacheKey := cacheName + ":" + typeName

	// First try to get from the map
	cp.mu.RLock()
	if cm, exists := cp.caches[cacheKey]; exists {
		cp.mu.RUnlock()
		if retCM, ok := cm.(CacheManagerInterface[T]); ok {
			return retCM, nil
		}
		logger.Warn("Type mismatch for cache manager", log.String("cacheName", cacheName),
			log.String("expectedType", typeName), log.String("actualType", reflect.TypeOf(cm).String()))

		return nil, fmt.Errorf("%w: cache %s is registered with a different value type", ErrInvalidArgument, cacheName)
	}
	cp.mu.RUnlock()

	// Acquire write lock to create a new cache manager
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cm, exists := cp.caches[cacheKey]; exists {
		if retCM, ok := cm.(CacheManagerInterface[T]); ok {
			return retCM, nil
		}
		logger.Warn("Type mismatch for cache manager", log.String("cacheName", cacheName),
			log.String("expectedType", typeName), log.String("actualType", reflect.TypeOf(cm).String()))

		return nil, fmt.Errorf("%w: cache %s is registered with a different value type", ErrInvalidArgument, cacheName)
	}

	// Create a new cache manager
	logger.Debug("Creating new cache manager", log.String("cacheName", cacheName), log.String("type", typeName))
	newCM, err := NewCacheManager[T](cfg, cacheName, dbProvider, ser)
	if err != nil {
		return nil, err
	}
	cp.caches[cacheKey] = newCM

	return newCM, nil
}

// resetCacheStore is used for testing purposes to reset the cache store state.
func resetCacheStore() {
	if instance != nil {
		instance.mu.Lock()
		instance.caches = make(map[string]interface{})
		instance.mu.Unlock()
	}
}
