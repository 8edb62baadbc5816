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

// Package cache implements a key-value cache backed by a relational table.
//
// Entries are rows keyed by (cachekey, name), where name partitions one table
// into independent logical caches. Reads never return rows whose expiration
// has passed, whether or not the row has been physically purged; purging
// happens through a throttled sweep triggered as a side effect of mutating
// operations.
package cache

import (
	"fmt"
	"math/rand/v2"
	"reflect"
	"strings"
	"time"

	"go.uber.org/atomic"

	"github.com/asgardeo/sqlcache/config"
	"github.com/asgardeo/sqlcache/database/client"
	"github.com/asgardeo/sqlcache/database/provider"
	"github.com/asgardeo/sqlcache/log"
	"github.com/asgardeo/sqlcache/serializer"
)

// CacheManagerInterface defines the contract for a relational table backed cache.
type CacheManagerInterface[T any] interface {
	// GetName returns the logical name of the cache.
	GetName() string
	// GetProviderName returns the name tag of the underlying connection provider.
	GetProviderName() string
	// GetOrder returns the configured ordering priority of the cache.
	GetOrder() int
	// Exists reports whether a live entry for the key exists.
	Exists(key string) (bool, error)
	// Get retrieves the value stored for the key, if any.
	Get(key string) (CacheValue[T], error)
	// GetWithRetriever retrieves the value stored for the key, invoking the
	// retriever and storing its result on a miss.
	GetWithRetriever(key string, retriever DataRetriever[T], expiration time.Duration) (CacheValue[T], error)
	// GetAll retrieves the values for a set of keys. The result contains every
	// requested key, mapped to a value without HasValue when no live row exists.
	GetAll(keys []string) (map[string]CacheValue[T], error)
	// GetByPrefix retrieves all live entries whose keys start with the prefix.
	GetByPrefix(prefix string) (map[string]CacheValue[T], error)
	// Set stores a value under the key, replacing any previous entry.
	Set(key string, value T, expiration time.Duration) error
	// SetAll stores all entries in one batch, replacing previous entries.
	SetAll(entries map[string]T, expiration time.Duration) error
	// TrySet stores a value under the key only if no live entry exists,
	// reporting whether the value was stored.
	TrySet(key string, value T, expiration time.Duration) (bool, error)
	// Refresh replaces the entry for the key by removing and re-setting it.
	// The two steps are not atomic; a concurrent reader may observe a miss
	// in between.
	Refresh(key string, value T, expiration time.Duration) error
	// Remove deletes the entry for the key. Removing an absent key is not an
	// error.
	Remove(key string) error
	// RemoveAll deletes the entries for a set of keys in one statement.
	RemoveAll(keys []string) error
	// RemoveByPrefix deletes all entries whose keys start with the prefix.
	RemoveByPrefix(prefix string) error
	// Flush deletes every entry of this cache, leaving other caches sharing
	// the table untouched.
	Flush() error
	// GetCount returns the raw row count for this cache, optionally filtered
	// by key prefix. Expired rows are included until swept.
	GetCount(prefix string) (int, error)
	// GetCacheStat returns the hit and miss counters of this instance.
	GetCacheStat() CacheStat
}

// CacheManager is the implementation of CacheManagerInterface.
type CacheManager[T any] struct {
	name             string
	dataSource       string
	dbType           string
	order            int
	postgresTable    string
	sqliteTable      string
	sweepFrequency   time.Duration
	maxRandomSeconds int
	queries          cacheQueries
	dbProvider       provider.DBProviderInterface
	serializer       serializer.SerializerInterface
	logger           *log.Logger
	hitCount         atomic.Int64
	missCount        atomic.Int64
	lastScanTime     atomic.Time
}

// NewCacheManager creates a cache manager for the named cache in the given
// configuration, ensuring the backing table and its expiration index exist.
// A nil serializer selects the JSON serializer.
func NewCacheManager[T any](
	cfg *config.Config,
	cacheName string,
	dbProvider provider.DBProviderInterface,
	ser serializer.SerializerInterface,
) (CacheManagerInterface[T], error) {
	if strings.TrimSpace(cacheName) == "" {
		return nil, fmt.Errorf("%w: cache name cannot be empty", ErrInvalidArgument)
	}
	if dbProvider == nil {
		return nil, fmt.Errorf("%w: database provider cannot be nil", ErrInvalidArgument)
	}

	property, found := getCacheProperty(cfg, cacheName)
	if !found {
		return nil, fmt.Errorf("%w: no cache named %s in configuration", ErrInvalidArgument, cacheName)
	}

	dataSource, found := getDataSource(cfg, property.DataSource)
	if !found {
		return nil, fmt.Errorf("%w: %s", provider.ErrUnknownDataSource, property.DataSource)
	}

	table := property.Table
	if table == "" {
		table = defaultTableName
	}
	if err := validateIdentifier(table); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	postgresTable := table
	if property.Schema != "" {
		if err := validateIdentifier(property.Schema); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		postgresTable = property.Schema + "." + table
	}

	sweepFrequency := property.SweepFrequency
	if sweepFrequency <= 0 {
		sweepFrequency = defaultSweepFrequencySeconds
	}

	maxRandomSeconds := defaultMaxRandomSeconds
	if property.MaxRandomSeconds != nil {
		if *property.MaxRandomSeconds < 0 {
			return nil, fmt.Errorf("%w: jitter bound cannot be negative", ErrInvalidArgument)
		}
		maxRandomSeconds = *property.MaxRandomSeconds
	}

	if ser == nil {
		ser = serializer.NewJSONSerializer()
	}

	logger := log.Nop()
	if property.EnableLogging {
		logger = log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName),
			log.String("cacheName", cacheName))
	}

	cm := &CacheManager[T]{
		name:             cacheName,
		dataSource:       property.DataSource,
		dbType:           dataSource.Type,
		order:            property.Order,
		postgresTable:    postgresTable,
		sqliteTable:      table,
		sweepFrequency:   time.Duration(sweepFrequency) * time.Second,
		maxRandomSeconds: maxRandomSeconds,
		queries:          buildCacheQueries(postgresTable, table),
		dbProvider:       dbProvider,
		serializer:       ser,
		logger:           logger,
	}

	if err := cm.ensureSchema(); err != nil {
		return nil, err
	}

	cm.lastScanTime.Store(time.Now())

	logger.Debug("Initialized cache manager", log.String("dataSource", property.DataSource),
		log.String("table", table), log.String("serializer", ser.Name()))

	return cm, nil
}

// GetName returns the logical name of the cache.
func (cm *CacheManager[T]) GetName() string {
	return cm.name
}

// GetProviderName returns the name tag of the underlying connection provider.
func (cm *CacheManager[T]) GetProviderName() string {
	return cm.dbProvider.ProviderName()
}

// GetOrder returns the configured ordering priority of the cache.
func (cm *CacheManager[T]) GetOrder() int {
	return cm.order
}

// Exists reports whether a live entry for the key exists. Lookup through
// Exists does not touch the hit and miss counters.
func (cm *CacheManager[T]) Exists(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	dbClient, err := cm.getDBClient()
	if err != nil {
		return false, err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			cm.logger.Error("Failed to close database client", log.Error(closeErr))
		}
	}()

	results, err := dbClient.Query(cm.queries.existsEntry, key, cm.name, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	total, err := parseCountResult(results)
	if err != nil {
		return false, err
	}

	return total > 0, nil
}

// Get retrieves the value stored for the key, if any.
func (cm *CacheManager[T]) Get(key string) (CacheValue[T], error) {
	if err := validateKey(key); err != nil {
		return CacheValue[T]{}, err
	}

	dbClient, err := cm.getDBClient()
	if err != nil {
		return CacheValue[T]{}, err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			cm.logger.Error("Failed to close database client", log.Error(closeErr))
		}
	}()

	results, err := dbClient.Query(cm.queries.getEntry, key, cm.name, time.Now().Unix())
	if err != nil {
		return CacheValue[T]{}, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	if len(results) == 0 || isEmptyPayload(results[0]["cachevalue"]) {
		cm.missCount.Inc()
		cm.logger.Debug("Cache miss", log.String("key", key))
		return CacheValue[T]{}, nil
	}

	cm.hitCount.Inc()
	value, err := cm.decodeValue(results[0]["cachevalue"])
	if err != nil {
		return CacheValue[T]{}, err
	}

	cm.logger.Debug("Cache hit", log.String("key", key))
	return CacheValue[T]{Value: value, HasValue: true}, nil
}

// GetWithRetriever retrieves the value stored for the key. On a miss the
// retriever is invoked; a produced value is stored with the given expiration
// and returned. Retriever failures propagate to the caller unchanged.
func (cm *CacheManager[T]) GetWithRetriever(
	key string,
	retriever DataRetriever[T],
	expiration time.Duration,
) (CacheValue[T], error) {
	if retriever == nil {
		return CacheValue[T]{}, fmt.Errorf("%w: data retriever cannot be nil", ErrInvalidArgument)
	}
	if err := validateExpiration(expiration); err != nil {
		return CacheValue[T]{}, err
	}

	cached, err := cm.Get(key)
	if err != nil || cached.HasValue {
		return cached, err
	}

	value, produced, err := retriever()
	if err != nil {
		return CacheValue[T]{}, err
	}
	if !produced || isNilValue(value) {
		return CacheValue[T]{}, nil
	}

	if err := cm.Set(key, value, expiration); err != nil {
		return CacheValue[T]{}, err
	}

	return CacheValue[T]{Value: value, HasValue: true}, nil
}

// GetAll retrieves the values for a set of keys in one statement. The result
// is total over the requested keys: absent or expired keys map to a value
// without HasValue.
func (cm *CacheManager[T]) GetAll(keys []string) (map[string]CacheValue[T], error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: keys cannot be empty", ErrInvalidArgument)
	}

	query, args, err := buildGetEntriesQuery(cm.postgresTable, cm.sqliteTable, keys, cm.name, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	dbClient, err := cm.getDBClient()
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			cm.logger.Error("Failed to close database client", log.Error(closeErr))
		}
	}()

	results, err := dbClient.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	values, err := cm.buildValuesFromResults(results)
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		if _, found := values[key]; !found {
			values[key] = CacheValue[T]{}
		}
	}

	return values, nil
}

// GetByPrefix retrieves all live entries whose keys start with the prefix.
func (cm *CacheManager[T]) GetByPrefix(prefix string) (map[string]CacheValue[T], error) {
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}

	dbClient, err := cm.getDBClient()
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			cm.logger.Error("Failed to close database client", log.Error(closeErr))
		}
	}()

	results, err := dbClient.Query(cm.queries.getEntriesByPrefix, prefix+"%", cm.name, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	return cm.buildValuesFromResults(results)
}

// Set stores a value under the key, replacing any previous entry.
func (cm *CacheManager[T]) Set(key string, value T, expiration time.Duration) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := cm.validateValue(value); err != nil {
		return err
	}
	if err := validateExpiration(expiration); err != nil {
		return err
	}

	payload, err := cm.serializer.Serialize(value)
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(cm.jitteredExpiration(expiration)).Unix()

	dbClient, err := cm.getDBClient()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			cm.logger.Error("Failed to close database client", log.Error(closeErr))
		}
	}()

	if _, err := dbClient.Execute(cm.queries.upsertEntry, key, cm.name, string(payload), expiresAt); err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	cm.logger.Debug("Cache entry set", log.String("key", key))
	cm.scanForExpiredEntries()
	return nil
}

// SetAll stores all entries in one batched upsert. The expiration jitter is
// drawn once and applied uniformly across the batch.
func (cm *CacheManager[T]) SetAll(entries map[string]T, expiration time.Duration) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: entries cannot be empty", ErrInvalidArgument)
	}
	if err := validateExpiration(expiration); err != nil {
		return err
	}

	expiresAt := time.Now().Add(cm.jitteredExpiration(expiration)).Unix()

	args := make([]interface{}, 0, len(entries)*4)
	for key, value := range entries {
		if err := validateKey(key); err != nil {
			return err
		}
		if err := cm.validateValue(value); err != nil {
			return err
		}
		payload, err := cm.serializer.Serialize(value)
		if err != nil {
			return err
		}
		args = append(args, key, cm.name, string(payload), expiresAt)
	}

	query, err := buildUpsertEntriesQuery(cm.postgresTable, cm.sqliteTable, len(entries))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	dbClient, err := cm.getDBClient()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			cm.logger.Error("Failed to close database client", log.Error(closeErr))
		}
	}()

	if _, err := dbClient.Execute(query, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	cm.logger.Debug("Cache entries set", log.Int("count", len(entries)))
	cm.scanForExpiredEntries()
	return nil
}

// TrySet stores a value under the key only if no live entry exists. An
// expired row for the key is purged first so it does not block the insert.
// Returns true iff the value was stored.
func (cm *CacheManager[T]) TrySet(key string, value T, expiration time.Duration) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	if err := cm.validateValue(value); err != nil {
		return false, err
	}
	if err := validateExpiration(expiration); err != nil {
		return false, err
	}

	payload, err := cm.serializer.Serialize(value)
	if err != nil {
		return false, err
	}

	now := time.Now()
	expiresAt := now.Add(cm.jitteredExpiration(expiration)).Unix()

	dbClient, err := cm.getDBClient()
	if err != nil {
		return false, err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			cm.logger.Error("Failed to close database client", log.Error(closeErr))
		}
	}()

	tx, err := dbClient.BeginTx()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	if _, err := tx.Exec(cm.queries.purgeExpiredEntry.GetQuery(cm.dbType), key, cm.name, now.Unix()); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			cm.logger.Error("Failed to rollback transaction", log.Error(rollbackErr))
		}
		return false, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	result, err := tx.Exec(cm.queries.insertEntryIfAbsent.GetQuery(cm.dbType),
		key, cm.name, string(payload), expiresAt)
	if err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			cm.logger.Error("Failed to rollback transaction", log.Error(rollbackErr))
		}
		return false, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			cm.logger.Error("Failed to rollback transaction", log.Error(rollbackErr))
		}
		return false, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	if inserted > 0 {
		cm.logger.Debug("Cache entry set if absent", log.String("key", key))
	}
	cm.scanForExpiredEntries()
	return inserted > 0, nil
}

// Refresh replaces the entry for the key by removing and re-setting it. The
// two steps are not atomic; a concurrent reader may observe a miss in between.
func (cm *CacheManager[T]) Refresh(key string, value T, expiration time.Duration) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := cm.validateValue(value); err != nil {
		return err
	}
	if err := validateExpiration(expiration); err != nil {
		return err
	}

	if err := cm.Remove(key); err != nil {
		return err
	}
	return cm.Set(key, value, expiration)
}

// Remove deletes the entry for the key. Removing an absent key is not an error.
func (cm *CacheManager[T]) Remove(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	dbClient, err := cm.getDBClient()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			cm.logger.Error("Failed to close database client", log.Error(closeErr))
		}
	}()

	if _, err := dbClient.Execute(cm.queries.deleteEntry, key, cm.name); err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	cm.logger.Debug("Cache entry removed", log.String("key", key))
	cm.scanForExpiredEntries()
	return nil
}

// RemoveAll deletes the entries for a set of keys in one statement.
func (cm *CacheManager[T]) RemoveAll(keys []string) error {
	if len(keys) == 0 {
		return fmt.Errorf("%w: keys cannot be empty", ErrInvalidArgument)
	}

	query, args, err := buildDeleteEntriesQuery(cm.postgresTable, cm.sqliteTable, keys, cm.name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	dbClient, err := cm.getDBClient()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			cm.logger.Error("Failed to close database client", log.Error(closeErr))
		}
	}()

	removed, err := dbClient.Execute(query, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	cm.logger.Debug("Cache entries removed", log.Int64("count", removed))
	cm.scanForExpiredEntries()
	return nil
}

// RemoveByPrefix deletes all entries whose keys start with the prefix.
func (cm *CacheManager[T]) RemoveByPrefix(prefix string) error {
	if err := validatePrefix(prefix); err != nil {
		return err
	}

	dbClient, err := cm.getDBClient()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			cm.logger.Error("Failed to close database client", log.Error(closeErr))
		}
	}()

	removed, err := dbClient.Execute(cm.queries.deleteEntriesByPrefix, prefix+"%", cm.name)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	cm.logger.Debug("Cache entries removed by prefix", log.String("prefix", prefix), log.Int64("count", removed))
	cm.scanForExpiredEntries()
	return nil
}

// Flush deletes every entry of this cache, leaving other caches sharing the
// table untouched.
func (cm *CacheManager[T]) Flush() error {
	cm.logger.Debug("Clearing all entries in the cache")

	dbClient, err := cm.getDBClient()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			cm.logger.Error("Failed to close database client", log.Error(closeErr))
		}
	}()

	if _, err := dbClient.Execute(cm.queries.deleteAllEntries, cm.name); err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	cm.scanForExpiredEntries()
	return nil
}

// GetCount returns the raw row count for this cache, optionally filtered by
// key prefix. Expired rows are included until swept.
func (cm *CacheManager[T]) GetCount(prefix string) (int, error) {
	dbClient, err := cm.getDBClient()
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			cm.logger.Error("Failed to close database client", log.Error(closeErr))
		}
	}()

	var results []map[string]interface{}
	if prefix == "" {
		results, err = dbClient.Query(cm.queries.countEntries, cm.name)
	} else {
		results, err = dbClient.Query(cm.queries.countEntriesByPrefix, cm.name, prefix+"%")
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	return parseCountResult(results)
}

// GetCacheStat returns the hit and miss counters of this instance.
func (cm *CacheManager[T]) GetCacheStat() CacheStat {
	hits := cm.hitCount.Load()
	misses := cm.missCount.Load()

	stat := CacheStat{
		HitCount:  hits,
		MissCount: misses,
	}
	if total := hits + misses; total > 0 {
		stat.HitRate = float64(hits) / float64(total)
	}
	return stat
}

// scanForExpiredEntries launches a non-blocking purge of expired rows across
// the whole table when the configured sweep frequency has elapsed. The cursor
// is advanced before the deletion runs, so callers racing past the elapsed
// check may each start a sweep; the deletion is idempotent.
func (cm *CacheManager[T]) scanForExpiredEntries() {
	now := time.Now()
	if now.Sub(cm.lastScanTime.Load()) < cm.sweepFrequency {
		return
	}
	cm.lastScanTime.Store(now)

	go func() {
		dbClient, err := cm.dbProvider.GetDBClient(cm.dataSource)
		if err != nil {
			cm.logger.Error("Failed to get database client for expiry sweep", log.Error(err))
			return
		}
		defer func() {
			if closeErr := dbClient.Close(); closeErr != nil {
				cm.logger.Error("Failed to close database client", log.Error(closeErr))
			}
		}()

		cleaned, err := dbClient.Execute(cm.queries.deleteExpiredEntries, now.Unix())
		if err != nil {
			cm.logger.Error("Expiry sweep failed", log.Error(err))
			return
		}
		if cleaned > 0 {
			cm.logger.Debug("Expired cache entries cleaned", log.Int64("count", cleaned))
		}
	}()
}

// ensureSchema creates the cache table and its expiration index if missing.
func (cm *CacheManager[T]) ensureSchema() error {
	dbClient, err := cm.getDBClient()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			cm.logger.Error("Failed to close database client", log.Error(closeErr))
		}
	}()

	if _, err := dbClient.Execute(cm.queries.createTable); err != nil {
		return fmt.Errorf("%w: failed to create cache table: %w", ErrConnection, err)
	}
	if _, err := dbClient.Execute(cm.queries.createExpirationIndex); err != nil {
		return fmt.Errorf("%w: failed to create expiration index: %w", ErrConnection, err)
	}
	return nil
}

// getDBClient acquires a scoped database client for this cache's data source.
func (cm *CacheManager[T]) getDBClient() (client.DBClientInterface, error) {
	dbClient, err := cm.dbProvider.GetDBClient(cm.dataSource)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return dbClient, nil
}

// jitteredExpiration adds a uniformly random number of whole seconds in
// [1, maxRandomSeconds] to the expiration, spreading out entries stored
// together so they do not all expire in one burst.
func (cm *CacheManager[T]) jitteredExpiration(expiration time.Duration) time.Duration {
	if cm.maxRandomSeconds <= 0 {
		return expiration
	}
	return expiration + time.Duration(rand.IntN(cm.maxRandomSeconds)+1)*time.Second
}

// buildValuesFromResults decodes query rows into a result map. Rows carrying
// an empty payload are skipped. Each decoded row counts as a hit.
func (cm *CacheManager[T]) buildValuesFromResults(
	results []map[string]interface{},
) (map[string]CacheValue[T], error) {
	values := make(map[string]CacheValue[T], len(results))
	for _, row := range results {
		key, ok := row["cachekey"].(string)
		if !ok {
			continue
		}
		if isEmptyPayload(row["cachevalue"]) {
			continue
		}
		cm.hitCount.Inc()
		value, err := cm.decodeValue(row["cachevalue"])
		if err != nil {
			return nil, err
		}
		values[key] = CacheValue[T]{Value: value, HasValue: true}
	}
	return values, nil
}

// decodeValue deserializes a stored payload into the cache value type.
func (cm *CacheManager[T]) decodeValue(raw interface{}) (T, error) {
	var value T
	payload, err := payloadBytes(raw)
	if err != nil {
		return value, err
	}
	if err := cm.serializer.Deserialize(payload, &value); err != nil {
		return value, err
	}
	return value, nil
}

// validateValue rejects nil values for nilable kinds.
func (cm *CacheManager[T]) validateValue(value T) error {
	if isNilValue(value) {
		return fmt.Errorf("%w: cache value cannot be nil", ErrInvalidArgument)
	}
	return nil
}

// validateKey rejects empty and whitespace-only keys.
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: cache key cannot be empty", ErrInvalidArgument)
	}
	return nil
}

// validatePrefix rejects empty and whitespace-only prefixes.
func validatePrefix(prefix string) error {
	if strings.TrimSpace(prefix) == "" {
		return fmt.Errorf("%w: prefix cannot be empty", ErrInvalidArgument)
	}
	return nil
}

// validateExpiration rejects zero and negative expirations.
func validateExpiration(expiration time.Duration) error {
	if expiration <= 0 {
		return fmt.Errorf("%w: expiration must be positive", ErrInvalidArgument)
	}
	return nil
}

// isNilValue reports whether the value is nil for kinds that can hold nil.
func isNilValue(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// parseCountResult extracts the total column from a count query result.
func parseCountResult(results []map[string]interface{}) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}
	if total, ok := results[0]["total"].(int64); ok {
		return int(total), nil
	}
	return 0, fmt.Errorf("unexpected type for total: %T", results[0]["total"])
}

// payloadBytes normalizes a stored payload to bytes. Drivers return TEXT
// columns as string or []byte depending on backend.
func payloadBytes(raw interface{}) ([]byte, error) {
	switch v := raw.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unexpected payload type %T", serializer.ErrSerialization, raw)
	}
}

// isEmptyPayload reports whether a stored payload is null or empty.
func isEmptyPayload(raw interface{}) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	default:
		return false
	}
}

// getCacheProperty retrieves the cache property for the specified cache name.
func getCacheProperty(cfg *config.Config, cacheName string) (config.CacheProperty, bool) {
	if cfg == nil {
		return config.CacheProperty{}, false
	}
	for _, property := range cfg.Caches {
		if property.Name == cacheName {
			return property, true
		}
	}
	return config.CacheProperty{}, false
}

// getDataSource retrieves the data source definition for the specified name.
func getDataSource(cfg *config.Config, dataSourceName string) (config.DataSource, bool) {
	if cfg == nil {
		return config.DataSource{}, false
	}
	for _, dataSource := range cfg.DataSources {
		if dataSource.Name == dataSourceName {
			return dataSource, true
		}
	}
	return config.DataSource{}, false
}
