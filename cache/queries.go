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
	"strings"

	"github.com/asgardeo/sqlcache/database/model"
)

// cacheQueries holds the statement set for one cache table. Table identifiers
// are validated and interpolated once at construction; all row values are
// bound as parameters.
type cacheQueries struct {
	existsEntry           model.DBQuery
	getEntry              model.DBQuery
	upsertEntry           model.DBQuery
	insertEntryIfAbsent   model.DBQuery
	deleteEntry           model.DBQuery
	deleteEntriesByPrefix model.DBQuery
	deleteAllEntries      model.DBQuery
	deleteExpiredEntries  model.DBQuery
	getEntriesByPrefix    model.DBQuery
	countEntries          model.DBQuery
	countEntriesByPrefix  model.DBQuery
	purgeExpiredEntry     model.DBQuery
	createTable           model.DBQuery
	createExpirationIndex model.DBQuery
}

// newCacheQuery constructs a query with Postgres and SQLite variants.
func newCacheQuery(id, postgresText, sqliteText string) model.DBQuery {
	return model.DBQuery{
		ID:            id,
		Query:         postgresText,
		PostgresQuery: postgresText,
		SQLiteQuery:   sqliteText,
	}
}

// buildCacheQueries constructs the statement set for the given table. The
// Postgres table name may be schema qualified; the SQLite name never is.
func buildCacheQueries(postgresTable, sqliteTable string) cacheQueries {
	return cacheQueries{
		existsEntry: newCacheQuery(
			"SQC-CACHE-01",
			fmt.Sprintf("SELECT COUNT(*) AS total FROM %s WHERE cachekey = $1 AND name = $2 AND expiration > $3",
				postgresTable),
			fmt.Sprintf("SELECT COUNT(*) AS total FROM %s WHERE cachekey = ? AND name = ? AND expiration > ?",
				sqliteTable),
		),
		getEntry: newCacheQuery(
			"SQC-CACHE-02",
			fmt.Sprintf("SELECT cachevalue FROM %s WHERE cachekey = $1 AND name = $2 AND expiration > $3",
				postgresTable),
			fmt.Sprintf("SELECT cachevalue FROM %s WHERE cachekey = ? AND name = ? AND expiration > ?",
				sqliteTable),
		),
		upsertEntry: newCacheQuery(
			"SQC-CACHE-03",
			fmt.Sprintf("INSERT INTO %s (cachekey, name, cachevalue, expiration) VALUES ($1, $2, $3, $4) "+
				"ON CONFLICT (cachekey, name) DO UPDATE SET cachevalue = EXCLUDED.cachevalue, "+
				"expiration = EXCLUDED.expiration", postgresTable),
			fmt.Sprintf("INSERT OR REPLACE INTO %s (cachekey, name, cachevalue, expiration) VALUES (?, ?, ?, ?)",
				sqliteTable),
		),
		insertEntryIfAbsent: newCacheQuery(
			"SQC-CACHE-04",
			fmt.Sprintf("INSERT INTO %s (cachekey, name, cachevalue, expiration) VALUES ($1, $2, $3, $4) "+
				"ON CONFLICT (cachekey, name) DO NOTHING", postgresTable),
			fmt.Sprintf("INSERT OR IGNORE INTO %s (cachekey, name, cachevalue, expiration) VALUES (?, ?, ?, ?)",
				sqliteTable),
		),
		deleteEntry: newCacheQuery(
			"SQC-CACHE-05",
			fmt.Sprintf("DELETE FROM %s WHERE cachekey = $1 AND name = $2", postgresTable),
			fmt.Sprintf("DELETE FROM %s WHERE cachekey = ? AND name = ?", sqliteTable),
		),
		deleteEntriesByPrefix: newCacheQuery(
			"SQC-CACHE-06",
			fmt.Sprintf("DELETE FROM %s WHERE cachekey LIKE $1 AND name = $2", postgresTable),
			fmt.Sprintf("DELETE FROM %s WHERE cachekey LIKE ? AND name = ?", sqliteTable),
		),
		deleteAllEntries: newCacheQuery(
			"SQC-CACHE-07",
			fmt.Sprintf("DELETE FROM %s WHERE name = $1", postgresTable),
			fmt.Sprintf("DELETE FROM %s WHERE name = ?", sqliteTable),
		),
		deleteExpiredEntries: newCacheQuery(
			"SQC-CACHE-08",
			fmt.Sprintf("DELETE FROM %s WHERE expiration <= $1", postgresTable),
			fmt.Sprintf("DELETE FROM %s WHERE expiration <= ?", sqliteTable),
		),
		getEntriesByPrefix: newCacheQuery(
			"SQC-CACHE-09",
			fmt.Sprintf("SELECT cachekey, cachevalue FROM %s WHERE cachekey LIKE $1 AND name = $2 "+
				"AND expiration > $3", postgresTable),
			fmt.Sprintf("SELECT cachekey, cachevalue FROM %s WHERE cachekey LIKE ? AND name = ? "+
				"AND expiration > ?", sqliteTable),
		),
		countEntries: newCacheQuery(
			"SQC-CACHE-10",
			fmt.Sprintf("SELECT COUNT(*) AS total FROM %s WHERE name = $1", postgresTable),
			fmt.Sprintf("SELECT COUNT(*) AS total FROM %s WHERE name = ?", sqliteTable),
		),
		countEntriesByPrefix: newCacheQuery(
			"SQC-CACHE-11",
			fmt.Sprintf("SELECT COUNT(*) AS total FROM %s WHERE name = $1 AND cachekey LIKE $2", postgresTable),
			fmt.Sprintf("SELECT COUNT(*) AS total FROM %s WHERE name = ? AND cachekey LIKE ?", sqliteTable),
		),
		purgeExpiredEntry: newCacheQuery(
			"SQC-CACHE-12",
			fmt.Sprintf("DELETE FROM %s WHERE cachekey = $1 AND name = $2 AND expiration <= $3", postgresTable),
			fmt.Sprintf("DELETE FROM %s WHERE cachekey = ? AND name = ? AND expiration <= ?", sqliteTable),
		),
		createTable: newCacheQuery(
			"SQC-CACHE-16",
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (cachekey TEXT NOT NULL, name TEXT NOT NULL, "+
				"cachevalue TEXT, expiration BIGINT NOT NULL, PRIMARY KEY (cachekey, name))", postgresTable),
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (cachekey TEXT NOT NULL, name TEXT NOT NULL, "+
				"cachevalue TEXT, expiration BIGINT NOT NULL, PRIMARY KEY (cachekey, name))", sqliteTable),
		),
		createExpirationIndex: newCacheQuery(
			"SQC-CACHE-17",
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_expiration ON %s (expiration)",
				sqliteTable, postgresTable),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_expiration ON %s (expiration)",
				sqliteTable, sqliteTable),
		),
	}
}

// buildGetEntriesQuery constructs a query returning the live rows for a set of keys.
func buildGetEntriesQuery(
	postgresTable, sqliteTable string,
	keys []string,
	name string,
	now int64,
) (model.DBQuery, []interface{}, error) {
	if len(keys) == 0 {
		return model.DBQuery{}, nil, fmt.Errorf("keys list cannot be empty")
	}
	// Build placeholders for IN clause
	args := make([]interface{}, 0, len(keys)+2)

	postgresPlaceholders := make([]string, len(keys))
	sqlitePlaceholders := make([]string, len(keys))

	for i, key := range keys {
		postgresPlaceholders[i] = fmt.Sprintf("$%d", i+1)
		sqlitePlaceholders[i] = "?"
		args = append(args, key)
	}
	args = append(args, name, now)

	baseQuery := "SELECT cachekey, cachevalue FROM %s WHERE cachekey IN (%s) AND name = %s AND expiration > %s"
	postgresQuery := fmt.Sprintf(baseQuery, postgresTable, strings.Join(postgresPlaceholders, ","),
		fmt.Sprintf("$%d", len(keys)+1), fmt.Sprintf("$%d", len(keys)+2))
	sqliteQuery := fmt.Sprintf(baseQuery, sqliteTable, strings.Join(sqlitePlaceholders, ","), "?", "?")

	query := model.DBQuery{
		ID:            "SQC-CACHE-13",
		Query:         postgresQuery,
		PostgresQuery: postgresQuery,
		SQLiteQuery:   sqliteQuery,
	}

	return query, args, nil
}

// buildDeleteEntriesQuery constructs a query deleting the rows for a set of keys.
func buildDeleteEntriesQuery(
	postgresTable, sqliteTable string,
	keys []string,
	name string,
) (model.DBQuery, []interface{}, error) {
	if len(keys) == 0 {
		return model.DBQuery{}, nil, fmt.Errorf("keys list cannot be empty")
	}
	args := make([]interface{}, 0, len(keys)+1)

	postgresPlaceholders := make([]string, len(keys))
	sqlitePlaceholders := make([]string, len(keys))

	for i, key := range keys {
		postgresPlaceholders[i] = fmt.Sprintf("$%d", i+1)
		sqlitePlaceholders[i] = "?"
		args = append(args, key)
	}
	args = append(args, name)

	baseQuery := "DELETE FROM %s WHERE cachekey IN (%s) AND name = %s"
	postgresQuery := fmt.Sprintf(baseQuery, postgresTable, strings.Join(postgresPlaceholders, ","),
		fmt.Sprintf("$%d", len(keys)+1))
	sqliteQuery := fmt.Sprintf(baseQuery, sqliteTable, strings.Join(sqlitePlaceholders, ","), "?")

	query := model.DBQuery{
		ID:            "SQC-CACHE-14",
		Query:         postgresQuery,
		PostgresQuery: postgresQuery,
		SQLiteQuery:   sqliteQuery,
	}

	return query, args, nil
}

// buildUpsertEntriesQuery constructs a single multi-row upsert covering the
// given number of entries. Arguments follow in (cachekey, name, cachevalue,
// expiration) order per entry.
func buildUpsertEntriesQuery(postgresTable, sqliteTable string, entryCount int) (model.DBQuery, error) {
	if entryCount <= 0 {
		return model.DBQuery{}, fmt.Errorf("entry count must be positive")
	}

	postgresRows := make([]string, entryCount)
	sqliteRows := make([]string, entryCount)

	for i := 0; i < entryCount; i++ {
		base := i * 4
		postgresRows[i] = fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4)
		sqliteRows[i] = "(?, ?, ?, ?)"
	}

	postgresQuery := fmt.Sprintf("INSERT INTO %s (cachekey, name, cachevalue, expiration) VALUES %s "+
		"ON CONFLICT (cachekey, name) DO UPDATE SET cachevalue = EXCLUDED.cachevalue, "+
		"expiration = EXCLUDED.expiration", postgresTable, strings.Join(postgresRows, ", "))
	sqliteQuery := fmt.Sprintf("INSERT OR REPLACE INTO %s (cachekey, name, cachevalue, expiration) VALUES %s",
		sqliteTable, strings.Join(sqliteRows, ", "))

	query := model.DBQuery{
		ID:            "SQC-CACHE-15",
		Query:         postgresQuery,
		PostgresQuery: postgresQuery,
		SQLiteQuery:   sqliteQuery,
	}

	return query, nil
}

// validateIdentifier ensures that a schema or table identifier contains only
// safe characters (letters, digits and underscores, not starting with a digit).
func validateIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	for i, char := range identifier {
		if char >= '0' && char <= '9' {
			if i == 0 {
				return fmt.Errorf("identifier '%s' cannot start with a digit", identifier)
			}
			continue
		}
		if !(char >= 'a' && char <= 'z' || char >= 'A' && char <= 'Z' || char == '_') {
			return fmt.Errorf("identifier '%s' contains invalid characters", identifier)
		}
	}
	return nil
}
