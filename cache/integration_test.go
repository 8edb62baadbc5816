/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/sqlcache/config"
	"github.com/asgardeo/sqlcache/database/provider"
)

type cachedUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IntegrationTestSuite exercises the cache managers against a real SQLite
// database file shared through one connection provider.
type IntegrationTestSuite struct {
	suite.Suite
	cfg        *config.Config
	dbProvider provider.DBProviderInterface
	users      CacheManagerInterface[cachedUser]
	sessions   CacheManagerInterface[string]
	scratch    CacheManagerInterface[string]
	sweeper    CacheManagerInterface[string]
}

// TestIntegrationSuite runs the integration test suite.
func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}

// SetupSuite opens a file backed SQLite database so that every pooled
// connection observes the same data, and builds the managers under test.
// Jitter is disabled throughout to keep expirations deterministic.
func (suite *IntegrationTestSuite) SetupSuite() {
	suite.cfg = &config.Config{
		DataSources: []config.DataSource{
			{
				Name:         "runtime",
				Type:         "sqlite",
				Path:         filepath.Join(suite.T().TempDir(), "cache.db"),
				Options:      "_pragma=busy_timeout(5000)",
				MaxOpenConns: 4,
				MaxIdleConns: 2,
			},
		},
		Caches: []config.CacheProperty{
			{Name: "users", DataSource: "runtime", MaxRandomSeconds: intPtr(0)},
			{Name: "sessions", DataSource: "runtime", MaxRandomSeconds: intPtr(0)},
			{Name: "scratch", DataSource: "runtime", MaxRandomSeconds: intPtr(0)},
			{
				Name:             "sweeper",
				DataSource:       "runtime",
				Table:            "sweep_cache",
				SweepFrequency:   1,
				MaxRandomSeconds: intPtr(0),
			},
		},
	}

	dbProvider, err := provider.NewDBProvider(suite.cfg)
	if err != nil {
		suite.T().Fatalf("Failed to create database provider: %v", err)
	}
	suite.dbProvider = dbProvider

	suite.users, err = NewCacheManager[cachedUser](suite.cfg, "users", suite.dbProvider, nil)
	assert.NoError(suite.T(), err)

	suite.sessions, err = NewCacheManager[string](suite.cfg, "sessions", suite.dbProvider, nil)
	assert.NoError(suite.T(), err)

	suite.scratch, err = NewCacheManager[string](suite.cfg, "scratch", suite.dbProvider, nil)
	assert.NoError(suite.T(), err)

	suite.sweeper, err = NewCacheManager[string](suite.cfg, "sweeper", suite.dbProvider, nil)
	assert.NoError(suite.T(), err)
}

func (suite *IntegrationTestSuite) TearDownSuite() {
	if suite.dbProvider != nil {
		assert.NoError(suite.T(), suite.dbProvider.Close())
	}
}

func (suite *IntegrationTestSuite) TestSetAndGetRoundTrip() {
	user := cachedUser{ID: "u-100", Email: "alice@example.com"}

	before := suite.users.GetCacheStat()

	err := suite.users.Set("rt:u-100", user, time.Minute)
	assert.NoError(suite.T(), err)

	exists, err := suite.users.Exists("rt:u-100")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), exists)

	value, err := suite.users.Get("rt:u-100")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), value.HasValue)
	assert.Equal(suite.T(), user, value.Value)

	missing, err := suite.users.Get("rt:missing")
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), missing.HasValue)

	after := suite.users.GetCacheStat()
	assert.Equal(suite.T(), before.HitCount+1, after.HitCount)
	assert.Equal(suite.T(), before.MissCount+1, after.MissCount)
}

func (suite *IntegrationTestSuite) TestExpirationHidesEntry() {
	err := suite.users.Set("exp:short", cachedUser{ID: "u-exp"}, time.Second)
	assert.NoError(suite.T(), err)

	value, err := suite.users.Get("exp:short")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), value.HasValue)

	time.Sleep(2100 * time.Millisecond)

	value, err = suite.users.Get("exp:short")
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), value.HasValue)

	exists, err := suite.users.Exists("exp:short")
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), exists)

	// The dead row is hidden from reads but still counted until swept.
	count, err := suite.users.GetCount("exp:")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *IntegrationTestSuite) TestTrySetOnlyFirstWins() {
	stored, err := suite.sessions.TrySet("lock:job", "owner-a", time.Minute)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), stored)

	stored, err = suite.sessions.TrySet("lock:job", "owner-b", time.Minute)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), stored)

	value, err := suite.sessions.Get("lock:job")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "owner-a", value.Value)
}

func (suite *IntegrationTestSuite) TestTrySetReclaimsExpiredEntry() {
	stored, err := suite.sessions.TrySet("lock:stale", "owner-a", time.Second)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), stored)

	time.Sleep(2100 * time.Millisecond)

	// The expired row still occupies the primary key until purged, so the
	// conditional insert has to reclaim it.
	stored, err = suite.sessions.TrySet("lock:stale", "owner-b", time.Minute)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), stored)

	value, err := suite.sessions.Get("lock:stale")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "owner-b", value.Value)
}

func (suite *IntegrationTestSuite) TestCachesAreIsolatedByName() {
	err := suite.sessions.Set("iso:shared", "session-value", time.Minute)
	assert.NoError(suite.T(), err)

	err = suite.scratch.Set("iso:shared", "scratch-value", time.Minute)
	assert.NoError(suite.T(), err)

	sessionValue, err := suite.sessions.Get("iso:shared")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "session-value", sessionValue.Value)

	scratchValue, err := suite.scratch.Get("iso:shared")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "scratch-value", scratchValue.Value)

	// Flushing one cache leaves the other cache's rows in the shared table.
	err = suite.scratch.Flush()
	assert.NoError(suite.T(), err)

	count, err := suite.scratch.GetCount("")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, count)

	sessionValue, err = suite.sessions.Get("iso:shared")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), sessionValue.HasValue)
}

func (suite *IntegrationTestSuite) TestBulkOperations() {
	entries := map[string]string{
		"bulk:a": "1",
		"bulk:b": "2",
		"bulk:c": "3",
	}
	err := suite.sessions.SetAll(entries, time.Minute)
	assert.NoError(suite.T(), err)

	values, err := suite.sessions.GetAll([]string{"bulk:a", "bulk:b", "bulk:missing"})
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), values, 3)
	assert.Equal(suite.T(), "1", values["bulk:a"].Value)
	assert.Equal(suite.T(), "2", values["bulk:b"].Value)
	assert.False(suite.T(), values["bulk:missing"].HasValue)

	byPrefix, err := suite.sessions.GetByPrefix("bulk:")
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), byPrefix, 3)

	count, err := suite.sessions.GetCount("bulk:")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, count)

	err = suite.sessions.RemoveByPrefix("bulk:")
	assert.NoError(suite.T(), err)

	byPrefix, err = suite.sessions.GetByPrefix("bulk:")
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), byPrefix)

	count, err = suite.sessions.GetCount("bulk:")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, count)
}

func (suite *IntegrationTestSuite) TestRemoveOperations() {
	err := suite.sessions.SetAll(map[string]string{
		"rm:1": "a",
		"rm:2": "b",
		"rm:3": "c",
	}, time.Minute)
	assert.NoError(suite.T(), err)

	err = suite.sessions.Remove("rm:1")
	assert.NoError(suite.T(), err)

	value, err := suite.sessions.Get("rm:1")
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), value.HasValue)

	// Removing an absent key is not an error.
	err = suite.sessions.Remove("rm:absent")
	assert.NoError(suite.T(), err)

	err = suite.sessions.RemoveAll([]string{"rm:2", "rm:3"})
	assert.NoError(suite.T(), err)

	count, err := suite.sessions.GetCount("rm:")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, count)
}

func (suite *IntegrationTestSuite) TestRefreshReplacesValue() {
	err := suite.sessions.Set("refresh:token", "old", time.Minute)
	assert.NoError(suite.T(), err)

	err = suite.sessions.Refresh("refresh:token", "new", time.Minute)
	assert.NoError(suite.T(), err)

	value, err := suite.sessions.Get("refresh:token")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "new", value.Value)

	count, err := suite.sessions.GetCount("refresh:")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *IntegrationTestSuite) TestGetWithRetrieverFillsOnMiss() {
	retrieverCalls := 0
	retriever := func() (cachedUser, bool, error) {
		retrieverCalls++
		return cachedUser{ID: "u-200", Email: "bob@example.com"}, true, nil
	}

	value, err := suite.users.GetWithRetriever("fill:u-200", retriever, time.Minute)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), value.HasValue)
	assert.Equal(suite.T(), "u-200", value.Value.ID)
	assert.Equal(suite.T(), 1, retrieverCalls)

	// The computed value is now served from the table.
	value, err = suite.users.GetWithRetriever("fill:u-200", retriever, time.Minute)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), value.HasValue)
	assert.Equal(suite.T(), 1, retrieverCalls)
}

func (suite *IntegrationTestSuite) TestValuesSurviveManagerRestart() {
	err := suite.users.Set("restart:u-300", cachedUser{ID: "u-300"}, time.Minute)
	assert.NoError(suite.T(), err)

	reopened, err := NewCacheManager[cachedUser](suite.cfg, "users", suite.dbProvider, nil)
	assert.NoError(suite.T(), err)

	value, err := reopened.Get("restart:u-300")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), value.HasValue)
	assert.Equal(suite.T(), "u-300", value.Value.ID)

	// Hit and miss counters are per instance, not persisted.
	stat := reopened.GetCacheStat()
	assert.Equal(suite.T(), int64(1), stat.HitCount)
	assert.Equal(suite.T(), int64(0), stat.MissCount)
}

func (suite *IntegrationTestSuite) TestExpiredSweepPurgesRows() {
	err := suite.sweeper.SetAll(map[string]string{
		"sw:gone-1": "a",
		"sw:gone-2": "b",
	}, time.Second)
	assert.NoError(suite.T(), err)

	count, err := suite.sweeper.GetCount("sw:gone")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, count)

	// Let the rows expire and the sweep frequency elapse.
	time.Sleep(2100 * time.Millisecond)

	err = suite.sweeper.Set("sw:live", "keep", 2*time.Minute)
	assert.NoError(suite.T(), err)

	assert.Eventually(suite.T(), func() bool {
		count, err := suite.sweeper.GetCount("sw:gone")
		return err == nil && count == 0
	}, 5*time.Second, 100*time.Millisecond, "expired rows were not swept")

	count, err = suite.sweeper.GetCount("sw:live")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}
