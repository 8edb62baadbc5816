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

// CacheValue represents the result of a cache lookup. HasValue distinguishes a
// stored value from a missing or expired entry, so a stored zero value is not
// mistaken for a miss.
type CacheValue[T any] struct {
	Value    T
	HasValue bool
}

// DataRetriever computes a value for a key on cache miss. The boolean result
// reports whether a value was produced; returning false skips the store and
// the lookup reports no value.
type DataRetriever[T any] func() (T, bool, error)

// CacheStat represents cache statistics.
type CacheStat struct {
	HitCount  int64
	MissCount int64
	HitRate   float64
}
