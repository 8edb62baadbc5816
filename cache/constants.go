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

const loggerComponentName = "CacheManager"

const (
	// defaultTableName is the table used when no table is configured.
	defaultTableName = "cache_entries"
	// defaultSweepFrequencySeconds is the minimum gap between expiry sweeps
	// when no frequency is configured.
	defaultSweepFrequencySeconds = 120
	// defaultMaxRandomSeconds is the expiration jitter bound when none is
	// configured. An explicit zero disables jitter.
	defaultMaxRandomSeconds = 120
)
