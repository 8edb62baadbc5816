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

// Package serializer provides payload encoding for cache values.
package serializer

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrSerialization is returned when a cache payload cannot be encoded or decoded.
var ErrSerialization = errors.New("serialization error")

// SerializerInterface defines the contract for encoding cache values to and
// from their stored payload form.
type SerializerInterface interface {
	// Serialize encodes a value into its stored payload form.
	Serialize(value interface{}) ([]byte, error)
	// Deserialize decodes a stored payload into the given target.
	Deserialize(data []byte, target interface{}) error
	// Name returns the name of the serialization format.
	Name() string
}

// JSONSerializer is the default serializer, encoding values as JSON.
type JSONSerializer struct{}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer() SerializerInterface {
	return &JSONSerializer{}
}

// Serialize encodes a value into its JSON form.
func (s *JSONSerializer) Serialize(value interface{}) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return data, nil
}

// Deserialize decodes a JSON payload into the given target.
func (s *JSONSerializer) Deserialize(data []byte, target interface{}) error {
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return nil
}

// Name returns the name of the serialization format.
func (s *JSONSerializer) Name() string {
	return "json"
}
