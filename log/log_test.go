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

package log

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type LogTestSuite struct {
	suite.Suite
}

func TestLogSuite(t *testing.T) {
	suite.Run(t, new(LogTestSuite))
}

func (suite *LogTestSuite) SetupTest() {
	logger = nil
	once = sync.Once{}
	err := os.Unsetenv(LogLevelEnvironmentVariable)
	assert.NoError(suite.T(), err)
}

func (suite *LogTestSuite) TearDownTest() {
	logger = nil
	once = sync.Once{}
	err := os.Unsetenv(LogLevelEnvironmentVariable)
	assert.NoError(suite.T(), err)
}

func (suite *LogTestSuite) TestGetLoggerSingleton() {
	logger1 := GetLogger()
	logger2 := GetLogger()

	assert.NotNil(suite.T(), logger1)
	assert.Same(suite.T(), logger1, logger2)
}

func (suite *LogTestSuite) TestGetLoggerWithLogLevelEnv() {
	err := os.Setenv(LogLevelEnvironmentVariable, "debug")
	assert.NoError(suite.T(), err)

	assert.True(suite.T(), GetLogger().IsDebugEnabled())
}

func (suite *LogTestSuite) TestParseLogLevel() {
	testCases := []struct {
		name     string
		level    string
		expected zapcore.Level
	}{
		{"DebugLevel", "debug", zapcore.DebugLevel},
		{"InfoLevel", "info", zapcore.InfoLevel},
		{"WarnLevel", "warn", zapcore.WarnLevel},
		{"ErrorLevel", "error", zapcore.ErrorLevel},
		{"UpperCase", "DEBUG", zapcore.DebugLevel},
		{"MixedCase", "Info", zapcore.InfoLevel},
		{"Empty", "", zapcore.InfoLevel},
		{"Invalid", "invalid", zapcore.InfoLevel},
	}

	for _, tc := range testCases {
		suite.T().Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseLogLevel(tc.level))
		})
	}
}

func (suite *LogTestSuite) TestLogMethods() {
	core, observed := observer.New(zapcore.DebugLevel)
	testLogger := &Logger{internal: zap.New(core)}

	testLogger.Debug("debug message", String("key", "value"))
	testLogger.Info("info message", Int("count", 5))
	testLogger.Warn("warn message")
	testLogger.Error("error message", Error(errors.New("test error")))

	entries := observed.All()
	assert.Len(suite.T(), entries, 4)

	assert.Equal(suite.T(), zapcore.DebugLevel, entries[0].Level)
	assert.Equal(suite.T(), "debug message", entries[0].Message)
	assert.Equal(suite.T(), "value", entries[0].ContextMap()["key"])

	assert.Equal(suite.T(), zapcore.InfoLevel, entries[1].Level)
	assert.Equal(suite.T(), int64(5), entries[1].ContextMap()["count"])

	assert.Equal(suite.T(), zapcore.WarnLevel, entries[2].Level)
	assert.Equal(suite.T(), zapcore.ErrorLevel, entries[3].Level)
}

func (suite *LogTestSuite) TestLoggerWith() {
	core, observed := observer.New(zapcore.InfoLevel)
	testLogger := &Logger{internal: zap.New(core)}

	componentLogger := testLogger.With(String(LoggerKeyComponentName, "CacheManager"))
	componentLogger.Info("message with component")

	entries := observed.All()
	assert.Len(suite.T(), entries, 1)
	assert.Equal(suite.T(), "CacheManager", entries[0].ContextMap()[LoggerKeyComponentName])
}

func (suite *LogTestSuite) TestLoggerLevelFiltering() {
	core, observed := observer.New(zapcore.WarnLevel)
	testLogger := &Logger{internal: zap.New(core)}

	testLogger.Debug("filtered debug")
	testLogger.Info("filtered info")
	testLogger.Warn("kept warn")

	assert.False(suite.T(), testLogger.IsDebugEnabled())
	assert.Len(suite.T(), observed.All(), 1)
	assert.Equal(suite.T(), "kept warn", observed.All()[0].Message)
}

func (suite *LogTestSuite) TestNopLogger() {
	nop := Nop()
	assert.NotNil(suite.T(), nop)
	assert.False(suite.T(), nop.IsDebugEnabled())

	// Must not panic or emit anything.
	nop.Info("discarded message", String("key", "value"))
	nop.Error("discarded error")
}

func (suite *LogTestSuite) TestConvertFields() {
	testError := errors.New("conversion error")
	fields := []Field{
		String("stringKey", "stringValue"),
		Int("intKey", 42),
		Int64("int64Key", int64(64)),
		Bool("boolKey", true),
		Any("anyKey", []string{"a", "b"}),
		Error(testError),
	}

	zapFields := convertFields(fields)
	assert.Len(suite.T(), zapFields, 6)
	assert.Equal(suite.T(), "stringKey", zapFields[0].Key)
	assert.Equal(suite.T(), "error", zapFields[5].Key)
}

func (suite *LogTestSuite) TestMaskString() {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Empty", "", ""},
		{"SingleChar", "a", "*"},
		{"ThreeChars", "abc", "***"},
		{"FourChars", "abcd", "a**d"},
		{"LongString", "supersecret", "s*********t"},
	}

	for _, tc := range testCases {
		suite.T().Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MaskString(tc.input))
		})
	}
}
