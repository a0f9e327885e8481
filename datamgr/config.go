// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package datamgr

// Default configuration values.
const (
	DefaultStoragePath     = "./pthm-data"
	DefaultMaxInFlightTxns = 16
)

// Config configures a Store.
type Config struct {
	StoragePath     string
	InMemory        bool
	MaxInFlightTxns int64
}

// Option is a function that modifies a configuration.
type Option func(*Config)

// DefaultConfig is the store's default configuration.
var DefaultConfig = Config{
	StoragePath:     DefaultStoragePath,
	InMemory:        false,
	MaxInFlightTxns: DefaultMaxInFlightTxns,
}

// WithStoragePath specifies the directory in which to store PTHM objects on
// disk. Ignored if WithInMemory is set.
func WithStoragePath(path string) Option {
	return func(config *Config) {
		config.StoragePath = path
	}
}

// WithInMemory keeps the store entirely in memory, which is convenient for
// tests and short-lived tools but loses all data on process exit.
func WithInMemory(inMemory bool) Option {
	return func(config *Config) {
		config.InMemory = inMemory
	}
}

// WithMaxInFlightTxns bounds how many transactions the store will have open
// against the database at once.
func WithMaxInFlightTxns(max int64) Option {
	return func(config *Config) {
		config.MaxInFlightTxns = max
	}
}
