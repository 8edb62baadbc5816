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

// Package model defines the data structures and interfaces for database operations.
package model

import (
	"context"
	"database/sql"
)

// DBInterface defines the wrapper interface for database operations.
//
// Both *sql.DB and the scoped Conn wrapper satisfy it, so callers cannot tell
// whether they hold a pooled handle or a single checked out connection.
type DBInterface interface {
	Query(query string, args ...any) (*sql.Rows, error)
	Exec(query string, args ...any) (sql.Result, error)
	Begin() (*sql.Tx, error)
	Close() error
}

// Conn is the implementation of DBInterface over a single connection checked
// out of a pool. Close returns the connection to the pool instead of closing
// the underlying session.
type Conn struct {
	internal *sql.Conn
}

// NewConn creates a new instance of Conn with the provided sql.Conn.
func NewConn(conn *sql.Conn) DBInterface {
	return &Conn{
		internal: conn,
	}
}

// Query executes a query that returns rows, typically a SELECT, and returns the result as *sql.Rows.
func (c *Conn) Query(query string, args ...any) (*sql.Rows, error) {
	return c.internal.QueryContext(context.Background(), query, args...)
}

// Exec executes a query without returning data in any rows, and returns sql.Result.
func (c *Conn) Exec(query string, args ...any) (sql.Result, error) {
	return c.internal.ExecContext(context.Background(), query, args...)
}

// Begin starts a new database transaction and returns *sql.Tx.
func (c *Conn) Begin() (*sql.Tx, error) {
	return c.internal.BeginTx(context.Background(), nil)
}

// Ping verifies the underlying connection is still alive.
func (c *Conn) Ping() error {
	return c.internal.PingContext(context.Background())
}

// Close returns the connection to the pool.
func (c *Conn) Close() error {
	return c.internal.Close()
}

// TxInterface defines the wrapper interface for transaction management.
type TxInterface interface {
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction.
	Rollback() error
	// Exec executes a query with the given arguments.
	Exec(query string, args ...any) (sql.Result, error)
}

// Tx is the implementation of TxInterface for managing database transactions.
type Tx struct {
	internal *sql.Tx
}

// NewTx creates a new instance of Tx with the provided sql.Tx.
func NewTx(tx *sql.Tx) TxInterface {
	return &Tx{
		internal: tx,
	}
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.internal.Commit()
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback() error {
	return t.internal.Rollback()
}

// Exec executes a query with the given arguments.
func (t *Tx) Exec(query string, args ...any) (sql.Result, error) {
	return t.internal.Exec(query, args...)
}
