// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Query-farm/sats-go/sats"
)

// RemoteTables holds the client-side views of the module's tables.
type RemoteTables struct {
	Message *MessageTable
	User    *UserTable
}

// NewRemoteTables creates empty table views for the tables in registry.
func NewRemoteTables(registry *sats.Registry) *RemoteTables {
	return &RemoteTables{
		Message: &MessageTable{},
		User:    &UserTable{registry: registry, rows: make(map[sats.Identity]User)},
	}
}

// decodeRows decodes rows laid out back to back.
func decodeRows[T any](data []byte, read func(*sats.Reader) (T, error)) ([]T, error) {
	r := sats.NewReader(data)
	var rows []T
	for r.Remaining() > 0 {
		start := r.Offset()
		row, err := read(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(rows), err)
		}
		if r.Offset() == start {
			return nil, fmt.Errorf("row %d: %w", len(rows),
				&sats.Error{Kind: sats.InvalidLength, Message: "row consumed no bytes"})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// MessageTable is the client view of the message table. Messages have no
// primary key and are kept in arrival order.
type MessageTable struct {
	mu   sync.RWMutex
	rows []Message
}

// Decode decodes a buffer of message rows without storing them.
func (t *MessageTable) Decode(data []byte) ([]Message, error) {
	return decodeRows(data, DeserializeMessage)
}

// Insert decodes and stores a buffer of message rows, returning them.
func (t *MessageTable) Insert(data []byte) ([]Message, error) {
	rows, err := t.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MessageTableName, err)
	}
	t.mu.Lock()
	t.rows = append(t.rows, rows...)
	t.mu.Unlock()
	return rows, nil
}

// Count returns the number of stored messages.
func (t *MessageTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Iter returns a copy of the stored messages ordered by sent time.
func (t *MessageTable) Iter() []Message {
	t.mu.RLock()
	out := append([]Message(nil), t.rows...)
	t.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sent < out[j].Sent })
	return out
}

// UserTable is the client view of the user table, keyed by identity.
type UserTable struct {
	registry *sats.Registry
	mu       sync.RWMutex
	rows     map[sats.Identity]User
}

// PrimaryKey returns the name of the column that keys the table.
func (t *UserTable) PrimaryKey() string {
	def, err := t.registry.Table(UserTableName)
	if err != nil {
		return ""
	}
	return def.PrimaryKey
}

// Decode decodes a buffer of user rows without storing them.
func (t *UserTable) Decode(data []byte) ([]User, error) {
	return decodeRows(data, DeserializeUser)
}

// Insert decodes a buffer of user rows and upserts them by identity.
func (t *UserTable) Insert(data []byte) ([]User, error) {
	rows, err := t.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", UserTableName, err)
	}
	t.mu.Lock()
	for _, u := range rows {
		t.rows[u.Identity] = u
	}
	t.mu.Unlock()
	return rows, nil
}

// Delete decodes a buffer of user rows and removes them by identity.
func (t *UserTable) Delete(data []byte) ([]User, error) {
	rows, err := t.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", UserTableName, err)
	}
	t.mu.Lock()
	for _, u := range rows {
		delete(t.rows, u.Identity)
	}
	t.mu.Unlock()
	return rows, nil
}

// FindByIdentity looks a user up by primary key.
func (t *UserTable) FindByIdentity(id sats.Identity) (User, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	u, ok := t.rows[id]
	return u, ok
}

// Count returns the number of stored users.
func (t *UserTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Online returns the users currently online, ordered by identity.
func (t *UserTable) Online() []User {
	t.mu.RLock()
	var out []User
	for _, u := range t.rows {
		if u.Online {
			out = append(out, u)
		}
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Identity.String() < out[j].Identity.String() })
	return out
}
