// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package benchmark provides deterministic fixtures for measuring the codec
// on chat module rows.
package benchmark

import (
	"fmt"
	"math/rand/v2"

	"github.com/Query-farm/sats-go/chat"
	"github.com/Query-farm/sats-go/sats"
)

// Users returns n deterministic user rows. Every third user has no name.
func Users(n int) []chat.User {
	rng := rand.New(rand.NewPCG(1, 2))
	out := make([]chat.User, n)
	for i := range out {
		out[i] = chat.User{
			Identity: sats.Identity{rng.Uint64(), rng.Uint64(), rng.Uint64(), rng.Uint64()},
			Online:   i%2 == 0,
		}
		if i%3 != 0 {
			name := fmt.Sprintf("user-%d", i)
			out[i].Name = &name
		}
	}
	return out
}

// Messages returns n deterministic message rows sent one second apart.
func Messages(n int) []chat.Message {
	users := Users(8)
	out := make([]chat.Message, n)
	for i := range out {
		out[i] = chat.Message{
			Sender: users[i%len(users)].Identity,
			Sent:   sats.Timestamp(1_700_000_000_000_000 + int64(i)*1_000_000),
			Text:   fmt.Sprintf("message %d with some padding text", i),
		}
	}
	return out
}

// EncodeUsers encodes rows back to back, as a table update carries them.
func EncodeUsers(rows []chat.User) ([]byte, error) {
	w := sats.NewWriter(len(rows) * 64)
	for _, u := range rows {
		if err := u.Serialize(w); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// EncodeMessages encodes rows back to back.
func EncodeMessages(rows []chat.Message) ([]byte, error) {
	w := sats.NewWriter(len(rows) * 80)
	for _, m := range rows {
		if err := m.Serialize(w); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}
