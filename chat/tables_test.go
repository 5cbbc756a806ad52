// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"testing"
	"time"

	"github.com/Query-farm/sats-go/sats"
	"github.com/google/go-cmp/cmp"
)

func encodeAll[T interface{ Serialize(*sats.Writer) error }](t *testing.T, rows ...T) []byte {
	t.Helper()
	w := sats.NewWriter(64)
	for _, row := range rows {
		if err := row.Serialize(w); err != nil {
			t.Fatal(err)
		}
	}
	return w.Bytes()
}

func ptr[T any](v T) *T { return &v }

func TestMessageRowRoundTrip(t *testing.T) {
	t.Parallel()
	sent := sats.TimestampFromTime(time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC))
	msg := Message{Sender: sats.Identity{7}, Sent: sent, Text: "hi"}
	data := encodeAll(t, msg)
	if len(data) != 32+8+4+2 {
		t.Fatalf("message row is %d bytes", len(data))
	}
	got, err := DeserializeMessage(sats.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(msg, got); diff != "" {
		t.Errorf("message changed:\n%s", diff)
	}
}

func TestMessageTable(t *testing.T) {
	t.Parallel()
	table := NewRemoteTables(NewRemoteModule()).Message
	late := Message{Sender: sats.Identity{1}, Sent: 300, Text: "late"}
	early := Message{Sender: sats.Identity{2}, Sent: 100, Text: "early"}
	if _, err := table.Insert(encodeAll(t, late, early)); err != nil {
		t.Fatal(err)
	}
	if table.Count() != 2 {
		t.Errorf("Count = %d", table.Count())
	}
	if diff := cmp.Diff([]Message{early, late}, table.Iter()); diff != "" {
		t.Errorf("Iter order:\n%s", diff)
	}

	data := encodeAll(t, early)
	if _, err := table.Insert(data[:len(data)-1]); sats.KindOf(err) != sats.InvalidLength {
		t.Errorf("truncated insert: got %v", err)
	}
	if table.Count() != 2 {
		t.Errorf("failed insert changed the table")
	}
}

func TestUserTable(t *testing.T) {
	t.Parallel()
	table := NewRemoteTables(NewRemoteModule()).User
	ann := User{Identity: sats.Identity{1}, Name: ptr("ann"), Online: true}
	bob := User{Identity: sats.Identity{2}, Online: true}
	cid := User{Identity: sats.Identity{3}, Name: ptr("cid")}

	if _, err := table.Insert(encodeAll(t, ann, bob, cid)); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]User{ann, bob}, table.Online()); diff != "" {
		t.Errorf("online users:\n%s", diff)
	}

	bob.Name = ptr("bob")
	bob.Online = false
	if _, err := table.Insert(encodeAll(t, bob)); err != nil {
		t.Fatal(err)
	}
	if table.Count() != 3 {
		t.Errorf("upsert changed count to %d", table.Count())
	}
	got, ok := table.FindByIdentity(bob.Identity)
	if !ok || got.DisplayName() != "bob" || got.Online {
		t.Errorf("FindByIdentity = %+v, %v", got, ok)
	}

	if _, err := table.Delete(encodeAll(t, ann)); err != nil {
		t.Fatal(err)
	}
	if _, ok := table.FindByIdentity(ann.Identity); ok {
		t.Error("deleted user still present")
	}
	if table.Count() != 2 {
		t.Errorf("Count = %d after delete", table.Count())
	}
}

func TestUserDisplayName(t *testing.T) {
	t.Parallel()
	u := User{Identity: sats.Identity{0, 0, 0, 0xabcdef0123456789}}
	if got := u.DisplayName(); got != "abcdef01" {
		t.Errorf("DisplayName = %q", got)
	}
	u.Name = ptr("neo")
	if got := u.DisplayName(); got != "neo" {
		t.Errorf("DisplayName = %q", got)
	}
}

func TestUserRowEncoding(t *testing.T) {
	t.Parallel()
	data := encodeAll(t, User{Identity: sats.Identity{1}, Online: true})
	want := append(append([]byte{1}, make([]byte, 31)...), 0x00, 0x01)
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("user row bytes:\n%s", diff)
	}
}

func TestDecodeRowsStopsOnZeroWidthRow(t *testing.T) {
	t.Parallel()
	nothing := func(*sats.Reader) (struct{}, error) { return struct{}{}, nil }
	if _, err := decodeRows([]byte{1}, nothing); sats.KindOf(err) != sats.InvalidLength {
		t.Errorf("got %v, want InvalidLength", err)
	}
}
