// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package benchmark

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/go-cmp/cmp"

	"github.com/Query-farm/sats-go/chat"
	"github.com/Query-farm/sats-go/sats"
)

func TestFixturesRoundTrip(t *testing.T) {
	t.Parallel()
	users := Users(30)
	data, err := EncodeUsers(users)
	if err != nil {
		t.Fatal(err)
	}
	tables := chat.NewRemoteTables(chat.NewRemoteModule())
	got, err := tables.User.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(users, got); diff != "" {
		t.Errorf("users changed:\n%s", diff)
	}

	msgs := Messages(30)
	data, err = EncodeMessages(msgs)
	if err != nil {
		t.Fatal(err)
	}
	gotMsgs, err := tables.Message.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(msgs, gotMsgs); diff != "" {
		t.Errorf("messages changed:\n%s", diff)
	}
}

func TestFixturesAreDeterministic(t *testing.T) {
	t.Parallel()
	if diff := cmp.Diff(Users(5), Users(5)); diff != "" {
		t.Errorf("Users is not deterministic:\n%s", diff)
	}
}

func BenchmarkEncodeMessages(b *testing.B) {
	msgs := Messages(1000)
	b.ReportAllocs()
	for b.Loop() {
		if _, err := EncodeMessages(msgs); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeMessages(b *testing.B) {
	data, err := EncodeMessages(Messages(1000))
	if err != nil {
		b.Fatal(err)
	}
	table := &chat.MessageTable{}
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	for b.Loop() {
		if _, err := table.Decode(data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeUsersDynamic(b *testing.B) {
	data, err := EncodeUsers(Users(1000))
	if err != nil {
		b.Fatal(err)
	}
	registry := chat.NewRemoteModule()
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	for b.Loop() {
		if _, err := registry.DecodeRows(chat.UserTableName, data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUsersToArrow(b *testing.B) {
	data, err := EncodeUsers(Users(1000))
	if err != nil {
		b.Fatal(err)
	}
	registry := chat.NewRemoteModule()
	rows, err := registry.DecodeRows(chat.UserTableName, data)
	if err != nil {
		b.Fatal(err)
	}
	mem := memory.NewGoAllocator()
	b.ReportAllocs()
	for b.Loop() {
		rec, err := registry.TableRecord(mem, chat.UserTableName, rows)
		if err != nil {
			b.Fatal(err)
		}
		rec.Release()
	}
}

func BenchmarkMarshalReducer(b *testing.B) {
	r := chat.Reducer{Name: "SendMessage", Args: chat.SendMessage{Msg: "hello there"}}
	b.ReportAllocs()
	for b.Loop() {
		if _, err := sats.Marshal(r); err != nil {
			b.Fatal(err)
		}
	}
}
