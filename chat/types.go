// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"github.com/Query-farm/sats-go/sats"
)

// Message is a row of the message table.
type Message struct {
	Sender sats.Identity  `sats:"sender"`
	Sent   sats.Timestamp `sats:"sent"`
	Text   string         `sats:"text"`
}

// User is a row of the user table, keyed by identity.
type User struct {
	Identity sats.Identity `sats:"identity"`
	Name     *string       `sats:"name"`
	Online   bool          `sats:"online"`
}

var (
	messageType = sats.MustProductType(
		sats.Field("sender", sats.IdentityType()),
		sats.Field("sent", sats.TimestampType()),
		sats.Field("text", sats.StringType()),
	)
	userType = sats.MustProductType(
		sats.Field("identity", sats.IdentityType()),
		sats.Field("name", sats.OptionOf(sats.StringType())),
		sats.Field("online", sats.BoolType()),
	)
)

func (Message) AlgebraicType() sats.AlgebraicType { return messageType }

// Serialize appends the encoded row to w.
func (m Message) Serialize(w *sats.Writer) error { return sats.Serialize(w, messageType, m) }

// DeserializeMessage reads one message row from r.
func DeserializeMessage(r *sats.Reader) (Message, error) {
	var m Message
	err := deserializeInto(r, messageType, &m)
	return m, err
}

func (User) AlgebraicType() sats.AlgebraicType { return userType }

// Serialize appends the encoded row to w.
func (u User) Serialize(w *sats.Writer) error { return sats.Serialize(w, userType, u) }

// DeserializeUser reads one user row from r.
func DeserializeUser(r *sats.Reader) (User, error) {
	var u User
	err := deserializeInto(r, userType, &u)
	return u, err
}

// DisplayName returns the user's name, or the short identity when unset.
func (u User) DisplayName() string {
	if u.Name != nil {
		return *u.Name
	}
	return u.Identity.String()[:8]
}

func deserializeInto(r *sats.Reader, t sats.AlgebraicType, target any) error {
	v, err := sats.Deserialize(r, t)
	if err != nil {
		return err
	}
	return sats.Assign(target, v)
}
