// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/Query-farm/sats-go/sats"
)

// ModuleName is the name the chat module is published under.
const ModuleName = "quickstart-chat"

// Table names as registered by the module.
const (
	MessageTableName = "message"
	UserTableName    = "user"
)

// Validation failures, worded as the module reports them. The text must
// match the server's messages byte for byte, so it does not follow Go error
// string conventions.
var (
	ErrEmptyName    = errors.New("Name must not be empty")
	ErrEmptyMessage = errors.New("Message can't be empty!")
)

// ValidateName rejects names the module would refuse.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	return nil
}

// ValidateMessage rejects messages the module would refuse.
func ValidateMessage(text string) error {
	if text == "" {
		return ErrEmptyMessage
	}
	return nil
}

// NewRemoteModule returns a registry describing the chat module's tables
// and reducers. Each call returns a fresh registry.
func NewRemoteModule() *sats.Registry {
	r := sats.NewRegistry(ModuleName)
	mustAdd(r.AddTable(sats.TableDef{Name: MessageTableName, RowType: messageType}))
	mustAdd(r.AddTable(sats.TableDef{Name: UserTableName, RowType: userType, PrimaryKey: "identity"}))
	mustAdd(r.AddReducer(sats.ReducerDef{Name: ClientConnectedReducer, ArgsType: clientConnectedType, Lifecycle: sats.OnConnect}))
	mustAdd(r.AddReducer(sats.ReducerDef{Name: ClientDisconnectedReducer, ArgsType: clientDisconnectedType, Lifecycle: sats.OnDisconnect}))
	mustAdd(r.AddReducer(sats.ReducerDef{Name: SendMessageReducer, ArgsType: sendMessageType}))
	mustAdd(r.AddReducer(sats.ReducerDef{Name: SetNameReducer, ArgsType: setNameType}))
	return r
}

func mustAdd(err error) {
	if err != nil {
		panic("chat: " + err.Error())
	}
}

// SetReducerFlags holds the per-reducer call flags. Every reducer starts
// at FullUpdate.
type SetReducerFlags struct {
	mu          sync.RWMutex
	sendMessage sats.CallReducerFlags
	setName     sats.CallReducerFlags
}

// NewSetReducerFlags returns flags with every reducer at FullUpdate.
func NewSetReducerFlags() *SetReducerFlags {
	return &SetReducerFlags{sendMessage: sats.FullUpdate, setName: sats.FullUpdate}
}

// SendMessage sets the flags used by send_message calls.
func (f *SetReducerFlags) SendMessage(flags sats.CallReducerFlags) {
	f.mu.Lock()
	f.sendMessage = flags
	f.mu.Unlock()
}

// SetName sets the flags used by set_name calls.
func (f *SetReducerFlags) SetName(flags sats.CallReducerFlags) {
	f.mu.Lock()
	f.setName = flags
	f.mu.Unlock()
}

func (f *SetReducerFlags) sendMessageFlags() sats.CallReducerFlags {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sendMessage
}

func (f *SetReducerFlags) setNameFlags() sats.CallReducerFlags {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.setName
}

// RemoteReducers calls the module's client-callable reducers.
type RemoteReducers struct {
	client *sats.Client
	flags  *SetReducerFlags
}

// NewRemoteReducers binds reducer calls to client using flags.
func NewRemoteReducers(client *sats.Client, flags *SetReducerFlags) *RemoteReducers {
	return &RemoteReducers{client: client, flags: flags}
}

// SendMessage posts a chat message. It returns the call's request id.
func (r *RemoteReducers) SendMessage(ctx context.Context, msg string) (uint32, error) {
	if err := ValidateMessage(msg); err != nil {
		return 0, err
	}
	return r.client.CallReducer(ctx, SendMessageReducer, SendMessage{Msg: msg}, r.flags.sendMessageFlags())
}

// SetName sets the caller's display name. It returns the call's request id.
func (r *RemoteReducers) SetName(ctx context.Context, name string) (uint32, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	return r.client.CallReducer(ctx, SetNameReducer, SetName{Name: name}, r.flags.setNameFlags())
}

// Connection bundles everything a chat client needs on top of a transport.
type Connection struct {
	Client          *sats.Client
	Reducers        *RemoteReducers
	SetReducerFlags *SetReducerFlags
	Db              *RemoteTables
}

// NewConnection builds a chat connection over conn.
func NewConnection(conn sats.Conn) *Connection {
	registry := NewRemoteModule()
	client := sats.NewClient(registry, conn)
	flags := NewSetReducerFlags()
	return &Connection{
		Client:          client,
		Reducers:        NewRemoteReducers(client, flags),
		SetReducerFlags: flags,
		Db:              NewRemoteTables(registry),
	}
}
