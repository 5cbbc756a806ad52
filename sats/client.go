// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Conn is the transport that carries encoded client frames to the host.
// Implementations must be safe for concurrent use.
type Conn interface {
	Send(ctx context.Context, frame []byte) error
}

// ConnFunc adapts a function to Conn.
type ConnFunc func(ctx context.Context, frame []byte) error

func (f ConnFunc) Send(ctx context.Context, frame []byte) error { return f(ctx, frame) }

// ErrLifecycleReducer is returned when a client tries to call a reducer
// that only the host may invoke.
var ErrLifecycleReducer = errors.New("sats: lifecycle reducers cannot be called by clients")

// Client encodes reducer calls against a registry and sends them over a
// Conn. It is safe for concurrent use once configured.
type Client struct {
	registry *Registry
	conn     Conn
	hook     CallHook
	logger   *slog.Logger
	nextID   atomic.Uint32
}

// NewClient creates a client for the module described by registry.
func NewClient(registry *Registry, conn Conn) *Client {
	return &Client{
		registry: registry,
		conn:     conn,
		logger:   slog.Default(),
	}
}

// Registry returns the registry the client encodes against.
func (c *Client) Registry() *Registry { return c.registry }

// SetCallHook registers a hook that is called around each reducer call.
func (c *Client) SetCallHook(hook CallHook) {
	c.hook = hook
}

// SetLogger replaces the logger used for hook failures and call tracing.
func (c *Client) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	c.logger = logger
}

// CallReducer encodes args for the named reducer and sends the frame. It
// returns the request id assigned to the call.
func (c *Client) CallReducer(ctx context.Context, name string, args any, flags CallReducerFlags) (uint32, error) {
	info := CallInfo{
		Module:    c.registry.Module(),
		Reducer:   name,
		RequestID: c.nextID.Add(1),
		Flags:     flags,
		Metadata:  map[string]string{},
	}

	var hookToken HookToken
	var hookActive bool
	stats := &CallStatistics{}

	if c.hook != nil {
		func() {
			defer func() {
				if rv := recover(); rv != nil {
					c.logger.Error("call hook start panic", "err", rv)
				}
			}()
			var hookCtx context.Context
			hookCtx, hookToken = c.hook.OnCallStart(ctx, info)
			if hookCtx != nil {
				ctx = hookCtx
			}
			hookActive = true
		}()
	}

	err := c.send(context.WithValue(ctx, callMetadataKey{}, info.Metadata), info, args, stats)

	if hookActive {
		func() {
			defer func() {
				if rv := recover(); rv != nil {
					c.logger.Error("call hook end panic", "err", rv)
				}
			}()
			c.hook.OnCallEnd(ctx, hookToken, info, stats, err)
		}()
	}

	if err != nil {
		return 0, err
	}
	return info.RequestID, nil
}

func (c *Client) send(ctx context.Context, info CallInfo, args any, stats *CallStatistics) error {
	def, err := c.registry.Reducer(info.Reducer)
	if err != nil {
		return err
	}
	if def.Lifecycle != NotLifecycle {
		return fmt.Errorf("%w: %s (%s)", ErrLifecycleReducer, def.Name, def.Lifecycle)
	}
	argBytes, err := c.registry.EncodeReducerArgs(info.Reducer, args)
	if err != nil {
		return err
	}
	frame, err := EncodeClientMessage(CallReducer{
		Reducer:   info.Reducer,
		Args:      argBytes,
		RequestID: info.RequestID,
		Flags:     info.Flags,
	})
	if err != nil {
		return fmt.Errorf("encoding call frame: %w", err)
	}
	c.logger.Debug("calling reducer",
		"module", info.Module, "reducer", info.Reducer,
		"request_id", info.RequestID, "flags", info.Flags, "bytes", len(frame))
	if err := c.conn.Send(ctx, frame); err != nil {
		return fmt.Errorf("sending %s: %w", info.Reducer, err)
	}
	stats.RecordFrame(int64(len(argBytes)), int64(len(frame)))
	return nil
}
