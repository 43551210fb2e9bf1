// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"fmt"

	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

// Kind is the first byte of every frame.
type Kind byte

const (
	KindRealtime Kind = 1
	KindEvent    Kind = 2
	KindMethod   Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindRealtime:
		return "realtime"
	case KindEvent:
		return "event"
	case KindMethod:
		return "method"
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

// Frame is one decoded transport message.
type Frame struct {
	Kind Kind

	// Event and Method frames.
	Counter int64
	Name    wire.Key
	Params  wire.Map

	// Realtime frames.
	Code    int32
	Payload []byte
}

// Encode serializes f.
func (f Frame) Encode() ([]byte, error) {
	w := wire.NewWriter(make([]byte, 0, 64))
	w.PutByte(byte(f.Kind))
	switch f.Kind {
	case KindRealtime:
		w.PutInt32(f.Code)
		w.PutRaw(f.Payload)
	case KindEvent, KindMethod:
		w.PutInt64(f.Counter)
		w.PutKey(f.Name)
		w.PutMap(f.Params)
	default:
		return nil, fmt.Errorf("rpc: cannot encode frame of %v", f.Kind)
	}
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("rpc: encoding %v %s: %w", f.Kind, f.Name, err)
	}
	return w.Bytes(), nil
}

// DecodeFrame parses a transport message.
func DecodeFrame(data []byte) (Frame, error) {
	r := wire.NewReader(data)
	kind, err := r.ReadByte()
	if err != nil {
		return Frame{}, fmt.Errorf("rpc: reading frame kind: %w", err)
	}
	f := Frame{Kind: Kind(kind)}
	switch f.Kind {
	case KindRealtime:
		if f.Code, err = r.ReadInt32(); err != nil {
			return Frame{}, fmt.Errorf("rpc: reading realtime code: %w", err)
		}
		f.Payload = r.Rest()
		return f, nil
	case KindEvent, KindMethod:
		if f.Counter, err = r.ReadInt64(); err != nil {
			return Frame{}, fmt.Errorf("rpc: reading counter: %w", err)
		}
		if f.Name, err = r.ReadKey(); err != nil {
			return Frame{}, fmt.Errorf("rpc: reading operation name: %w", err)
		}
		if f.Params, err = r.ReadMap(); err != nil {
			return Frame{}, fmt.Errorf("rpc: reading %s parameters: %w", f.Name, err)
		}
		if r.Len() != 0 {
			return Frame{}, fmt.Errorf("rpc: %d trailing bytes after %s", r.Len(), f.Name)
		}
		return f, nil
	}
	return Frame{}, fmt.Errorf("rpc: unknown frame kind %d", kind)
}
