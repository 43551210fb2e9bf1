// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"bytes"
	"testing"

	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

func TestFrameRoundtrip(t *testing.T) {
	frames := []Frame{
		{Kind: KindMethod, Counter: 42, Name: "JoinRoom", Params: wire.Map{"RoomId": wire.String("r1")}},
		{Kind: KindEvent, Counter: 1, Name: "OnRoomUpdated", Params: wire.Map{}},
		{Kind: KindRealtime, Code: 3, Payload: []byte{1, 2, 3}},
	}
	for _, original := range frames {
		t.Run(original.Kind.String(), func(t *testing.T) {
			data, err := original.Encode()
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if Kind(data[0]) != original.Kind {
				t.Fatalf("first byte = %d", data[0])
			}
			decoded, err := DecodeFrame(data)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if decoded.Kind != original.Kind || decoded.Counter != original.Counter || decoded.Name != original.Name || decoded.Code != original.Code {
				t.Fatalf("decoded = %+v", decoded)
			}
			if !bytes.Equal(decoded.Payload, original.Payload) {
				t.Fatalf("payload = %v", decoded.Payload)
			}
			if original.Kind != KindRealtime && !decoded.Params.Equal(original.Params) {
				t.Fatalf("params = %v", decoded.Params)
			}
		})
	}
}

func TestDecodeFrameRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{{}, {9}, {byte(KindMethod), 1, 2}, {byte(KindRealtime), 1}} {
		if _, err := DecodeFrame(data); err == nil {
			t.Errorf("DecodeFrame(%v) succeeded", data)
		}
	}
}
