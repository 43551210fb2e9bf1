// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"testing"
)

func TestPipeDeliversInOrderThenCloses(t *testing.T) {
	a, b := Pipe("/game")
	for i := range 3 {
		if err := a.Send([]byte{byte(i)}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	a.Close()
	for i := range 3 {
		frame, err := b.Receive()
		if err != nil || frame[0] != byte(i) {
			t.Fatalf("Receive %d = %v, %v", i, frame, err)
		}
	}
	if _, err := b.Receive(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Receive after close = %v", err)
	}
	if err := b.Send([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after close = %v", err)
	}
}

func TestPipeDialer(t *testing.T) {
	var dialer PipeDialer
	accepted := make(chan Conn, 1)
	dialer.Register("ws://jump:7701/jump", func(conn Conn) { accepted <- conn })

	client, err := dialer.Dial(context.Background(), "ws://jump:7701/jump")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	server := <-accepted
	if err := client.Send([]byte("hi")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if frame, err := server.Receive(); err != nil || string(frame) != "hi" {
		t.Fatalf("Receive = %q, %v", frame, err)
	}

	dialer.Unregister("ws://jump:7701/jump")
	var dialErr *DialError
	if _, err := dialer.Dial(context.Background(), "ws://jump:7701/jump"); !errors.As(err, &dialErr) {
		t.Fatalf("Dial after Unregister = %v", err)
	}
}
