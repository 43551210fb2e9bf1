// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package room

import (
	"testing"

	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

func TestElectHostPromotesFirstRemaining(t *testing.T) {
	room := newTestRoom(t)
	room.Properties().Set(protocol.KeyMaxPlayers, wire.Int32(10))
	join(t, room, "host", wire.Map{protocol.KeyIsHost: wire.Bool(true)})
	second := join(t, room, "second", nil)
	third := join(t, room, "third", nil)

	owned := room.NewObject("owned", "Crate", wire.Map{protocol.KeyOwnerID: wire.String("host")})
	hosted := room.NewObject("hosted", "Ball", wire.Map{
		protocol.KeyOwnerID:  wire.String("second"),
		protocol.KeyHostID:   wire.String("host"),
		protocol.KeyVelocity: wire.Vector3(wire.Point3{X: 3}),
	})
	untouched := room.NewObject("untouched", "Ball", wire.Map{
		protocol.KeyOwnerID: wire.String("third"),
		protocol.KeyHostID:  wire.String("third"),
	})
	for _, object := range []*Object{owned, hosted, untouched} {
		if err := room.AddObject(object, false, NoOne); err != nil {
			t.Fatalf("AddObject(%s): %v", object.ID(), err)
		}
	}

	leaver, err := room.RemovePlayer("host", true, Except("host"))
	if err != nil {
		t.Fatalf("RemovePlayer: %v", err)
	}
	third.events = nil

	elected := room.ElectHost(leaver)
	if elected == nil || elected.ID() != "second" {
		t.Fatalf("ElectHost = %v, want second", elected)
	}
	if !elected.IsHost() {
		t.Fatal("new host not promoted")
	}

	if _, ok := room.Object("owned"); ok {
		t.Fatal("object owned by the leaver survived")
	}
	if got := hosted.HostID(); got != "second" {
		t.Fatalf("hosted object HostId = %q, want second", got)
	}
	if _, ok := hosted.Properties().Point3(protocol.KeyAngularVelocity); !ok {
		t.Fatal("rehosted object has no AngularVelocity")
	}
	if got := untouched.HostID(); got != "third" {
		t.Fatalf("untouched object HostId = %q", got)
	}

	want := []wire.Key{protocol.OnPlayerUpdated, protocol.OnObjectDestroyed, protocol.OnObjectUpdated}
	if got := third.names(); !sameKeys(got, want) {
		t.Fatalf("third received %v, want %v", got, want)
	}
	rehost := third.last(t).params.(protocol.UpdateObjectParams)
	if velocity, _ := rehost.ObjectProperties.Point3(protocol.KeyVelocity); velocity.X != 3 {
		t.Fatalf("rehost velocity = %v, want X=3", velocity)
	}
	if !second.last(t).params.(protocol.UpdateObjectParams).ObjectProperties.Has(protocol.KeyHostID) {
		t.Fatal("the new host was not told about the rehost")
	}
}

func TestElectHostKeepsExistingHost(t *testing.T) {
	room := newTestRoom(t)
	room.Properties().Set(protocol.KeyMaxPlayers, wire.Int32(10))
	join(t, room, "host", wire.Map{protocol.KeyIsHost: wire.Bool(true)})
	join(t, room, "guest", nil)
	other := join(t, room, "other", nil)

	leaver, err := room.RemovePlayer("guest", true, Except("guest"))
	if err != nil {
		t.Fatalf("RemovePlayer: %v", err)
	}
	other.events = nil

	if elected := room.ElectHost(leaver); elected == nil || elected.ID() != "host" {
		t.Fatalf("ElectHost = %v, want host", elected)
	}
	if got := other.names(); len(got) != 0 {
		t.Fatalf("a guest leaving broadcast %v", got)
	}
}

func TestElectHostEmptyRoom(t *testing.T) {
	room := newTestRoom(t)
	join(t, room, "only", wire.Map{protocol.KeyIsHost: wire.Bool(true)})
	leaver, _ := room.RemovePlayer("only", true, Everyone)
	if elected := room.ElectHost(leaver); elected != nil {
		t.Fatalf("ElectHost on an empty room = %v", elected.ID())
	}
}
