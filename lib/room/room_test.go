// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package room

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

type sentEvent struct {
	name   wire.Key
	params any
}

// recordingSender collects every event raised on it.
type recordingSender struct {
	mu     sync.Mutex
	events []sentEvent
	err    error
}

func (s *recordingSender) RaiseEventWith(name wire.Key, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sentEvent{name: name, params: v})
	return s.err
}

func (s *recordingSender) names() []wire.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]wire.Key, 0, len(s.events))
	for _, event := range s.events {
		names = append(names, event.name)
	}
	return names
}

func (s *recordingSender) last(t *testing.T) sentEvent {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		t.Fatal("no event sent")
	}
	return s.events[len(s.events)-1]
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New("room-1", wire.Map{protocol.KeyMaxPlayers: wire.Int32(2)}, logger)
}

func join(t *testing.T, room *Room, id string, initial wire.Map) *recordingSender {
	t.Helper()
	sender := &recordingSender{}
	if err := room.AddPlayer(room.NewPlayer(id, sender, initial), true, Except(id)); err != nil {
		t.Fatalf("AddPlayer(%s): %v", id, err)
	}
	return sender
}

func sameKeys(got, want []wire.Key) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestRecipients(t *testing.T) {
	tests := []struct {
		name       string
		recipients Recipients
		included   map[string]bool
	}{
		{"everyone", Everyone, map[string]bool{"a": true, "b": true, "c": true}},
		{"no one", NoOne, map[string]bool{"a": false, "b": false, "c": false}},
		{"except", Except("a"), map[string]bool{"a": false, "b": true, "c": true}},
		{"except empty", Except(""), map[string]bool{"a": true, "b": true, "c": true}},
		{"except only", Except("a").Only("b"), map[string]bool{"a": false, "b": true, "c": false}},
		{"except only self", Except("a").Only("a"), map[string]bool{"a": false, "b": false, "c": false}},
		{"only empty", Except("a").Only(""), map[string]bool{"a": false, "b": true, "c": true}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for id, want := range test.included {
				if got := test.recipients.Includes(id); got != want {
					t.Errorf("Includes(%q) = %v, want %v", id, got, want)
				}
			}
		})
	}
}

func TestAddPlayerNotifiesOthers(t *testing.T) {
	room := newTestRoom(t)
	var joined []string
	room.OnPlayerJoined(func(player *Player) { joined = append(joined, player.ID()) })

	first := join(t, room, "alice", wire.Map{protocol.KeyNickname: wire.String("alice")})
	second := join(t, room, "bob", nil)

	if got := first.names(); !sameKeys(got, []wire.Key{protocol.OnRoomJoined}) {
		t.Fatalf("alice received %v, want one OnRoomJoined", got)
	}
	if got := second.names(); len(got) != 0 {
		t.Fatalf("bob received %v, want nothing", got)
	}
	params, ok := first.last(t).params.(protocol.JoinRoomParams)
	if !ok || params.PlayerID != "bob" || params.RoomID != "room-1" {
		t.Fatalf("join notification = %#v", first.last(t).params)
	}
	if len(joined) != 2 || joined[0] != "alice" || joined[1] != "bob" {
		t.Fatalf("observers saw %v", joined)
	}

	if err := room.AddPlayer(room.NewPlayer("bob", nil, nil), true, Everyone); !errors.Is(err, ErrPlayerExists) {
		t.Fatalf("duplicate AddPlayer = %v, want ErrPlayerExists", err)
	}
	if !room.IsFull() {
		t.Fatal("room with MaxPlayers=2 and two members should be full")
	}
}

func TestRemovePlayerOrderAndObservers(t *testing.T) {
	room := newTestRoom(t)
	room.Properties().Set(protocol.KeyMaxPlayers, wire.Int32(10))
	senders := map[string]*recordingSender{}
	for _, id := range []string{"a", "b", "c"} {
		senders[id] = join(t, room, id, nil)
	}

	var left []string
	room.OnPlayerLeft(func(player *Player) { left = append(left, player.ID()) })

	removed, err := room.RemovePlayer("b", true, Except("b"))
	if err != nil {
		t.Fatalf("RemovePlayer: %v", err)
	}
	if removed.ID() != "b" {
		t.Fatalf("removed %q", removed.ID())
	}
	if ids := room.PlayerIDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Fatalf("PlayerIDs = %v, want [a c]", ids)
	}
	if len(left) != 1 || left[0] != "b" {
		t.Fatalf("left observers saw %v", left)
	}
	if got := senders["a"].last(t).name; got != protocol.OnRoomLeaved {
		t.Fatalf("a last received %s, want OnRoomLeaved", got)
	}
	for _, name := range senders["b"].names() {
		if name == protocol.OnRoomLeaved {
			t.Fatal("the leaver was told about its own departure")
		}
	}

	if _, err := room.RemovePlayer("b", true, Everyone); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("second RemovePlayer = %v, want ErrPlayerNotFound", err)
	}
}

func TestUpdatePropertiesRaiseAndRecipients(t *testing.T) {
	room := newTestRoom(t)
	alice := join(t, room, "alice", nil)
	bob := join(t, room, "bob", nil)
	aliceBefore := len(alice.names())

	var raised []wire.Map
	room.OnPropertiesChanged(func(delta wire.Map) { raised = append(raised, delta) })

	delta := wire.Map{protocol.KeySceneName: wire.String("arena")}
	room.UpdateProperties(delta, false, Except("bob"))
	if len(raised) != 0 {
		t.Fatal("observers ran with raise=false")
	}
	if got := len(alice.names()); got != aliceBefore+1 {
		t.Fatalf("alice got %d new events, want 1", got-aliceBefore)
	}
	if got := bob.names(); len(got) != 0 {
		t.Fatalf("bob received %v", got)
	}
	if scene, _ := room.Properties().Str(protocol.KeySceneName); scene != "arena" {
		t.Fatalf("SceneName = %q", scene)
	}

	room.UpdateProperties(wire.Map{protocol.KeyIsPrivate: wire.Bool(true)}, true, NoOne)
	if len(raised) != 1 || !room.IsPrivate() {
		t.Fatalf("raised = %v, private = %v", raised, room.IsPrivate())
	}

	room.UpdateProperties(nil, true, Everyone)
	if len(raised) != 1 {
		t.Fatal("empty delta raised observers")
	}
}

func TestUpdateObjectStripsVelocityWithoutHostChange(t *testing.T) {
	room := newTestRoom(t)
	alice := join(t, room, "alice", nil)
	object := room.NewObject("crate", "Crate", wire.Map{protocol.KeyOwnerID: wire.String("alice")})
	if err := room.AddObject(object, true, Everyone); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if err := room.AddObject(object, true, Everyone); !errors.Is(err, ErrObjectExists) {
		t.Fatalf("duplicate AddObject = %v", err)
	}

	velocity := wire.Vector3(wire.Point3{X: 1})
	position := wire.Vector3(wire.Point3{Y: 2})
	err := room.UpdateObject("crate", wire.Map{
		protocol.KeyVelocity: velocity,
		protocol.KeyPosition: position,
	}, true, Everyone)
	if err != nil {
		t.Fatalf("UpdateObject: %v", err)
	}

	params := alice.last(t).params.(protocol.UpdateObjectParams)
	if params.ObjectProperties.Has(protocol.KeyVelocity) {
		t.Fatalf("velocity was sent without a host change: %v", params.ObjectProperties)
	}
	if !params.ObjectProperties[protocol.KeyPosition].Equal(position) {
		t.Fatalf("position missing from %v", params.ObjectProperties)
	}
	if got, _ := object.Properties().Get(protocol.KeyVelocity); !got.Equal(velocity) {
		t.Fatal("velocity was not applied locally")
	}

	before := len(alice.names())
	if err := room.UpdateObject("crate", wire.Map{protocol.KeyAngularVelocity: velocity}, true, Everyone); err != nil {
		t.Fatalf("UpdateObject: %v", err)
	}
	if len(alice.names()) != before {
		t.Fatal("a velocity-only update was broadcast")
	}

	err = room.UpdateObject("crate", wire.Map{
		protocol.KeyHostID:   wire.String("alice"),
		protocol.KeyVelocity: velocity,
	}, true, Everyone)
	if err != nil {
		t.Fatalf("UpdateObject: %v", err)
	}
	params = alice.last(t).params.(protocol.UpdateObjectParams)
	if !params.ObjectProperties.Has(protocol.KeyVelocity) {
		t.Fatal("velocity dropped from a host change")
	}

	if err := room.UpdateObject("missing", wire.Map{protocol.KeyName: wire.String("x")}, true, Everyone); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("UpdateObject(missing) = %v", err)
	}
}

func TestRaiseEventAddressesEachRecipient(t *testing.T) {
	room := newTestRoom(t)
	room.Properties().Set(protocol.KeyMaxPlayers, wire.Int32(10))
	senders := map[string]*recordingSender{}
	for _, id := range []string{"a", "b", "c"} {
		senders[id] = join(t, room, id, nil)
	}
	for _, sender := range senders {
		sender.events = nil
	}

	var received []protocol.RoomEvent
	room.OnEventReceived(func(event protocol.RoomEvent) { received = append(received, event) })

	event := protocol.RoomEvent{SenderID: "a", Name: protocol.ApplyForce}
	room.RaiseEvent(event, true, Except("a"))

	if len(senders["a"].events) != 0 {
		t.Fatal("sender received its own event")
	}
	for _, id := range []string{"b", "c"} {
		got := senders[id].last(t).params.(protocol.RoomEvent)
		if got.PlayerID != id || got.SenderID != "a" || got.RoomID != "room-1" {
			t.Fatalf("%s received %#v", id, got)
		}
	}
	if len(received) != 1 {
		t.Fatalf("observers ran %d times", len(received))
	}

	room.RaiseEvent(protocol.RoomEvent{SenderID: "a", PlayerID: "c", Name: protocol.ApplyForce}, false, Except("a").Only("c"))
	if len(senders["b"].events) != 1 || len(senders["c"].events) != 2 {
		t.Fatalf("targeted event fan-out: b=%d c=%d", len(senders["b"].events), len(senders["c"].events))
	}
}

func TestSendFailureDoesNotStopFanOut(t *testing.T) {
	room := newTestRoom(t)
	room.Properties().Set(protocol.KeyMaxPlayers, wire.Int32(10))
	broken := join(t, room, "broken", nil)
	broken.err = errors.New("connection closed")
	healthy := join(t, room, "healthy", nil)

	room.UpdateProperties(wire.Map{protocol.KeySceneName: wire.String("x")}, false, Everyone)
	if got := healthy.last(t).name; got != protocol.OnRoomUpdated {
		t.Fatalf("healthy last received %s", got)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	room := newTestRoom(t)
	join(t, room, "alice", wire.Map{protocol.KeyNickname: wire.String("alice")})
	join(t, room, "bob", nil)

	specs := room.PlayerSpecs("bob")
	if len(specs) != 1 || specs[0].PlayerID != "alice" {
		t.Fatalf("PlayerSpecs(skip bob) = %v", specs)
	}
	specs[0].PlayerProperties[protocol.KeyNickname] = wire.String("mallory")
	player, _ := room.Player("alice")
	if nickname, _ := player.Properties().Str(protocol.KeyNickname); nickname != "alice" {
		t.Fatalf("snapshot shares storage with the room: %q", nickname)
	}

	players := room.Players()
	room.ClearPlayers()
	if len(players) != 2 || !room.IsEmpty() {
		t.Fatalf("snapshot length %d, room empty %v", len(players), room.IsEmpty())
	}
}
