// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package room

import (
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

// ElectHost hands a departed player's responsibilities to the first
// remaining member and returns that member, or nil when the room is
// empty. Call it after the leaver was removed.
//
// If the leaver held IsHost, the new host is promoted. Objects owned by
// the leaver are destroyed. Objects it was simulating move to the new
// host together with their last known Velocity and AngularVelocity, so
// the new host can continue the simulation. Every change is broadcast
// to the whole room.
func (r *Room) ElectHost(leaver *Player) *Player {
	r.mu.Lock()
	if len(r.playerOrder) == 0 {
		r.mu.Unlock()
		return nil
	}
	host := r.players[r.playerOrder[0]]
	r.mu.Unlock()

	if leaver.IsHost() {
		if err := r.UpdatePlayer(host.id, wire.Map{protocol.KeyIsHost: wire.Bool(true)}, true, Everyone); err != nil {
			r.logger.Warn("promoting host failed", "player_id", host.id, "error", err)
		}
	}

	for _, object := range r.Objects() {
		switch {
		case object.OwnerID() == leaver.id:
			if _, err := r.DestroyObject(object.id, true, Everyone); err != nil {
				r.logger.Debug("destroying orphaned object failed", "object_id", object.id, "error", err)
			}
		case object.HostID() == leaver.id:
			delta := wire.Map{
				protocol.KeyHostID:          wire.String(host.id),
				protocol.KeyVelocity:        vectorOrZero(object, protocol.KeyVelocity),
				protocol.KeyAngularVelocity: vectorOrZero(object, protocol.KeyAngularVelocity),
			}
			if err := r.UpdateObject(object.id, delta, true, Everyone); err != nil {
				r.logger.Debug("rehosting object failed", "object_id", object.id, "error", err)
			}
		}
	}

	r.logger.Info("host elected", "player_id", host.id, "leaver_id", leaver.id)
	return host
}

func vectorOrZero(object *Object, key wire.Key) wire.Value {
	if vector, ok := object.properties.Point3(key); ok {
		return wire.Vector3(vector)
	}
	return wire.Vector3(wire.Point3{})
}
