// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package room

// Recipients selects which players of a room receive a notification.
// The zero value is Everyone.
type Recipients struct {
	none   bool
	except string
	only   string
}

var (
	// Everyone selects every player in the room.
	Everyone = Recipients{}

	// NoOne selects no player. Local observers still run when raised.
	NoOne = Recipients{none: true}
)

// Except selects every player but playerID. An empty id excludes no one.
func Except(playerID string) Recipients {
	return Recipients{except: playerID}
}

// Only narrows r to a single player. An empty id leaves r unchanged,
// so a room event without a target goes to the whole selection.
func (r Recipients) Only(playerID string) Recipients {
	if playerID != "" {
		r.only = playerID
	}
	return r
}

// Includes reports whether playerID is selected.
func (r Recipients) Includes(playerID string) bool {
	switch {
	case r.none:
		return false
	case r.except != "" && playerID == r.except:
		return false
	case r.only != "" && playerID != r.only:
		return false
	}
	return true
}
