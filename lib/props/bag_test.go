// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package props

import (
	"strconv"
	"sync"
	"testing"

	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

func TestCommitWithoutChangesSkipsCallback(t *testing.T) {
	bag := New(wire.Map{"Level": wire.Int32(10)})
	bag.EnableTracking()

	called := false
	if bag.CommitChanges(func(wire.Map) { called = true }) || called {
		t.Fatal("commit with no changes called back")
	}

	// Writing the committed value again is not a change.
	bag.Set("Level", wire.Int32(10))
	if bag.HasChanges() || bag.CommitChanges(func(wire.Map) { called = true }) || called {
		t.Fatal("rewriting the committed value counted as a change")
	}
}

func TestCommitReportsExactlyChangedKeys(t *testing.T) {
	bag := New(wire.Map{"Level": wire.Int32(10), "Nickname": wire.String("p1")})
	bag.EnableTracking()

	bag.Set("Position", wire.Vector3(wire.Point3{X: 1}))
	bag.Set("Level", wire.Int32(11))
	bag.Set("Position", wire.Vector3(wire.Point3{X: 2}))

	var got wire.Map
	if !bag.CommitChanges(func(changes wire.Map) { got = changes }) {
		t.Fatal("CommitChanges = false with pending changes")
	}
	want := wire.Map{"Level": wire.Int32(11), "Position": wire.Vector3(wire.Point3{X: 2})}
	if !got.Equal(want) {
		t.Fatalf("changes = %v, want %v", got, want)
	}
	if bag.HasChanges() {
		t.Fatal("changes survived the commit")
	}

	// A write back to a committed value cancels the pending change.
	bag.Set("Level", wire.Int32(12))
	bag.Set("Level", wire.Int32(11))
	if bag.HasChanges() {
		t.Fatal("reverting to the committed value left a change")
	}
}

func TestMergeCommittedSupersedesPendingChange(t *testing.T) {
	bag := New(wire.Map{"Position": wire.Int32(0)})
	bag.EnableTracking()

	bag.Set("Position", wire.Int32(1))
	bag.Set("Level", wire.Int32(2))
	bag.MergeCommitted(wire.Map{"Position": wire.Int32(5)})

	if got, _ := bag.Int("Position"); got != 5 {
		t.Fatalf("Position = %d, want 5", got)
	}
	var sent wire.Map
	if !bag.CommitChanges(func(changes wire.Map) { sent = changes }) {
		t.Fatal("CommitChanges = false with Level pending")
	}
	if want := (wire.Map{"Level": wire.Int32(2)}); !sent.Equal(want) {
		t.Fatalf("sent %v, want %v", sent, want)
	}
}

func TestSetDuringMergeCommittedIsSent(t *testing.T) {
	bag := New(nil)
	bag.EnableTracking()

	const writers = 8
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bag.Set(wire.Key("Score"+strconv.Itoa(i)), wire.Int32(int32(i+1)))
		}()
	}
	for i := range 100 {
		bag.MergeCommitted(wire.Map{"Position": wire.Int32(int32(i))})
	}
	wg.Wait()

	var sent wire.Map
	bag.CommitChanges(func(changes wire.Map) { sent = changes })
	if len(sent) != writers {
		t.Fatalf("sent %v, want %d Score keys", sent, writers)
	}
	for i := range writers {
		key := wire.Key("Score" + strconv.Itoa(i))
		if got, _ := sent[key].Int(); got != int64(i+1) {
			t.Errorf("%s = %d, want %d", key, got, i+1)
		}
	}
}

func TestMergeIsLastWriteWins(t *testing.T) {
	bag := New(wire.Map{"A": wire.Int32(0), "B": wire.Int32(0), "C": wire.Int32(0)})
	d1 := wire.Map{"A": wire.Int32(1), "B": wire.Int32(1)}
	d2 := wire.Map{"B": wire.Int32(2), "D": wire.Int32(2)}
	bag.Merge(d1)
	bag.Merge(d2)

	want := wire.Map{"A": wire.Int32(1), "B": wire.Int32(2), "C": wire.Int32(0), "D": wire.Int32(2)}
	if got := bag.Snapshot(); !got.Equal(want) {
		t.Fatalf("state = %v, want %v", got, want)
	}
}

func TestMatchAndExtract(t *testing.T) {
	bag := New(wire.Map{"SceneName": wire.String("arena"), "MaxPlayers": wire.Int32(4)})
	tests := []struct {
		name     string
		required wire.Map
		want     bool
	}{
		{"empty filter", wire.Map{}, true},
		{"equal value", wire.Map{"SceneName": wire.String("arena")}, true},
		{"different value", wire.Map{"SceneName": wire.String("forest")}, false},
		{"missing key", wire.Map{"IsPrivate": wire.Bool(false)}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := bag.Match(test.required); got != test.want {
				t.Errorf("Match = %v, want %v", got, test.want)
			}
		})
	}

	extracted := bag.Extract("SceneName", "IsPrivate")
	if len(extracted) != 1 || !extracted.Has("SceneName") {
		t.Fatalf("Extract = %v", extracted)
	}
}

func TestMergeCommittedCountsAsCommitted(t *testing.T) {
	bag := New(nil)
	bag.EnableTracking()
	bag.Set("Pending", wire.Bool(true))
	bag.MergeCommitted(wire.Map{"IsHost": wire.Bool(true)})
	if bag.HasChangesExcept("Pending") {
		t.Fatal("committed merge was recorded as a change")
	}
	if !bag.HasChanges() {
		t.Fatal("earlier tracked write was lost")
	}
	bag.Set("IsHost", wire.Bool(true))
	if bag.HasChangesExcept("Pending") {
		t.Fatal("rewriting a committed merge counted as a change")
	}
}

func TestRemoveTracked(t *testing.T) {
	bag := New(wire.Map{"Velocity": wire.Vector3(wire.Point3{})})
	bag.EnableTracking()
	bag.Set("Velocity", wire.Vector3(wire.Point3{X: 3}))
	bag.RemoveTracked("Velocity")
	if bag.Has("Velocity") || bag.HasChanges() {
		t.Fatal("RemoveTracked left state behind")
	}
}

func TestTypedGetters(t *testing.T) {
	bag := New(wire.Map{
		"Nickname": wire.String("p1"),
		"Level":    wire.Byte(10),
		"IsHost":   wire.Bool(true),
		"Position": wire.Vector3(wire.Point3{X: 1, Y: 2, Z: 3}),
	})
	if s, ok := bag.Str("Nickname"); !ok || s != "p1" {
		t.Errorf("Str = %q, %v", s, ok)
	}
	if i, ok := bag.Int("Level"); !ok || i != 10 {
		t.Errorf("Int = %d, %v", i, ok)
	}
	if b, ok := bag.Bool("IsHost"); !ok || !b {
		t.Errorf("Bool = %v, %v", b, ok)
	}
	if p, ok := bag.Point3("Position"); !ok || p.Z != 3 {
		t.Errorf("Point3 = %v, %v", p, ok)
	}
	if _, ok := bag.Int("Missing"); ok {
		t.Error("Int on a missing key reported ok")
	}
	bag.Clear()
	if bag.Len() != 0 {
		t.Fatalf("Len after Clear = %d", bag.Len())
	}
}
