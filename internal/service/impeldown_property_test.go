// Property-based tests for bounty actions and reversal arithmetic.
package service

import (
	"testing"

	"pgregory.net/rapid"

	"onepiece-admin/internal/model"
)

// TestBountyActionProperty: Halve integer-divides, Erase zeroes, None leaves
// the bounty untouched, and no action ever produces a negative bounty from a
// non-negative one.
func TestBountyActionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bounty := rapid.Int64Range(0, 1<<50).Draw(t, "bounty")

		if got := model.BountyActionNone.Apply(bounty); got != bounty {
			t.Fatalf("None should keep the bounty: %d became %d", bounty, got)
		}
		if got := model.BountyActionHalve.Apply(bounty); got != bounty/2 {
			t.Fatalf("Halve should integer-divide: %d became %d", bounty, got)
		}
		if got := model.BountyActionErase.Apply(bounty); got != 0 {
			t.Fatalf("Erase should zero the bounty: %d became %d", bounty, got)
		}
	})
}

// TestReversalRestoresDeltaProperty: reversing a log adds back exactly the
// recorded previous−new delta, regardless of bounty changes in between.
func TestReversalRestoresDeltaProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		previous := rapid.Int64Range(0, 1<<50).Draw(t, "previous")

		action := rapid.SampledFrom([]model.BountyAction{
			model.BountyActionNone,
			model.BountyActionHalve,
			model.BountyActionErase,
		}).Draw(t, "action")

		entry := &model.ImpelDownLog{
			PreviousBounty: previous,
			NewBounty:      action.Apply(previous),
		}

		// bounty drifts while the sanction is in place
		drift := rapid.Int64Range(0, 1000000).Draw(t, "drift")
		current := entry.NewBounty + drift

		restored := current + entry.LostBounty()
		if restored != previous+drift {
			t.Fatalf("reversal should restore the delta: previous=%d drift=%d restored=%d",
				previous, drift, restored)
		}
		if entry.LostBounty() < 0 {
			t.Fatalf("a bounty action never increases the bounty: delta %d", entry.LostBounty())
		}
	})
}
