package lsprpc

import (
	"context"
	"testing"
)

// TestCancelRegistryIDReuse covers S3 (spec.md §8): when a second call
// registers under an ID still held by an earlier, in-flight call, the
// registry must route a later cancel to the second registration, and the
// first call's own teardown must not erase the second registration out
// from under it.
func TestCancelRegistryIDReuse(t *testing.T) {
	reg := newCancelRegistry()

	var firstCancelled, secondCancelled bool
	_, cancel1 := context.WithCancel(context.Background())
	_, cancel2 := context.WithCancel(context.Background())

	teardown1 := reg.register("5", func() { firstCancelled = true; cancel1() })
	teardown2 := reg.register("5", func() { secondCancelled = true; cancel2() })

	// The first call finishes (e.g. it was already done computing) and
	// tears itself down before the cancel arrives. Its teardown must not
	// remove the second, still-live registration.
	teardown1()

	if reg.len() != 1 {
		t.Fatalf("after teardown1, registry has %d entries, want 1", reg.len())
	}

	if !reg.cancel("5") {
		t.Fatal("cancel(\"5\") found no registration, but the second call is still registered")
	}
	if firstCancelled {
		t.Error("cancelling after the first call's teardown must not invoke its CancelFunc")
	}
	if !secondCancelled {
		t.Error("cancelling should have invoked the second, still-registered call's CancelFunc")
	}

	teardown2()
	if reg.len() != 0 {
		t.Errorf("after both teardowns, registry has %d entries, want 0", reg.len())
	}
}

func TestCancelRegistryUnknownID(t *testing.T) {
	reg := newCancelRegistry()
	if reg.cancel("no-such-id") {
		t.Error("cancel of an unregistered id should report false")
	}
}

func TestCancelRegistryTeardownIsIdempotent(t *testing.T) {
	reg := newCancelRegistry()
	teardown := reg.register("1", func() {})
	teardown()
	teardown() // must not panic or double-decrement
	if reg.len() != 0 {
		t.Errorf("registry has %d entries, want 0", reg.len())
	}
}
