package tracker

import "testing"

func synReport() Event { return Event{Type: EVSyn, Code: SynReport} }

func TestSlotProtocolStability(t *testing.T) {
	tr := New(nil)
	var last Snapshot

	feed := func(evs ...Event) {
		for _, e := range evs {
			tr.Feed(e, func(s Snapshot) { last = s })
		}
	}

	// Finger 7 lands in slot 0.
	feed(
		Event{Type: EVAbs, Code: AbsMTSlot, Value: 0},
		Event{Type: EVAbs, Code: AbsMTTrackingID, Value: 7},
		Event{Type: EVAbs, Code: AbsMTPositionX, Value: 100},
		Event{Type: EVAbs, Code: AbsMTPositionY, Value: 200},
		synReport(),
	)
	if last.FingersDown != 1 || last.Slots[0].ID != 7 {
		t.Fatalf("expected finger 7 in slot 0, got %+v", last)
	}

	// Finger 9 lands in slot 1.
	feed(
		Event{Type: EVAbs, Code: AbsMTSlot, Value: 1},
		Event{Type: EVAbs, Code: AbsMTTrackingID, Value: 9},
		Event{Type: EVAbs, Code: AbsMTPositionX, Value: 300},
		Event{Type: EVAbs, Code: AbsMTPositionY, Value: 400},
		synReport(),
	)
	if last.FingersDown != 2 || last.Slots[1].ID != 9 {
		t.Fatalf("expected finger 9 in slot 1, got %+v", last)
	}

	// Slot 0 moves; identity (slot index) must be stable.
	feed(
		Event{Type: EVAbs, Code: AbsMTSlot, Value: 0},
		Event{Type: EVAbs, Code: AbsMTPositionX, Value: 110},
		synReport(),
	)
	if last.Slots[0].ID != 7 || last.Slots[0].RawX != 110 {
		t.Fatalf("expected slot 0 to remain finger 7 after move, got %+v", last)
	}

	// Finger 7 lifts; slot 0 empties, slot 1 (finger 9) stays put.
	feed(
		Event{Type: EVAbs, Code: AbsMTSlot, Value: 0},
		Event{Type: EVAbs, Code: AbsMTTrackingID, Value: -1},
		synReport(),
	)
	if !last.Slots[0].Empty() || last.Slots[1].ID != 9 {
		t.Fatalf("expected slot 0 empty, slot 1 unchanged, got %+v", last)
	}
}

func TestMTSyncProtocolAssignsFirstEmptySlot(t *testing.T) {
	tr := New(nil)
	var last Snapshot
	feed := func(evs ...Event) {
		for _, e := range evs {
			tr.Feed(e, func(s Snapshot) { last = s })
		}
	}

	// First SYN_MT_REPORT flips the tracker to non-slot mode and is discarded.
	feed(
		Event{Type: EVAbs, Code: AbsMTTrackingID, Value: 3},
		Event{Type: EVAbs, Code: AbsMTPositionX, Value: 10},
		Event{Type: EVAbs, Code: AbsMTPositionY, Value: 20},
		Event{Type: EVSyn, Code: SynMTReport},
		synReport(),
	)
	if last.FingersDown != 0 {
		t.Fatalf("expected the triggering MT_SYNC report to be discarded, got %+v", last)
	}

	// Second real report assigns finger 3 to an empty slot.
	feed(
		Event{Type: EVAbs, Code: AbsMTTrackingID, Value: 3},
		Event{Type: EVAbs, Code: AbsMTPositionX, Value: 10},
		Event{Type: EVAbs, Code: AbsMTPositionY, Value: 20},
		Event{Type: EVSyn, Code: SynMTReport},
		synReport(),
	)
	if last.FingersDown != 1 {
		t.Fatalf("expected one finger tracked, got %+v", last)
	}
}

func TestMTSyncDropsUnsetSlotsOnSynReport(t *testing.T) {
	tr := New(nil)
	var last Snapshot
	feed := func(evs ...Event) {
		for _, e := range evs {
			tr.Feed(e, func(s Snapshot) { last = s })
		}
	}

	// Flip to non-slot mode.
	feed(Event{Type: EVSyn, Code: SynMTReport})

	// One finger present this report.
	feed(
		Event{Type: EVAbs, Code: AbsMTTrackingID, Value: 1},
		Event{Type: EVAbs, Code: AbsMTPositionX, Value: 1},
		Event{Type: EVAbs, Code: AbsMTPositionY, Value: 1},
		Event{Type: EVSyn, Code: SynMTReport},
		synReport(),
	)
	if last.FingersDown != 1 {
		t.Fatalf("expected 1 finger, got %+v", last)
	}

	// Next report has no MT_SYNC at all for that finger: it must be cleared.
	feed(synReport())
	if last.FingersDown != 0 {
		t.Fatalf("expected finger cleared after a report without its MT_SYNC, got %+v", last)
	}
}

func TestExtraFingersSilentlyDropped(t *testing.T) {
	tr := New(nil)
	var last Snapshot
	feed := func(evs ...Event) {
		for _, e := range evs {
			tr.Feed(e, func(s Snapshot) { last = s })
		}
	}

	feed(Event{Type: EVSyn, Code: SynMTReport}) // flip to non-slot

	for _, id := range []int32{1, 2, 3} {
		feed(
			Event{Type: EVAbs, Code: AbsMTTrackingID, Value: id},
			Event{Type: EVAbs, Code: AbsMTPositionX, Value: id},
			Event{Type: EVAbs, Code: AbsMTPositionY, Value: id},
			Event{Type: EVSyn, Code: SynMTReport},
		)
	}
	feed(synReport())

	if last.FingersDown != 2 {
		t.Fatalf("expected third finger dropped, got %d", last.FingersDown)
	}
}
