package notifications

import (
	"testing"
	"time"
)

func TestShowReplacesAndAutoDismisses(t *testing.T) {
	n := NewNotifier(30 * time.Millisecond)
	defer n.Close()

	first := n.Show(KindInfo, "added to cart")
	second := n.Show(KindError, "Too many attempts. Please try again later.")
	if first.ID == second.ID {
		t.Fatalf("expected distinct notifications")
	}

	got, ok := n.Current()
	if !ok || got.ID != second.ID {
		t.Fatalf("expected newest notification to be current, got %+v", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := n.Current(); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected notification to be dismissed automatically")
}

func TestSupersededTimerDoesNotClearNewNotification(t *testing.T) {
	n := NewNotifier(time.Hour)
	defer n.Close()

	first := n.Show(KindInfo, "one")
	n.Show(KindInfo, "two")
	n.expire(first.ID)

	got, ok := n.Current()
	if !ok || got.Message != "two" {
		t.Fatalf("stale timer cleared the current notification: %+v", got)
	}
}

func TestDismissAndClose(t *testing.T) {
	n := NewNotifier(time.Hour)
	n.Show(KindSuccess, "saved")
	n.Dismiss()
	if _, ok := n.Current(); ok {
		t.Fatalf("expected no notification after dismiss")
	}

	n.Close()
	n.Show(KindInfo, "ignored")
	if _, ok := n.Current(); ok {
		t.Fatalf("closed notifier must not show notifications")
	}
	if n.timer != nil {
		t.Fatalf("closed notifier must not hold a timer")
	}
}
