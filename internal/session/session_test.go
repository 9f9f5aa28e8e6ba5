package session

import (
	"errors"
	"testing"
	"time"
)

func TestSelectSubject(t *testing.T) {
	store := NewStore()
	store.SelectSubject("u1", "Math")

	sess, ok := store.Get("u1")
	if !ok {
		t.Fatal("Expected session to exist")
	}
	if sess.Subject != "Math" {
		t.Errorf("Expected subject Math, got %s", sess.Subject)
	}
	if sess.State != StateSubjectSelected {
		t.Errorf("Expected SubjectSelected, got %v", sess.State)
	}
}

func TestSelectSubjectClearsPendingTask(t *testing.T) {
	store := NewStore()
	store.SelectSubject("u1", "Math")
	if err := store.SelectTask("u1", "homework"); err != nil {
		t.Fatalf("SelectTask failed: %v", err)
	}

	store.SelectSubject("u1", "Physics")
	sess, _ := store.Get("u1")
	if sess.PendingTask != "" {
		t.Errorf("Expected pending task cleared, got %s", sess.PendingTask)
	}
	if sess.State != StateSubjectSelected {
		t.Errorf("Expected SubjectSelected, got %v", sess.State)
	}
}

func TestSelectTaskWithoutSubject(t *testing.T) {
	store := NewStore()
	err := store.SelectTask("u1", "homework")
	if !errors.Is(err, ErrSubjectRequired) {
		t.Fatalf("Expected ErrSubjectRequired, got %v", err)
	}
	sess, _ := store.Get("u1")
	if sess.PendingTask != "" {
		t.Errorf("Failed task selection must not mutate pendingTask, got %s", sess.PendingTask)
	}
	if sess.State != StateNoSubject {
		t.Errorf("Expected NoSubject, got %v", sess.State)
	}
}

func TestSelectTaskFromTaskSelected(t *testing.T) {
	store := NewStore()
	store.SelectSubject("u1", "Math")
	store.SelectTask("u1", "homework")
	if err := store.SelectTask("u1", "worksheet"); err != nil {
		t.Fatalf("SelectTask from TaskSelected should be valid: %v", err)
	}
	sess, _ := store.Get("u1")
	if sess.PendingTask != "worksheet" {
		t.Errorf("Expected worksheet, got %s", sess.PendingTask)
	}
}

func TestResetSubject(t *testing.T) {
	store := NewStore()
	store.SelectSubject("u1", "Math")
	store.SelectTask("u1", "homework")
	store.ResetSubject("u1")

	sess, _ := store.Get("u1")
	if sess.State != StateNoSubject || sess.Subject != "" || sess.PendingTask != "" {
		t.Errorf("Expected clean NoSubject session, got %+v", sess)
	}
}

func TestSweep(t *testing.T) {
	store := NewStore()
	base := time.Unix(1700000000, 0)
	now := base
	store.now = func() time.Time { return now }

	store.SelectSubject("old", "Math")
	now = base.Add(time.Hour)
	store.SelectSubject("fresh", "Physics")

	removed := store.Sweep(30 * time.Minute)
	if removed != 1 {
		t.Fatalf("Expected 1 swept session, got %d", removed)
	}
	if _, ok := store.Get("old"); ok {
		t.Error("Idle session should have been removed")
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Error("Active session should survive the sweep")
	}
}

func TestTouchCreatesSession(t *testing.T) {
	store := NewStore()
	store.Touch("u1")
	sess, ok := store.Get("u1")
	if !ok {
		t.Fatal("Touch should create the session")
	}
	if sess.State != StateNoSubject {
		t.Errorf("New session should start in NoSubject, got %v", sess.State)
	}
}
