package events

import (
	"context"
	"testing"
)

func TestLogAppendAssignsDenseSequence(t *testing.T) {
	l := NewLog()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Emit(ctx, TypeNewFeedback, NewFeedback{AgentID: 1, Index: uint64(i) + 1}); err != nil {
			t.Fatal(err)
		}
	}
	if l.Length() != 3 {
		t.Fatalf("expected 3 entries, got %d", l.Length())
	}
	entry, err := l.Get(2)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Sequence != 2 {
		t.Fatalf("expected sequence 2, got %d", entry.Sequence)
	}
}

func TestLogGetNotFound(t *testing.T) {
	l := NewLog()
	if _, err := l.Get(0); err == nil {
		t.Fatal("expected error for sequence 0")
	}
	if _, err := l.Get(1); err == nil {
		t.Fatal("expected error for missing entry")
	}
}

func TestLogChainIntegrity(t *testing.T) {
	l := NewLog()
	ctx := context.Background()
	_ = l.Emit(ctx, TypeAgentRegistered, AgentRegistered{AgentID: 1, Domain: "a.example.com"})
	_ = l.Emit(ctx, TypeNewFeedback, NewFeedback{AgentID: 1, Client: "client-1", Index: 1})
	_ = l.Emit(ctx, TypeFeedbackRevoked, FeedbackRevoked{AgentID: 1, Client: "client-1", Index: 1})

	ok, reason := l.Verify()
	if !ok {
		t.Fatalf("expected valid chain, got: %s", reason)
	}
}

func TestLogHashChaining(t *testing.T) {
	l := NewLog()
	ctx := context.Background()
	_ = l.Emit(ctx, TypeNewFeedback, NewFeedback{Index: 1})
	_ = l.Emit(ctx, TypeNewFeedback, NewFeedback{Index: 2})

	e1, _ := l.Get(1)
	e2, _ := l.Get(2)
	if e2.PrevHash != e1.ContentHash {
		t.Fatal("second entry prev_hash should match first content_hash")
	}
	if l.Head() != e2.ContentHash {
		t.Fatal("head should be the last content hash")
	}
}

func TestLogTamperDetection(t *testing.T) {
	l := NewLog()
	ctx := context.Background()
	_ = l.Emit(ctx, TypeNewFeedback, NewFeedback{AgentID: 7, Index: 1})
	l.entries[0].Event.Type = TypeFeedbackRevoked

	ok, _ := l.Verify()
	if ok {
		t.Fatal("tampered entry should fail verification")
	}
}

func TestLogByType(t *testing.T) {
	l := NewLog()
	ctx := context.Background()
	_ = l.Emit(ctx, TypeNewFeedback, NewFeedback{Index: 1})
	_ = l.Emit(ctx, TypeFeedbackRevoked, FeedbackRevoked{Index: 1})
	_ = l.Emit(ctx, TypeNewFeedback, NewFeedback{Index: 2})

	got := l.ByType(TypeNewFeedback)
	if len(got) != 2 {
		t.Fatalf("expected 2 NEW_FEEDBACK entries, got %d", len(got))
	}
}
