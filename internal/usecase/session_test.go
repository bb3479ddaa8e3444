package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/repository"
)

func newSessionFixture() (*SessionService, *mockSessionRepository, *mockPublisher) {
	sessions := &mockSessionRepository{}
	publisher := &mockPublisher{}
	svc := NewSessionService(sessions, publisher, zap.NewNop()).WithClock(fixedClock)
	return svc, sessions, publisher
}

func TestListFlagsCurrentSession(t *testing.T) {
	svc, sessions, _ := newSessionFixture()
	sessions.listResult = []domain.Session{
		{ID: "sess-2", UserID: "user-1", LastActiveAt: testNow},
		{ID: "sess-1", UserID: "user-1", LastActiveAt: testNow.Add(-time.Hour)},
	}

	views, err := svc.List(context.Background(), "user-1", "sess-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(views))
	}
	if views[0].Current {
		t.Fatal("sess-2 should not be flagged current")
	}
	if !views[1].Current {
		t.Fatal("sess-1 should be flagged current")
	}
}

func TestRevokeSession(t *testing.T) {
	svc, sessions, publisher := newSessionFixture()

	if err := svc.Revoke(context.Background(), "user-1", "sess-1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if sessions.deleteCalls != 1 || sessions.deletedSess != "sess-1" {
		t.Fatalf("expected sess-1 deleted, got calls=%d id=%s", sessions.deleteCalls, sessions.deletedSess)
	}
	if len(publisher.sessionRevoked) != 1 {
		t.Fatalf("expected a revoked event, got %d", len(publisher.sessionRevoked))
	}
	if publisher.sessionRevoked[0].Reason != "user_request" {
		t.Fatalf("unexpected reason: %s", publisher.sessionRevoked[0].Reason)
	}
}

func TestRevokeForeignSession(t *testing.T) {
	svc, sessions, publisher := newSessionFixture()
	sessions.deleteErr = repository.ErrNotFound

	err := svc.Revoke(context.Background(), "user-1", "someone-elses")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if len(publisher.sessionRevoked) != 0 {
		t.Fatal("no event for a failed revoke")
	}
}

func TestRevokeAllExceptCurrent(t *testing.T) {
	svc, sessions, publisher := newSessionFixture()
	sessions.deleteAllN = 3

	count, err := svc.RevokeAllExcept(context.Background(), "user-1", "sess-current")
	if err != nil {
		t.Fatalf("RevokeAllExcept: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 revoked, got %d", count)
	}
	if sessions.deleteAllKep != "sess-current" {
		t.Fatalf("current session must be kept, got keep=%s", sessions.deleteAllKep)
	}
	if len(publisher.sessionRevoked) != 1 || publisher.sessionRevoked[0].Reason != "bulk_revoke" {
		t.Fatalf("expected one bulk event, got %+v", publisher.sessionRevoked)
	}
}

func TestRevokeAllExceptNothingToDo(t *testing.T) {
	svc, _, publisher := newSessionFixture()

	count, err := svc.RevokeAllExcept(context.Background(), "user-1", "sess-current")
	if err != nil {
		t.Fatalf("RevokeAllExcept: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 revoked, got %d", count)
	}
	if len(publisher.sessionRevoked) != 0 {
		t.Fatal("no event when nothing was revoked")
	}
}
