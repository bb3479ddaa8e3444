package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/core/domain"
)

func newProfileFixture() (*ProfileService, *mockUserRepository, *mockProfileRepository) {
	users := &mockUserRepository{}
	profiles := &mockProfileRepository{}
	svc := NewProfileService(users, profiles, zap.NewNop()).WithClock(fixedClock)
	return svc, users, profiles
}

func TestGetAccount(t *testing.T) {
	svc, users, profiles := newProfileFixture()
	users.getByIDResult = &domain.User{ID: "user-1", Email: "john@example.com", IsActive: true}
	profiles.getByUserResult = &domain.Profile{
		UserID:      "user-1",
		DisplayName: "John",
		Surname:     "Doe",
		CreatedAt:   testNow.Add(-48 * time.Hour),
		UpdatedAt:   testNow.Add(-48 * time.Hour),
	}

	account, err := svc.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if account.User.Email != "john@example.com" || account.Profile.DisplayName != "John" {
		t.Fatalf("unexpected account: %+v", account)
	}
}

func TestGetAccountUnknownUser(t *testing.T) {
	svc, _, _ := newProfileFixture()

	if _, err := svc.Get(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateProfilePartialPatch(t *testing.T) {
	svc, _, profiles := newProfileFixture()
	createdAt := testNow.Add(-48 * time.Hour)
	profiles.getByUserResult = &domain.Profile{
		UserID:      "user-1",
		DisplayName: "John",
		Surname:     "Doe",
		Phone:       "+15550001111",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	newName := "Johnny"
	updated, err := svc.UpdateProfile(context.Background(), "user-1", domain.ProfilePatch{DisplayName: &newName})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	if updated.DisplayName != "Johnny" {
		t.Fatalf("patched field not applied: %s", updated.DisplayName)
	}
	if updated.Surname != "Doe" || updated.Phone != "+15550001111" {
		t.Fatal("untouched fields must survive a partial patch")
	}
	if !updated.UpdatedAt.Equal(testNow) {
		t.Fatalf("updated_at not bumped: %s", updated.UpdatedAt)
	}
	if profiles.updateCalls != 1 {
		t.Fatalf("expected one write, got %d", profiles.updateCalls)
	}
}

func TestUpdateProfileStorageError(t *testing.T) {
	svc, _, profiles := newProfileFixture()
	profiles.getByUserResult = &domain.Profile{UserID: "user-1"}
	profiles.updateErr = errStorageDown

	name := "Johnny"
	if _, err := svc.UpdateProfile(context.Background(), "user-1", domain.ProfilePatch{DisplayName: &name}); !errors.Is(err, errStorageDown) {
		t.Fatalf("storage errors must propagate, got %v", err)
	}
}

func TestSetAvatar(t *testing.T) {
	svc, _, profiles := newProfileFixture()

	if err := svc.SetAvatar(context.Background(), "user-1", "avatars/user-1/7f3a.png"); err != nil {
		t.Fatalf("SetAvatar: %v", err)
	}
	if profiles.setAvatarCalls != 1 || profiles.setAvatarRef != "avatars/user-1/7f3a.png" {
		t.Fatalf("avatar ref not recorded: calls=%d ref=%s", profiles.setAvatarCalls, profiles.setAvatarRef)
	}
}

func TestDeactivateAccount(t *testing.T) {
	svc, users, _ := newProfileFixture()

	if err := svc.Deactivate(context.Background(), "user-1"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if users.deactivateCalls != 1 {
		t.Fatalf("expected one deactivate call, got %d", users.deactivateCalls)
	}
}
