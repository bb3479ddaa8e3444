package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/infra/security"
)

func newTwoFactorFixture() (*TwoFactorService, *mockTwoFactorRepository, *mockUserRepository) {
	credentials := &mockTwoFactorRepository{}
	users := &mockUserRepository{}
	manager := security.NewTOTPManager("SafeLease").WithClock(fixedClock)
	svc := NewTwoFactorService(credentials, users, manager, zap.NewNop()).WithClock(fixedClock)
	return svc, credentials, users
}

func totpCodeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()

	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period: 30, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("GenerateCodeCustom: %v", err)
	}
	return code
}

func TestTwoFactorSetup(t *testing.T) {
	svc, credentials, users := newTwoFactorFixture()
	users.getByIDResult = &domain.User{ID: "user-1", Email: "john@example.com", IsActive: true}

	result, err := svc.Setup(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if result.Secret == "" {
		t.Fatal("expected a secret")
	}
	if !strings.HasPrefix(result.ProvisioningURI, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning URI: %s", result.ProvisioningURI)
	}

	if credentials.upsertCalls != 0 {
		t.Fatal("setup must not persist anything before proof of possession")
	}
}

func TestTwoFactorSetupUnknownUser(t *testing.T) {
	svc, _, _ := newTwoFactorFixture()

	if _, err := svc.Setup(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestTwoFactorActivate(t *testing.T) {
	svc, credentials, users := newTwoFactorFixture()
	users.getByIDResult = &domain.User{ID: "user-1", Email: "john@example.com", IsActive: true}

	setup, err := svc.Setup(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	codes, err := svc.Activate(context.Background(), "user-1", setup.Secret, totpCodeAt(t, setup.Secret, testNow))
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if len(codes) != defaultBackupCodeCount {
		t.Fatalf("expected %d backup codes, got %d", defaultBackupCodeCount, len(codes))
	}

	if credentials.upsertCalls != 1 {
		t.Fatalf("expected one upsert, got %d", credentials.upsertCalls)
	}
	if !credentials.upserted.Active {
		t.Fatal("activation must store the credential active")
	}
	if credentials.upserted.Secret != setup.Secret {
		t.Fatal("the proven secret must be the one persisted")
	}
	if len(credentials.upserted.BackupCodeHashes) != len(codes) {
		t.Fatal("every backup code must be stored hashed")
	}
	for i, code := range codes {
		if credentials.upserted.BackupCodeHashes[i] != security.HashToken(code) {
			t.Fatalf("hash mismatch for backup code %d", i)
		}
		if strings.Contains(strings.Join(credentials.upserted.BackupCodeHashes, " "), code) {
			t.Fatal("plaintext backup code leaked into storage")
		}
	}
}

func TestTwoFactorActivateWrongCode(t *testing.T) {
	svc, credentials, _ := newTwoFactorFixture()

	if _, err := svc.Activate(context.Background(), "user-1", "JBSWY3DPEHPK3PXP", "000000"); !errors.Is(err, ErrTwoFactorCodeInvalid) {
		t.Fatalf("expected ErrTwoFactorCodeInvalid, got %v", err)
	}
	if credentials.upsertCalls != 0 {
		t.Fatal("wrong code must not activate anything")
	}
}

func TestTwoFactorActivateOverwritesPriorCredential(t *testing.T) {
	svc, credentials, _ := newTwoFactorFixture()
	credentials.getResult = &domain.TwoFactorCredential{
		UserID:           "user-1",
		Secret:           "OLDSECRETOLDSECRET",
		Active:           true,
		BackupCodeHashes: []string{security.HashToken("spent")},
	}

	manager := security.NewTOTPManager("SafeLease")
	secret, _, err := manager.GenerateSecret("john@example.com")
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}

	if _, err := svc.Activate(context.Background(), "user-1", secret, totpCodeAt(t, secret, testNow)); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if credentials.upserted.Secret != secret {
		t.Fatal("re-activation must replace the stored secret")
	}
}

func TestTwoFactorVerifyTOTP(t *testing.T) {
	svc, credentials, users := newTwoFactorFixture()
	users.getByIDResult = &domain.User{ID: "user-1", Email: "john@example.com", IsActive: true}

	setup, err := svc.Setup(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	credentials.getResult = &domain.TwoFactorCredential{UserID: "user-1", Secret: setup.Secret, Active: true}

	ok, err := svc.Verify(context.Background(), "user-1", totpCodeAt(t, setup.Secret, testNow))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("a valid totp code must verify")
	}
	if credentials.removeCodeCalls != 0 {
		t.Fatal("a valid totp code must not touch backup codes")
	}
}

func TestTwoFactorVerifyBackupCodeSpendsOnce(t *testing.T) {
	svc, credentials, _ := newTwoFactorFixture()

	backupCode := "a1b2c3d4e5"
	credentials.getResult = &domain.TwoFactorCredential{
		UserID:           "user-1",
		Secret:           "JBSWY3DPEHPK3PXP",
		Active:           true,
		BackupCodeHashes: []string{security.HashToken(backupCode)},
	}

	ok, err := svc.Verify(context.Background(), "user-1", backupCode)
	if err != nil {
		t.Fatalf("Verify with backup code: %v", err)
	}
	if !ok {
		t.Fatal("a stored backup code must verify")
	}
	if credentials.removedHash != security.HashToken(backupCode) {
		t.Fatal("the spent hash must be removed from storage")
	}

	// code gone from storage, second try must fail
	credentials.getResult.BackupCodeHashes = nil
	ok, err = svc.Verify(context.Background(), "user-1", backupCode)
	if err != nil {
		t.Fatalf("Verify second attempt: %v", err)
	}
	if ok {
		t.Fatal("backup code must spend once")
	}
}

func TestTwoFactorVerifyNotActive(t *testing.T) {
	svc, credentials, _ := newTwoFactorFixture()
	credentials.getResult = &domain.TwoFactorCredential{UserID: "user-1", Secret: "JBSWY3DPEHPK3PXP", Active: false}

	ok, err := svc.Verify(context.Background(), "user-1", "123456")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("pending enrollment must not verify")
	}
}

func TestTwoFactorDeactivate(t *testing.T) {
	svc, credentials, users := newTwoFactorFixture()
	users.getByIDResult = &domain.User{ID: "user-1", Email: "john@example.com", IsActive: true}

	setup, err := svc.Setup(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	credentials.getResult = &domain.TwoFactorCredential{UserID: "user-1", Secret: setup.Secret, Active: true}

	if err := svc.Deactivate(context.Background(), "user-1", totpCodeAt(t, setup.Secret, testNow)); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if credentials.deleteCalls != 1 {
		t.Fatalf("expected the credential deleted, got %d calls", credentials.deleteCalls)
	}
}

func TestTwoFactorDeactivateWrongCode(t *testing.T) {
	svc, credentials, _ := newTwoFactorFixture()
	credentials.getResult = &domain.TwoFactorCredential{UserID: "user-1", Secret: "JBSWY3DPEHPK3PXP", Active: true}

	if err := svc.Deactivate(context.Background(), "user-1", "000000"); !errors.Is(err, ErrTwoFactorCodeInvalid) {
		t.Fatalf("expected ErrTwoFactorCodeInvalid, got %v", err)
	}
	if credentials.deleteCalls != 0 {
		t.Fatal("wrong code must not tear down the factor")
	}
}

func TestTwoFactorStatus(t *testing.T) {
	svc, credentials, _ := newTwoFactorFixture()

	enabled, remaining, err := svc.Status(context.Background(), "user-1")
	if err != nil || enabled || remaining != 0 {
		t.Fatalf("unenrolled user: enabled=%v remaining=%d err=%v", enabled, remaining, err)
	}

	credentials.getResult = &domain.TwoFactorCredential{
		UserID:           "user-1",
		Secret:           "JBSWY3DPEHPK3PXP",
		Active:           true,
		BackupCodeHashes: []string{"h1", "h2", "h3"},
	}
	enabled, remaining, err = svc.Status(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !enabled || remaining != 3 {
		t.Fatalf("expected enabled with 3 codes left, got enabled=%v remaining=%d", enabled, remaining)
	}
}
