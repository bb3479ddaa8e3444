package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/repository"
)

type mockUserRepository struct {
	createErr   error
	createCalls int
	createdUser domain.User

	getByIDResult *domain.User
	getByIDErr    error
	getByIDCalls  int

	getByEmailResult    *domain.User
	getByEmailErr       error
	getByEmailCalls     int
	getByEmailLastEmail string

	updatePasswordErr   error
	updatePasswordCalls int
	updatePasswordHash  string

	setVerifiedErr   error
	setVerifiedCalls int

	deactivateErr   error
	deactivateCalls int
}

func (m *mockUserRepository) Create(_ context.Context, user domain.User) error {
	m.createCalls++
	m.createdUser = user
	return m.createErr
}

func (m *mockUserRepository) GetByID(_ context.Context, _ string) (*domain.User, error) {
	m.getByIDCalls++
	if m.getByIDErr != nil {
		return nil, m.getByIDErr
	}
	if m.getByIDResult == nil {
		return nil, repository.ErrNotFound
	}
	copied := *m.getByIDResult
	return &copied, nil
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.getByEmailCalls++
	m.getByEmailLastEmail = email
	if m.getByEmailErr != nil {
		return nil, m.getByEmailErr
	}
	if m.getByEmailResult == nil {
		return nil, repository.ErrNotFound
	}
	copied := *m.getByEmailResult
	return &copied, nil
}

func (m *mockUserRepository) UpdatePassword(_ context.Context, _ string, passwordHash string, _ time.Time) error {
	m.updatePasswordCalls++
	m.updatePasswordHash = passwordHash
	return m.updatePasswordErr
}

func (m *mockUserRepository) SetEmailVerified(_ context.Context, _ string) error {
	m.setVerifiedCalls++
	return m.setVerifiedErr
}

func (m *mockUserRepository) Deactivate(_ context.Context, _ string) error {
	m.deactivateCalls++
	return m.deactivateErr
}

type mockProfileRepository struct {
	createErr      error
	createCalls    int
	createdProfile domain.Profile

	getByUserResult *domain.Profile
	getByUserErr    error

	updateErr      error
	updateCalls    int
	updatedProfile domain.Profile

	setAvatarErr   error
	setAvatarCalls int
	setAvatarRef   string
}

func (m *mockProfileRepository) Create(_ context.Context, profile domain.Profile) error {
	m.createCalls++
	m.createdProfile = profile
	return m.createErr
}

func (m *mockProfileRepository) GetByUser(_ context.Context, _ string) (*domain.Profile, error) {
	if m.getByUserErr != nil {
		return nil, m.getByUserErr
	}
	if m.getByUserResult == nil {
		return nil, repository.ErrNotFound
	}
	copied := *m.getByUserResult
	return &copied, nil
}

func (m *mockProfileRepository) Update(_ context.Context, profile domain.Profile) error {
	m.updateCalls++
	m.updatedProfile = profile
	return m.updateErr
}

func (m *mockProfileRepository) SetAvatar(_ context.Context, _ string, avatarRef string, _ time.Time) error {
	m.setAvatarCalls++
	m.setAvatarRef = avatarRef
	return m.setAvatarErr
}

type mockTokenRepository struct {
	createVerificationErr   error
	createVerificationCalls int
	createdVerification     domain.EmailVerificationToken

	getVerificationResult *domain.EmailVerificationToken
	getVerificationErr    error

	consumeVerificationErr   error
	consumeVerificationCalls int
	consumedVerificationID   string

	createResetErr   error
	createResetCalls int
	createdReset     domain.PasswordResetToken

	getResetResult *domain.PasswordResetToken
	getResetErr    error

	consumeResetErr   error
	consumeResetCalls int
	consumedResetID   string

	createOTPErr   error
	createOTPCalls int
	createdOTP     domain.OTPChallenge

	getOTPResult   *domain.OTPChallenge
	getOTPErr      error
	getOTPCodeHash string

	consumeOTPErr   error
	consumeOTPCalls int
	consumedOTPID   string
}

func (m *mockTokenRepository) CreateEmailVerification(_ context.Context, token domain.EmailVerificationToken) error {
	m.createVerificationCalls++
	m.createdVerification = token
	return m.createVerificationErr
}

func (m *mockTokenRepository) GetEmailVerificationByHash(_ context.Context, _ string) (*domain.EmailVerificationToken, error) {
	if m.getVerificationErr != nil {
		return nil, m.getVerificationErr
	}
	if m.getVerificationResult == nil {
		return nil, repository.ErrNotFound
	}
	copied := *m.getVerificationResult
	return &copied, nil
}

func (m *mockTokenRepository) ConsumeEmailVerification(_ context.Context, id string, _ time.Time) error {
	m.consumeVerificationCalls++
	m.consumedVerificationID = id
	return m.consumeVerificationErr
}

func (m *mockTokenRepository) CreatePasswordReset(_ context.Context, token domain.PasswordResetToken) error {
	m.createResetCalls++
	m.createdReset = token
	return m.createResetErr
}

func (m *mockTokenRepository) GetPasswordResetByHash(_ context.Context, _ string) (*domain.PasswordResetToken, error) {
	if m.getResetErr != nil {
		return nil, m.getResetErr
	}
	if m.getResetResult == nil {
		return nil, repository.ErrNotFound
	}
	copied := *m.getResetResult
	return &copied, nil
}

func (m *mockTokenRepository) ConsumePasswordReset(_ context.Context, id string, _ time.Time) error {
	m.consumeResetCalls++
	m.consumedResetID = id
	return m.consumeResetErr
}

func (m *mockTokenRepository) CreateOTPChallenge(_ context.Context, challenge domain.OTPChallenge) error {
	m.createOTPCalls++
	m.createdOTP = challenge
	return m.createOTPErr
}

func (m *mockTokenRepository) GetOTPChallenge(_ context.Context, _ string, codeHash string) (*domain.OTPChallenge, error) {
	m.getOTPCodeHash = codeHash
	if m.getOTPErr != nil {
		return nil, m.getOTPErr
	}
	if m.getOTPResult == nil {
		return nil, repository.ErrNotFound
	}
	copied := *m.getOTPResult
	return &copied, nil
}

func (m *mockTokenRepository) ConsumeOTPChallenge(_ context.Context, id string, _ time.Time) error {
	m.consumeOTPCalls++
	m.consumedOTPID = id
	return m.consumeOTPErr
}

type mockSessionRepository struct {
	createErr      error
	createCalls    int
	createdSession domain.Session

	listResult []domain.Session
	listErr    error

	getByRefreshResult *domain.Session
	getByRefreshErr    error
	getByRefreshLastID string

	rotateErr    error
	rotateCalls  int
	rotatedJTI   string
	rotatedSess  string
	deleteErr    error
	deleteCalls  int
	deletedSess  string
	deleteAllErr error
	deleteAllN   int
	deleteAllKep string
}

func (m *mockSessionRepository) Create(_ context.Context, session domain.Session) error {
	m.createCalls++
	m.createdSession = session
	return m.createErr
}

func (m *mockSessionRepository) ListByUser(_ context.Context, _ string) ([]domain.Session, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Session, len(m.listResult))
	copy(out, m.listResult)
	return out, nil
}

func (m *mockSessionRepository) GetByRefreshTokenID(_ context.Context, refreshTokenID string) (*domain.Session, error) {
	m.getByRefreshLastID = refreshTokenID
	if m.getByRefreshErr != nil {
		return nil, m.getByRefreshErr
	}
	if m.getByRefreshResult == nil {
		return nil, repository.ErrNotFound
	}
	copied := *m.getByRefreshResult
	return &copied, nil
}

func (m *mockSessionRepository) RotateRefreshToken(_ context.Context, sessionID, refreshTokenID string, _ time.Time) error {
	m.rotateCalls++
	m.rotatedSess = sessionID
	m.rotatedJTI = refreshTokenID
	return m.rotateErr
}

func (m *mockSessionRepository) Delete(_ context.Context, _ string, sessionID string) error {
	m.deleteCalls++
	m.deletedSess = sessionID
	return m.deleteErr
}

func (m *mockSessionRepository) DeleteAllExcept(_ context.Context, _ string, keepSessionID string) (int, error) {
	m.deleteAllKep = keepSessionID
	if m.deleteAllErr != nil {
		return 0, m.deleteAllErr
	}
	return m.deleteAllN, nil
}

type mockTwoFactorRepository struct {
	upsertErr   error
	upsertCalls int
	upserted    domain.TwoFactorCredential

	getResult *domain.TwoFactorCredential
	getErr    error

	removeCodeErr   error
	removeCodeCalls int
	removedHash     string

	deleteErr   error
	deleteCalls int
}

func (m *mockTwoFactorRepository) Upsert(_ context.Context, credential domain.TwoFactorCredential) error {
	m.upsertCalls++
	m.upserted = credential
	return m.upsertErr
}

func (m *mockTwoFactorRepository) GetByUser(_ context.Context, _ string) (*domain.TwoFactorCredential, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.getResult == nil {
		return nil, repository.ErrNotFound
	}
	copied := *m.getResult
	copied.BackupCodeHashes = append([]string(nil), m.getResult.BackupCodeHashes...)
	return &copied, nil
}

func (m *mockTwoFactorRepository) RemoveBackupCode(_ context.Context, _ string, codeHash string) error {
	m.removeCodeCalls++
	m.removedHash = codeHash
	if m.removeCodeErr != nil {
		return m.removeCodeErr
	}
	if m.getResult == nil {
		return repository.ErrNotFound
	}
	for _, stored := range m.getResult.BackupCodeHashes {
		if stored == codeHash {
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *mockTwoFactorRepository) Delete(_ context.Context, _ string) error {
	m.deleteCalls++
	return m.deleteErr
}

// mockTransactor runs the unit of work directly; there is no storage to roll
// back, the error return is what callers act on.
type mockTransactor struct {
	calls int
	err   error
}

func (m *mockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	return fn(ctx)
}

type mockPublisher struct {
	registered      []domain.UserRegisteredEvent
	passwordChanged []domain.PasswordChangedEvent
	sessionRevoked  []domain.SessionRevokedEvent
	err             error
}

func (m *mockPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	m.registered = append(m.registered, event)
	return m.err
}

func (m *mockPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	m.passwordChanged = append(m.passwordChanged, event)
	return m.err
}

func (m *mockPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	m.sessionRevoked = append(m.sessionRevoked, event)
	return m.err
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type mockMailer struct {
	sent []sentMail
	err  error
}

func (m *mockMailer) Send(_ context.Context, to, subject, body string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return "delivery-1", nil
}

var errStorageDown = errors.New("storage down")
