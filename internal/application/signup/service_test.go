package signup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/saas-starter-api/internal/application/verify"
	"github.com/saas-starter-api/internal/domain"
	"github.com/saas-starter-api/internal/pkg/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Create(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) SetVerified(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type mockSecretStore struct{ mock.Mock }

func (m *mockSecretStore) Put(ctx context.Context, rec *domain.SecretRecord) error {
	return m.Called(ctx, rec).Error(0)
}
func (m *mockSecretStore) Delete(ctx context.Context, identifier string) error {
	return m.Called(ctx, identifier).Error(0)
}

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) Verify(ctx context.Context, subject string, purpose domain.Purpose, presented string) (verify.Outcome, error) {
	args := m.Called(ctx, subject, purpose, presented)
	return args.Get(0).(verify.Outcome), args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

// --- builder ---

func newService(as *mockAccountStore, ss *mockSecretStore, v *mockVerifier, ml *mockMailer) Service {
	return NewService(ServiceDeps{
		AccountRepo: as,
		SecretRepo:  ss,
		Verifier:    v,
		Mailer:      ml,
		Generate:    func(int) string { return "123456" },
		OTPLength:   6,
		OTPTTL:      5 * time.Minute,
	})
}

func signupReq(email string) domain.SignupRequest {
	return domain.SignupRequest{Email: email, Password: "password123", Name: "A"}
}

// --- Signup ---

func TestSignup_HappyPath(t *testing.T) {
	as := &mockAccountStore{}
	ss := &mockSecretStore{}
	ml := &mockMailer{}

	var created *domain.Account
	as.On("Create", mock.Anything, mock.AnythingOfType("*domain.Account")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.Account) }).
		Return(nil)
	var put *domain.SecretRecord
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.SecretRecord")).
		Run(func(args mock.Arguments) { put = args.Get(1).(*domain.SecretRecord) }).
		Return(nil)
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.MatchedBy(func(body string) bool {
		return len(body) > 0
	})).Return(nil)

	svc := newService(as, ss, nil, ml)
	a, err := svc.Signup(context.Background(), signupReq("A@x.com"))
	require.NoError(t, err)

	assert.False(t, a.Verified)
	assert.Equal(t, "a@x.com", created.Email, "email must be normalized")
	assert.NotEqual(t, "password123", created.PasswordHash)

	require.NotNil(t, put)
	assert.Equal(t, "a@x.com:email-verification", put.Identifier)
	assert.Equal(t, otp.Hash("123456"), put.CodeHash, "only the digest is persisted")
	assert.InDelta(t, time.Now().Add(5*time.Minute).Unix(), put.ExpiresAt, 2)

	ml.AssertExpectations(t)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Create", mock.Anything, mock.Anything).Return(domain.ErrConflict)

	svc := newService(as, nil, nil, nil)
	_, err := svc.Signup(context.Background(), signupReq("a@x.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestSignup_DeliveryFailureDoesNotRollBack(t *testing.T) {
	as := &mockAccountStore{}
	ss := &mockSecretStore{}
	ml := &mockMailer{}

	as.On("Create", mock.Anything, mock.Anything).Return(nil)
	ss.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newService(as, ss, nil, ml)
	a, err := svc.Signup(context.Background(), signupReq("a@x.com"))
	require.NoError(t, err, "caller still gets success; account stays recoverable via Resend")
	assert.NotNil(t, a)
	ss.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestSignup_CodeNeverInMailSubject(t *testing.T) {
	as := &mockAccountStore{}
	ss := &mockSecretStore{}
	ml := &mockMailer{}

	as.On("Create", mock.Anything, mock.Anything).Return(nil)
	ss.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", mock.Anything, verifySubject, mock.Anything).Return(nil)

	svc := newService(as, ss, nil, ml)
	_, err := svc.Signup(context.Background(), signupReq("a@x.com"))
	require.NoError(t, err)
	ml.AssertExpectations(t)
}

// --- Confirm ---

func TestConfirm_WrongCode(t *testing.T) {
	v := &mockVerifier{}
	as := &mockAccountStore{}
	ss := &mockSecretStore{}
	v.On("Verify", mock.Anything, "a@x.com", domain.PurposeEmailVerification, "000000").
		Return(verify.OutcomeMismatch, nil)

	svc := newService(as, ss, v, nil)
	err := svc.Confirm(context.Background(), "a@x.com", "000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCodeInvalid))
	as.AssertNotCalled(t, "SetVerified", mock.Anything, mock.Anything)
	ss.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestConfirm_ErrorCollapsing(t *testing.T) {
	// Never-issued and issued-then-expired must be indistinguishable to the
	// caller: both surface the same error kind.
	for _, name := range []string{"never issued", "expired"} {
		t.Run(name, func(t *testing.T) {
			v := &mockVerifier{}
			v.On("Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(verify.OutcomeNotFound, nil)

			svc := newService(&mockAccountStore{}, &mockSecretStore{}, v, nil)
			err := svc.Confirm(context.Background(), "a@x.com", "123456")
			assert.True(t, errors.Is(err, domain.ErrCodeInvalid))
		})
	}
}

func TestConfirm_HappyPath(t *testing.T) {
	v := &mockVerifier{}
	as := &mockAccountStore{}
	ss := &mockSecretStore{}

	v.On("Verify", mock.Anything, "a@x.com", domain.PurposeEmailVerification, "123456").
		Return(verify.OutcomeValid, nil)
	as.On("GetByEmail", mock.Anything, "a@x.com").
		Return(&domain.Account{AccountID: "u1", Email: "a@x.com"}, nil)
	as.On("SetVerified", mock.Anything, "a@x.com").Return(nil)
	ss.On("Delete", mock.Anything, "a@x.com:email-verification").Return(nil)

	svc := newService(as, ss, v, nil)
	require.NoError(t, svc.Confirm(context.Background(), "a@x.com", "123456"))
	as.AssertExpectations(t)
	ss.AssertExpectations(t)
}

func TestConfirm_BadLength(t *testing.T) {
	svc := newService(nil, nil, nil, nil)
	err := svc.Confirm(context.Background(), "a@x.com", "123")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestConfirm_AccountMissingIsIntegrityFault(t *testing.T) {
	v := &mockVerifier{}
	as := &mockAccountStore{}
	v.On("Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(verify.OutcomeValid, nil)
	as.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(as, &mockSecretStore{}, v, nil)
	err := svc.Confirm(context.Background(), "a@x.com", "123456")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestConfirm_DeleteFailureIsNotFatal(t *testing.T) {
	// If cleanup fails after promotion the account is already verified; a
	// leftover record is harmless and a retry is safe.
	v := &mockVerifier{}
	as := &mockAccountStore{}
	ss := &mockSecretStore{}

	v.On("Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(verify.OutcomeValid, nil)
	as.On("GetByEmail", mock.Anything, "a@x.com").
		Return(&domain.Account{AccountID: "u1", Email: "a@x.com"}, nil)
	as.On("SetVerified", mock.Anything, "a@x.com").Return(nil)
	ss.On("Delete", mock.Anything, mock.Anything).Return(domain.ErrStorage)

	svc := newService(as, ss, v, nil)
	require.NoError(t, svc.Confirm(context.Background(), "a@x.com", "123456"))
}

func TestConfirm_StorageErrorPropagates(t *testing.T) {
	v := &mockVerifier{}
	v.On("Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(verify.OutcomeNotFound, fmt.Errorf("%w: timeout", domain.ErrStorage))

	svc := newService(&mockAccountStore{}, &mockSecretStore{}, v, nil)
	err := svc.Confirm(context.Background(), "a@x.com", "123456")
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

// --- Resend ---

func TestResend_UnknownAccount(t *testing.T) {
	as := &mockAccountStore{}
	as.On("GetByEmail", mock.Anything, "b@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(as, nil, nil, nil)
	// Back-to-back calls: both must fail identically (no state accrues).
	for i := 0; i < 2; i++ {
		err := svc.Resend(context.Background(), "b@x.com")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	}
}

func TestResend_AlreadyVerified(t *testing.T) {
	as := &mockAccountStore{}
	as.On("GetByEmail", mock.Anything, "a@x.com").
		Return(&domain.Account{AccountID: "u1", Email: "a@x.com", Verified: true}, nil)

	svc := newService(as, &mockSecretStore{}, nil, nil)
	err := svc.Resend(context.Background(), "a@x.com")
	assert.True(t, errors.Is(err, domain.ErrAlreadyVerified))
}

func TestResend_SupersedesAndDelivers(t *testing.T) {
	as := &mockAccountStore{}
	ss := &mockSecretStore{}
	ml := &mockMailer{}

	as.On("GetByEmail", mock.Anything, "a@x.com").
		Return(&domain.Account{AccountID: "u1", Email: "a@x.com"}, nil)
	ss.On("Put", mock.Anything, mock.MatchedBy(func(rec *domain.SecretRecord) bool {
		return rec.Identifier == "a@x.com:email-verification"
	})).Return(nil)
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.Anything).Return(nil)

	svc := newService(as, ss, nil, ml)
	require.NoError(t, svc.Resend(context.Background(), "a@x.com"))
	ss.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestResend_DeliveryFailureSurfaced(t *testing.T) {
	as := &mockAccountStore{}
	ss := &mockSecretStore{}
	ml := &mockMailer{}

	as.On("GetByEmail", mock.Anything, "a@x.com").
		Return(&domain.Account{AccountID: "u1", Email: "a@x.com"}, nil)
	ss.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newService(as, ss, nil, ml)
	err := svc.Resend(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDelivery))
}

// --- end-to-end flow over a fake store and the real engine ---

// fakeSecretStore is an in-memory credential store with an adjustable clock,
// used to exercise the whole issue -> verify -> promote -> redeem cycle.
type fakeSecretStore struct {
	mu   sync.Mutex
	recs map[string]*domain.SecretRecord
	now  func() time.Time
}

func newFakeSecretStore() *fakeSecretStore {
	return &fakeSecretStore{recs: map[string]*domain.SecretRecord{}, now: time.Now}
}

func (f *fakeSecretStore) Put(_ context.Context, rec *domain.SecretRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.recs[rec.Identifier] = &cp
	return nil
}

func (f *fakeSecretStore) Get(_ context.Context, identifier string) (*domain.SecretRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[identifier]
	if !ok || rec.Expired(f.now()) {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeSecretStore) Delete(_ context.Context, identifier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.recs, identifier)
	return nil
}

func (f *fakeSecretStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

func TestFlow_SignupConfirmRedeemOnce(t *testing.T) {
	ctx := context.Background()
	store := newFakeSecretStore()
	engine := verify.NewEngine(store)

	as := &mockAccountStore{}
	ml := &mockMailer{}
	as.On("Create", mock.Anything, mock.Anything).Return(nil)
	acct := &domain.Account{AccountID: "u1", Email: "a@x.com"}
	as.On("GetByEmail", mock.Anything, "a@x.com").Return(acct, nil)
	as.On("SetVerified", mock.Anything, "a@x.com").
		Run(func(mock.Arguments) { acct.Verified = true }).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := NewService(ServiceDeps{
		AccountRepo: as,
		SecretRepo:  store,
		Verifier:    engine,
		Mailer:      ml,
		Generate:    func(int) string { return "123456" },
		OTPLength:   6,
		OTPTTL:      5 * time.Minute,
	})

	_, err := svc.Signup(ctx, signupReq("a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 1, store.count())

	// Wrong code: rejected, record untouched.
	err = svc.Confirm(ctx, "a@x.com", "654321")
	assert.True(t, errors.Is(err, domain.ErrCodeInvalid))
	assert.Equal(t, 1, store.count())
	assert.False(t, acct.Verified)

	// Correct code: promoted, record gone.
	require.NoError(t, svc.Confirm(ctx, "a@x.com", "123456"))
	assert.True(t, acct.Verified)
	assert.Equal(t, 0, store.count())

	// Replay: the code is dead.
	err = svc.Confirm(ctx, "a@x.com", "123456")
	assert.True(t, errors.Is(err, domain.ErrCodeInvalid))
}

func TestFlow_ExpiredCodeIsDead(t *testing.T) {
	ctx := context.Background()
	store := newFakeSecretStore()
	engine := verify.NewEngine(store)

	as := &mockAccountStore{}
	ml := &mockMailer{}
	as.On("Create", mock.Anything, mock.Anything).Return(nil)
	as.On("GetByEmail", mock.Anything, "a@x.com").
		Return(&domain.Account{AccountID: "u1", Email: "a@x.com"}, nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := NewService(ServiceDeps{
		AccountRepo: as,
		SecretRepo:  store,
		Verifier:    engine,
		Mailer:      ml,
		Generate:    func(int) string { return "123456" },
		OTPLength:   6,
		OTPTTL:      5 * time.Minute,
	})

	_, err := svc.Signup(ctx, signupReq("a@x.com"))
	require.NoError(t, err)

	// Advance the store clock past the TTL without sweeping the row: the
	// original code must behave exactly like one that never existed.
	store.now = func() time.Time { return time.Now().Add(6 * time.Minute) }
	err = svc.Confirm(ctx, "a@x.com", "123456")
	assert.True(t, errors.Is(err, domain.ErrCodeInvalid))

	as.AssertNotCalled(t, "SetVerified", mock.Anything, mock.Anything)
}

func TestFlow_ResendSupersedesPriorCode(t *testing.T) {
	ctx := context.Background()
	store := newFakeSecretStore()
	engine := verify.NewEngine(store)

	as := &mockAccountStore{}
	ml := &mockMailer{}
	as.On("Create", mock.Anything, mock.Anything).Return(nil)
	acct := &domain.Account{AccountID: "u1", Email: "a@x.com"}
	as.On("GetByEmail", mock.Anything, "a@x.com").Return(acct, nil)
	as.On("SetVerified", mock.Anything, "a@x.com").
		Run(func(mock.Arguments) { acct.Verified = true }).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	code := "111111"
	svc := NewService(ServiceDeps{
		AccountRepo: as,
		SecretRepo:  store,
		Verifier:    engine,
		Mailer:      ml,
		Generate:    func(int) string { return code },
		OTPLength:   6,
		OTPTTL:      5 * time.Minute,
	})

	_, err := svc.Signup(ctx, signupReq("a@x.com"))
	require.NoError(t, err)

	code = "222222"
	require.NoError(t, svc.Resend(ctx, "a@x.com"))
	assert.Equal(t, 1, store.count(), "reissue supersedes, never accumulates")

	// The superseded code now reads as never-issued.
	err = svc.Confirm(ctx, "a@x.com", "111111")
	assert.True(t, errors.Is(err, domain.ErrCodeInvalid))

	require.NoError(t, svc.Confirm(ctx, "a@x.com", "222222"))
	assert.True(t, acct.Verified)
}
