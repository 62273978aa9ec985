package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypath-hub/studypath-hub/internal/domain/learner"
	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
	"github.com/studypath-hub/studypath-hub/internal/infrastructure/messaging"
	"github.com/studypath-hub/studypath-hub/pkg/logger"
)

// fakeAccounts is an in-memory learner.AccountRepository.
type fakeAccounts struct {
	accounts []learner.Account
	current  shared.Email
}

func (f *fakeAccounts) Create(_ context.Context, a learner.Account) error {
	for _, existing := range f.accounts {
		if existing.Email.Normalize() == a.Email.Normalize() {
			return shared.NewDomainError("learner", "Create", shared.ErrAccountExists, "duplicate")
		}
	}
	f.accounts = append(f.accounts, a)
	return nil
}

func (f *fakeAccounts) FindByEmail(_ context.Context, email shared.Email) (learner.Account, error) {
	for _, a := range f.accounts {
		if a.Email.Normalize() == email.Normalize() {
			return a, nil
		}
	}
	return learner.Account{}, shared.NewDomainError("learner", "FindByEmail", shared.ErrNotFound, "no such account")
}

func (f *fakeAccounts) List(_ context.Context) ([]learner.Account, error) {
	return f.accounts, nil
}

func (f *fakeAccounts) CurrentEmail(_ context.Context) (shared.Email, error) {
	return f.current, nil
}

func (f *fakeAccounts) SetCurrentEmail(_ context.Context, email shared.Email) error {
	f.current = email
	return nil
}

func newLocalResolver(t *testing.T) (*Resolver, *fakeAccounts, *messaging.InMemoryEventBus) {
	t.Helper()
	accounts := &fakeAccounts{}
	bus := messaging.NewInMemoryEventBus(logger.NewNop())
	r := NewLocal(accounts, bus, logger.NewNop())
	return r, accounts, bus
}

func TestSignUpCreatesAccountAndSignsIn(t *testing.T) {
	r, accounts, _ := newLocalResolver(t)
	ctx := context.Background()

	id, err := r.SignUp(ctx, SignUpInput{
		Email:    "Ada@Example.com",
		Password: "lovelace",
		Confirm:  "lovelace",
	})
	require.NoError(t, err)

	assert.Equal(t, learner.KindLocal, id.Kind)
	assert.Equal(t, "ada@example.com", id.UserID)
	assert.Equal(t, shared.Email("ada@example.com"), accounts.current)
	require.Len(t, accounts.accounts, 1)
	assert.NotEmpty(t, accounts.accounts[0].ID)
}

func TestSignUpValidation(t *testing.T) {
	r, _, _ := newLocalResolver(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   SignUpInput
		want error
	}{
		{"empty email", SignUpInput{Password: "pw", Confirm: "pw"}, shared.ErrEmptyValue},
		{"empty password", SignUpInput{Email: "a@b.co"}, shared.ErrEmptyValue},
		{"malformed email", SignUpInput{Email: "not-an-email", Password: "pw", Confirm: "pw"}, shared.ErrInvalidFormat},
		{"confirm mismatch", SignUpInput{Email: "a@b.co", Password: "pw", Confirm: "other"}, shared.ErrConfirmMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.SignUp(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSignUpExistingEmailDifferentPassword(t *testing.T) {
	r, _, _ := newLocalResolver(t)
	ctx := context.Background()

	_, err := r.SignUp(ctx, SignUpInput{Email: "a@b.co", Password: "first", Confirm: "first"})
	require.NoError(t, err)

	_, err = r.SignUp(ctx, SignUpInput{Email: "a@b.co", Password: "second", Confirm: "second"})
	assert.ErrorIs(t, err, shared.ErrAccountExists)
}

func TestSignUpExistingEmailSamePasswordIsSignIn(t *testing.T) {
	r, accounts, _ := newLocalResolver(t)
	ctx := context.Background()

	_, err := r.SignUp(ctx, SignUpInput{Email: "a@b.co", Password: "pw", Confirm: "pw"})
	require.NoError(t, err)
	r.SignOut(ctx)

	id, err := r.SignUp(ctx, SignUpInput{Email: "a@b.co", Password: "pw", Confirm: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", id.UserID)
	assert.Len(t, accounts.accounts, 1, "no duplicate account may be created")
}

func TestSignInWrongPasswordAndUnknownEmailCollapse(t *testing.T) {
	r, _, _ := newLocalResolver(t)
	ctx := context.Background()

	_, err := r.SignUp(ctx, SignUpInput{Email: "a@b.co", Password: "pw", Confirm: "pw"})
	require.NoError(t, err)

	_, errWrong := r.SignIn(ctx, "a@b.co", "nope")
	_, errUnknown := r.SignIn(ctx, "ghost@b.co", "pw")

	assert.ErrorIs(t, errWrong, shared.ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, shared.ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error(),
		"both failures must read identically")
}

func TestSignOutAlwaysReturnsGuest(t *testing.T) {
	r, accounts, _ := newLocalResolver(t)
	ctx := context.Background()

	_, err := r.SignUp(ctx, SignUpInput{Email: "a@b.co", Password: "pw", Confirm: "pw"})
	require.NoError(t, err)

	id := r.SignOut(ctx)
	assert.True(t, id.IsGuest())
	assert.Equal(t, shared.Email(""), accounts.current)

	// Signing out as guest is a no-op that still succeeds.
	id = r.SignOut(ctx)
	assert.True(t, id.IsGuest())
}

func TestResolveFollowsCurrentPointer(t *testing.T) {
	r, accounts, _ := newLocalResolver(t)
	ctx := context.Background()

	accounts.accounts = append(accounts.accounts, learner.Account{
		ID: "1", Email: "a@b.co", Password: "pw",
	})
	accounts.current = "a@b.co"

	id, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", id.UserID)
	assert.Equal(t, learner.KindLocal, id.Kind)
}

func TestResolveDanglingPointerFallsBackToGuest(t *testing.T) {
	r, accounts, _ := newLocalResolver(t)
	accounts.current = "gone@b.co"

	id, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, id.IsGuest())
}

func TestResolveEmptyPointerStaysGuest(t *testing.T) {
	r, _, _ := newLocalResolver(t)

	id, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, id.IsGuest())
}

func TestResolveRemoteStartsAsGuest(t *testing.T) {
	r := NewRemote(&fakeProvider{sessions: map[string]learner.Session{}},
		&fakeSessions{store: map[string]learner.Session{}},
		messaging.NewInMemoryEventBus(logger.NewNop()), logger.NewNop())

	id, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, id.IsGuest())
}

func TestEpochAdvancesOnEveryTransition(t *testing.T) {
	r, _, _ := newLocalResolver(t)
	ctx := context.Background()

	_, start := r.Current()

	_, err := r.SignUp(ctx, SignUpInput{Email: "a@b.co", Password: "pw", Confirm: "pw"})
	require.NoError(t, err)
	require.NoError(t, r.CheckEpoch(start+1))
	assert.ErrorIs(t, r.CheckEpoch(start), shared.ErrStaleIdentity)

	r.SignOut(ctx)
	assert.ErrorIs(t, r.CheckEpoch(start+1), shared.ErrStaleIdentity)
	assert.NoError(t, r.CheckEpoch(start+2))
}

func TestIdentityChangedEventCarriesPreviousScope(t *testing.T) {
	r, _, bus := newLocalResolver(t)
	ctx := context.Background()

	var events []shared.IdentityChangedEvent
	err := bus.Subscribe(shared.EventIdentityChanged, func(e shared.Event) {
		if ice, ok := e.(shared.IdentityChangedEvent); ok {
			events = append(events, ice)
		}
	})
	require.NoError(t, err)

	_, err = r.SignUp(ctx, SignUpInput{Email: "a@b.co", Password: "pw", Confirm: "pw"})
	require.NoError(t, err)
	r.SignOut(ctx)

	require.Len(t, events, 2)
	assert.Equal(t, shared.GuestUserID, events[0].PreviousUserID)
	assert.Equal(t, "a@b.co", events[0].ScopeUserID())
	assert.Equal(t, "a@b.co", events[1].PreviousUserID)
	assert.Equal(t, shared.GuestUserID, events[1].ScopeUserID())
	assert.Greater(t, events[1].Epoch, events[0].Epoch)
}

// fakeProvider is an in-memory learner.Provider for remote-backend tests.
type fakeProvider struct {
	sessions map[string]learner.Session
}

func (f *fakeProvider) SignUp(_ context.Context, email shared.Email, password, displayName string) (learner.Session, error) {
	s := learner.Session{Token: "tok-" + email.String(), UserID: "uid-" + email.String(), Email: email, DisplayName: displayName}
	f.sessions[s.Token] = s
	return s, nil
}

func (f *fakeProvider) SignIn(_ context.Context, email shared.Email, password string) (learner.Session, error) {
	for _, s := range f.sessions {
		if s.Email == email {
			return s, nil
		}
	}
	return learner.Session{}, badCredentials("SignIn")
}

type fakeSessions struct {
	store map[string]learner.Session
}

func (f *fakeSessions) Put(_ context.Context, s learner.Session) error {
	f.store[s.Token] = s
	return nil
}

func (f *fakeSessions) Get(_ context.Context, token string) (learner.Session, error) {
	s, ok := f.store[token]
	if !ok {
		return learner.Session{}, shared.NewDomainError("learner", "GetSession", shared.ErrNotFound, "unknown token")
	}
	return s, nil
}

func (f *fakeSessions) Delete(_ context.Context, token string) error {
	delete(f.store, token)
	return nil
}

func TestRemoteSignUpUsesProviderSession(t *testing.T) {
	provider := &fakeProvider{sessions: map[string]learner.Session{}}
	sessions := &fakeSessions{store: map[string]learner.Session{}}
	bus := messaging.NewInMemoryEventBus(logger.NewNop())
	r := NewRemote(provider, sessions, bus, logger.NewNop())
	ctx := context.Background()

	id, err := r.SignUp(ctx, SignUpInput{Email: "a@b.co", Password: "pw", Confirm: "pw", DisplayName: "Ada"})
	require.NoError(t, err)

	assert.Equal(t, learner.KindRemote, id.Kind)
	assert.Equal(t, "uid-a@b.co", id.UserID)
	assert.Equal(t, "Ada", id.DisplayName)
	assert.Equal(t, "tok-a@b.co", r.Token())
}

func TestRemoteSignOutDeletesSession(t *testing.T) {
	provider := &fakeProvider{sessions: map[string]learner.Session{}}
	sessions := &fakeSessions{store: map[string]learner.Session{}}
	r := NewRemote(provider, sessions, messaging.NewInMemoryEventBus(logger.NewNop()), logger.NewNop())
	ctx := context.Background()

	_, err := r.SignUp(ctx, SignUpInput{Email: "a@b.co", Password: "pw", Confirm: "pw"})
	require.NoError(t, err)
	token := r.Token()
	sessions.store[token] = learner.Session{Token: token}

	id := r.SignOut(ctx)
	assert.True(t, id.IsGuest())
	assert.Empty(t, r.Token())
	_, ok := sessions.store[token]
	assert.False(t, ok, "session must be deleted on sign-out")
}

func TestResumeSession(t *testing.T) {
	sessions := &fakeSessions{store: map[string]learner.Session{
		"tok-1": {Token: "tok-1", UserID: "uid-1", Email: "a@b.co", DisplayName: "Ada"},
	}}
	r := NewRemote(&fakeProvider{sessions: map[string]learner.Session{}}, sessions,
		messaging.NewInMemoryEventBus(logger.NewNop()), logger.NewNop())

	id, err := r.ResumeSession(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", id.UserID)
	assert.Equal(t, learner.KindRemote, id.Kind)

	_, err = r.ResumeSession(context.Background(), "expired")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
