// Package resolver owns the acting identity. Exactly one identity is
// active at a time; every progress operation is scoped by it. The resolver
// stamps each identity with a monotonically increasing epoch so slow reads
// started under a previous identity can be detected and discarded instead
// of leaking one scope's data into another's view.
package resolver

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studypath-hub/studypath-hub/internal/domain/learner"
	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
	"github.com/studypath-hub/studypath-hub/internal/infrastructure/messaging"
	"github.com/studypath-hub/studypath-hub/pkg/logger"
)

const domain = "learner"

// badCredentials is the single error for every sign-in failure. Whether the
// account is missing or the password is wrong is deliberately not disclosed.
func badCredentials(op string) error {
	return shared.NewDomainError(domain, op, shared.ErrInvalidCredentials,
		"could not find that account or password is incorrect")
}

// SignUpInput carries the registration form fields.
type SignUpInput struct {
	Email       string
	Password    string
	Confirm     string
	DisplayName string
}

// Resolver resolves and transitions the acting identity. It backs onto
// either a device-local account list or a remote identity provider,
// whichever the deployment configured.
type Resolver struct {
	accounts learner.AccountRepository // local backend
	provider learner.Provider          // remote backend
	sessions learner.SessionStore      // remote backend

	bus messaging.EventBus
	log *logger.Logger

	mu       sync.RWMutex
	identity learner.Identity
	epoch    uint64
	token    string // remote session token, empty otherwise
}

// NewLocal creates a resolver backed by the device-local account list.
func NewLocal(accounts learner.AccountRepository, bus messaging.EventBus, log *logger.Logger) *Resolver {
	return &Resolver{
		accounts: accounts,
		bus:      bus,
		log:      log.With(logger.Component("resolver"), logger.Backend("local")),
		identity: learner.Guest(),
		epoch:    1,
	}
}

// NewRemote creates a resolver backed by a remote identity provider.
func NewRemote(provider learner.Provider, sessions learner.SessionStore, bus messaging.EventBus, log *logger.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		sessions: sessions,
		bus:      bus,
		log:      log.With(logger.Component("resolver"), logger.Backend("remote")),
		identity: learner.Guest(),
		epoch:    1,
	}
}

// Current returns the acting identity and its epoch.
func (r *Resolver) Current() (learner.Identity, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.identity, r.epoch
}

// Epoch returns the current identity epoch.
func (r *Resolver) Epoch() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.epoch
}

// CheckEpoch reports whether a result fetched under the given epoch is
// still current. Stale results must be discarded, never rendered.
func (r *Resolver) CheckEpoch(epoch uint64) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if epoch != r.epoch {
		return shared.NewDomainError(domain, "CheckEpoch", shared.ErrStaleIdentity,
			"identity changed while the operation was in flight")
	}
	return nil
}

// Token returns the active remote session token, empty for guests and
// local accounts.
func (r *Resolver) Token() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.token
}

// Resolve restores the acting identity at startup. On the local backend it
// follows the current-account pointer; a dangling or missing pointer means
// guest. On the remote backend startup is always guest until a session
// token is resumed.
func (r *Resolver) Resolve(ctx context.Context) (learner.Identity, error) {
	if r.accounts == nil {
		id, _ := r.Current()
		return id, nil
	}

	email, err := r.accounts.CurrentEmail(ctx)
	if err != nil {
		r.log.Warn("current-account pointer unreadable, falling back to guest", logger.Err(err))
		id, _ := r.Current()
		return id, nil
	}
	if email == "" {
		id, _ := r.Current()
		return id, nil
	}

	account, err := r.accounts.FindByEmail(ctx, email)
	if err != nil {
		r.log.Warn("current account missing from store, falling back to guest",
			logger.Email(email.String()), logger.Err(err))
		id, _ := r.Current()
		return id, nil
	}

	identity := learner.LocalIdentity(account)
	r.transition(identity, "", shared.EventSignedIn)
	id, _ := r.Current()
	return id, nil
}

// ResumeSession restores a remote identity from a session token, for
// clients reconnecting with a previously issued token.
func (r *Resolver) ResumeSession(ctx context.Context, token string) (learner.Identity, error) {
	if r.sessions == nil {
		return learner.Identity{}, shared.NewDomainError(domain, "ResumeSession",
			shared.ErrInvalidInput, "sessions are not available on this backend")
	}

	sess, err := r.sessions.Get(ctx, token)
	if err != nil {
		var zero learner.Identity
		return zero, err
	}

	identity := learner.RemoteIdentity(sess.UserID, sess.Email, sess.DisplayName)
	r.transition(identity, token, shared.EventSignedIn)
	id, _ := r.Current()
	return id, nil
}

// SignUp registers a new account and signs it in. Registering an email
// that already exists locally with the same password is treated as a plain
// sign-in; with a different password it fails.
func (r *Resolver) SignUp(ctx context.Context, in SignUpInput) (learner.Identity, error) {
	const op = "SignUp"
	var zero learner.Identity

	email, password, err := validateCredentials(op, in.Email, in.Password)
	if err != nil {
		return zero, err
	}
	if in.Confirm != in.Password {
		return zero, shared.NewDomainError(domain, op, shared.ErrConfirmMismatch,
			"passwords do not match")
	}

	if r.provider != nil {
		sess, err := r.provider.SignUp(ctx, email, password, strings.TrimSpace(in.DisplayName))
		if err != nil {
			return zero, err
		}
		identity := learner.RemoteIdentity(sess.UserID, sess.Email, sess.DisplayName)
		r.transition(identity, sess.Token, shared.EventAccountCreated)
		id, _ := r.Current()
		return id, nil
	}

	existing, err := r.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Password != password {
			return zero, shared.NewDomainError(domain, op, shared.ErrAccountExists,
				"an account with that email already exists")
		}
		// Same credentials again is a sign-in, not a conflict.
		return r.adoptLocal(ctx, existing, shared.EventSignedIn)
	case shared.IsNotFound(err):
		// fall through to create
	default:
		return zero, err
	}

	account := learner.Account{
		ID:          uuid.New().String(),
		Email:       email,
		Password:    password,
		DisplayName: strings.TrimSpace(in.DisplayName),
		CreatedAt:   time.Now().UTC(),
	}
	if err := account.Validate(); err != nil {
		return zero, err
	}
	if err := r.accounts.Create(ctx, account); err != nil {
		return zero, err
	}
	return r.adoptLocal(ctx, account, shared.EventAccountCreated)
}

// SignIn authenticates and makes the matched account the acting identity.
func (r *Resolver) SignIn(ctx context.Context, emailRaw, password string) (learner.Identity, error) {
	const op = "SignIn"
	var zero learner.Identity

	email, password, err := validateCredentials(op, emailRaw, password)
	if err != nil {
		return zero, err
	}

	if r.provider != nil {
		sess, err := r.provider.SignIn(ctx, email, password)
		if err != nil {
			return zero, err
		}
		identity := learner.RemoteIdentity(sess.UserID, sess.Email, sess.DisplayName)
		r.transition(identity, sess.Token, shared.EventSignedIn)
		id, _ := r.Current()
		return id, nil
	}

	account, err := r.accounts.FindByEmail(ctx, email)
	if err != nil {
		if shared.IsNotFound(err) {
			return zero, badCredentials(op)
		}
		return zero, err
	}
	if account.Password != password {
		return zero, badCredentials(op)
	}
	return r.adoptLocal(ctx, account, shared.EventSignedIn)
}

// SignOut returns to the guest identity. Signing out always succeeds;
// best-effort cleanup failures are logged, not surfaced.
func (r *Resolver) SignOut(ctx context.Context) learner.Identity {
	r.mu.RLock()
	token := r.token
	r.mu.RUnlock()

	if r.sessions != nil && token != "" {
		if err := r.sessions.Delete(ctx, token); err != nil {
			r.log.Warn("session cleanup failed on sign-out", logger.Err(err))
		}
	}
	if r.accounts != nil {
		if err := r.accounts.SetCurrentEmail(ctx, ""); err != nil {
			r.log.Warn("clearing current-account pointer failed on sign-out", logger.Err(err))
		}
	}

	r.transition(learner.Guest(), "", shared.EventSignedOut)
	id, _ := r.Current()
	return id
}

// adoptLocal makes a local account the acting identity and moves the
// current-account pointer to it.
func (r *Resolver) adoptLocal(ctx context.Context, account learner.Account, kind shared.EventType) (learner.Identity, error) {
	if err := r.accounts.SetCurrentEmail(ctx, account.Email.Normalize()); err != nil {
		var zero learner.Identity
		return zero, err
	}
	identity := learner.LocalIdentity(account)
	r.transition(identity, "", kind)
	id, _ := r.Current()
	return id, nil
}

// transition swaps the acting identity, bumps the epoch, and publishes the
// identity events.
func (r *Resolver) transition(next learner.Identity, token string, kind shared.EventType) {
	r.mu.Lock()
	previous := r.identity
	r.identity = next
	r.token = token
	r.epoch++
	epoch := r.epoch
	r.mu.Unlock()

	r.log.Info("identity changed",
		logger.UserID(next.UserID),
		logger.String("kind", string(next.Kind)),
		logger.String("previous_user_id", previous.UserID))

	if r.bus == nil {
		return
	}
	r.bus.Publish(shared.IdentityChangedEvent{
		BaseEvent:      shared.NewBaseEvent(shared.EventIdentityChanged, next.UserID),
		PreviousUserID: previous.UserID,
		Epoch:          epoch,
	})
	if kind != shared.EventIdentityChanged {
		r.bus.Publish(shared.BaseEvent{
			Type:      kind,
			Timestamp: time.Now().UTC(),
			UserID:    next.UserID,
		})
	}
}

// validateCredentials normalizes and checks the email and password fields
// shared by sign-up and sign-in.
func validateCredentials(op, emailRaw, password string) (shared.Email, string, error) {
	emailRaw = strings.TrimSpace(emailRaw)
	if emailRaw == "" {
		return "", "", shared.NewDomainError(domain, op, shared.ErrEmptyValue, "email is required")
	}
	if password == "" {
		return "", "", shared.NewDomainError(domain, op, shared.ErrEmptyValue, "password is required")
	}
	email, err := shared.NewEmail(emailRaw)
	if err != nil {
		return "", "", shared.NewDomainError(domain, op, shared.ErrInvalidFormat,
			"email address is not valid")
	}
	return email, password, nil
}
