package learner

import (
	"context"

	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
)

// AccountRepository defines persistence for the account list and the
// current-account pointer of the local backend. The infrastructure layer
// implements it; the domain has no knowledge of the storage mechanism.
type AccountRepository interface {
	// Create appends a new account. Returns shared.ErrAccountExists if the
	// email (case-insensitive) is already registered.
	Create(ctx context.Context, account Account) error

	// FindByEmail returns the account matching the email case-insensitively,
	// shared.ErrNotFound if absent.
	FindByEmail(ctx context.Context, email shared.Email) (Account, error)

	// List returns every stored account.
	List(ctx context.Context) ([]Account, error)

	// CurrentEmail returns the current-account pointer, or "" when no valid
	// pointer is set (the guest state).
	CurrentEmail(ctx context.Context) (shared.Email, error)

	// SetCurrentEmail moves the current-account pointer; empty clears it.
	SetCurrentEmail(ctx context.Context, email shared.Email) error
}

// Session is an authenticated remote session.
type Session struct {
	Token       string
	UserID      string
	Email       shared.Email
	DisplayName string
}

// SessionStore defines the remote session state. Sessions expire on their
// own; sign-out deletes them eagerly.
type SessionStore interface {
	// Put stores a session under its token.
	Put(ctx context.Context, s Session) error

	// Get resolves a token, shared.ErrNotFound if unknown or expired.
	Get(ctx context.Context, token string) (Session, error)

	// Delete invalidates a token. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error
}

// Provider is the identity-provider exchange used by the remote backend.
// Failures surface the provider's own reason wrapped in
// shared.ErrProviderRejected.
type Provider interface {
	// SignUp registers a new remote account and opens a session.
	SignUp(ctx context.Context, email shared.Email, password, displayName string) (Session, error)

	// SignIn authenticates and opens a session.
	SignIn(ctx context.Context, email shared.Email, password string) (Session, error)
}
