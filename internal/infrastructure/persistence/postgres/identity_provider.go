package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/studypath-hub/studypath-hub/internal/domain/learner"
	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
)

// IdentityProvider implements learner.Provider on the accounts table,
// issuing sessions through the injected session store. Sign-in failures
// collapse to a single bad-credentials reason: callers can never tell a
// wrong email from a wrong password.
type IdentityProvider struct {
	conn     *Connection
	sessions learner.SessionStore
}

// NewIdentityProvider creates a new IdentityProvider.
func NewIdentityProvider(conn *Connection, sessions learner.SessionStore) *IdentityProvider {
	return &IdentityProvider{conn: conn, sessions: sessions}
}

// SignUp registers a new account and opens a session.
func (p *IdentityProvider) SignUp(ctx context.Context, email shared.Email, password, displayName string) (learner.Session, error) {
	email = email.Normalize()
	if displayName == "" {
		displayName = email.String()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return learner.Session{}, shared.WrapError("learner", "SignUp", shared.ErrProviderRejected,
			"could not hash password", err)
	}

	var userID string
	err = p.conn.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, display_name, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, email.String(), string(hash), displayName, time.Now().UTC()).Scan(&userID)
	if err != nil {
		if IsUniqueViolation(err) {
			return learner.Session{}, shared.NewDomainError("learner", "SignUp", shared.ErrAccountExists,
				"an account with that email already exists")
		}
		return learner.Session{}, shared.WrapError("learner", "SignUp", shared.ErrProviderRejected,
			"account creation failed", err)
	}

	return p.openSession(ctx, userID, email, displayName)
}

// SignIn authenticates and opens a session.
func (p *IdentityProvider) SignIn(ctx context.Context, email shared.Email, password string) (learner.Session, error) {
	email = email.Normalize()

	var userID, hash, displayName string
	err := p.conn.QueryRow(ctx, `
		SELECT id, password_hash, display_name
		FROM accounts WHERE LOWER(email) = $1
	`, email.String()).Scan(&userID, &hash, &displayName)
	if errors.Is(err, ErrNoRows) {
		return learner.Session{}, badCredentials()
	}
	if err != nil {
		return learner.Session{}, shared.WrapError("learner", "SignIn", shared.ErrProviderRejected,
			"sign-in failed", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return learner.Session{}, badCredentials()
	}

	return p.openSession(ctx, userID, email, displayName)
}

func (p *IdentityProvider) openSession(ctx context.Context, userID string, email shared.Email, displayName string) (learner.Session, error) {
	s := learner.Session{
		Token:       uuid.New().String(),
		UserID:      userID,
		Email:       email,
		DisplayName: displayName,
	}
	if err := p.sessions.Put(ctx, s); err != nil {
		return learner.Session{}, shared.WrapError("learner", "SignIn", shared.ErrProviderRejected,
			"could not open session", err)
	}
	return s, nil
}

func badCredentials() error {
	return shared.NewDomainError("learner", "SignIn", shared.ErrInvalidCredentials,
		"could not find that account or password is incorrect")
}
