// Package learner contains domain entities and business logic for
// accounts and the acting identity that scopes all persisted progress.
// This is a pure domain layer with zero external dependencies.
package learner

import (
	"time"

	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
)

// IdentityKind classifies how the acting user was resolved.
type IdentityKind string

const (
	// KindGuest means no account is active; progress stays on the device
	// under the guest namespace.
	KindGuest IdentityKind = "guest"

	// KindLocal means a device-local account (demo-grade credential list).
	KindLocal IdentityKind = "local"

	// KindRemote means a remote, session-backed account.
	KindRemote IdentityKind = "remote"
)

// Identity is the resolved acting user. Exactly one Identity is active at a
// time; it determines the storage scope for every progress operation.
type Identity struct {
	Kind IdentityKind

	// UserID is the storage namespace: shared.GuestUserID for guests, the
	// normalized email for local accounts, the account id for remote ones.
	UserID string

	// Email is empty for guests.
	Email shared.Email

	// DisplayName falls back to the email; "Guest" for guests.
	DisplayName string
}

// Guest returns the guest identity.
func Guest() Identity {
	return Identity{
		Kind:        KindGuest,
		UserID:      shared.GuestUserID,
		DisplayName: "Guest",
	}
}

// IsGuest reports whether no account is active.
func (i Identity) IsGuest() bool {
	return i.Kind == KindGuest
}

// Badge returns the name to render for this identity.
func (i Identity) Badge() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	if i.Email != "" {
		return i.Email.String()
	}
	return "Guest"
}

// Account is a stored credential record. Local-backend accounts keep the
// password in clear text: this is an explicitly demo-grade store, matching
// the on-device account list it replaces. Remote accounts carry a bcrypt
// hash instead and never populate Password.
type Account struct {
	ID          string
	Email       shared.Email
	Password    string // plaintext, local backend only
	DisplayName string
	CreatedAt   time.Time
}

// Validate checks the account invariants.
func (a Account) Validate() error {
	if a.Email == "" {
		return shared.NewDomainError("learner", "Validate", shared.ErrEmptyValue, "email is required")
	}
	if a.Password == "" {
		return shared.NewDomainError("learner", "Validate", shared.ErrEmptyValue, "password is required")
	}
	return nil
}

// LocalIdentity builds the identity for a local account. The storage scope
// is the normalized email, mirroring the per-user key suffix of the
// on-device store.
func LocalIdentity(a Account) Identity {
	email := a.Email.Normalize()
	name := a.DisplayName
	if name == "" {
		name = email.String()
	}
	return Identity{
		Kind:        KindLocal,
		UserID:      email.String(),
		Email:       email,
		DisplayName: name,
	}
}

// RemoteIdentity builds the identity for a remote account, scoped by the
// account's stable id rather than its email.
func RemoteIdentity(userID string, email shared.Email, displayName string) Identity {
	if displayName == "" {
		displayName = email.String()
	}
	return Identity{
		Kind:        KindRemote,
		UserID:      userID,
		Email:       email.Normalize(),
		DisplayName: displayName,
	}
}
