package localstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/studypath-hub/studypath-hub/internal/domain/learner"
	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
)

// AccountStore implements learner.AccountRepository on the file store.
// Passwords are stored in clear text: this list is an explicitly
// demo-grade, single-machine credential store.
type AccountStore struct {
	store *Store
}

// NewAccountStore wraps the file store with the account contract.
func NewAccountStore(store *Store) *AccountStore {
	return &AccountStore{store: store}
}

type accountDoc struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Password    string    `json:"password"`
	DisplayName string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *AccountStore) readAll() ([]accountDoc, error) {
	var docs []accountDoc
	err := a.store.withLock(func() error {
		_, err := a.store.read(keyAccounts, &docs)
		return err
	})
	return docs, err
}

// Create appends a new account to the list.
func (a *AccountStore) Create(_ context.Context, account learner.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	email := account.Email.Normalize()

	return a.store.withLock(func() error {
		var docs []accountDoc
		if _, err := a.store.read(keyAccounts, &docs); err != nil {
			return err
		}
		for _, d := range docs {
			if shared.Email(d.Email).Normalize() == email {
				return shared.NewDomainError("learner", "Create", shared.ErrAccountExists,
					"an account with that email already exists")
			}
		}
		docs = append(docs, accountDoc{
			ID:          account.ID,
			Email:       email.String(),
			Password:    account.Password,
			DisplayName: account.DisplayName,
			CreatedAt:   account.CreatedAt,
		})
		return a.store.write(keyAccounts, docs)
	})
}

// FindByEmail returns the account matching the email case-insensitively.
func (a *AccountStore) FindByEmail(_ context.Context, email shared.Email) (learner.Account, error) {
	docs, err := a.readAll()
	if err != nil {
		return learner.Account{}, err
	}

	want := email.Normalize()
	for _, d := range docs {
		if shared.Email(d.Email).Normalize() == want {
			return toAccount(d), nil
		}
	}
	return learner.Account{}, shared.NewDomainError("learner", "FindByEmail", shared.ErrNotFound,
		"no account for that email")
}

// List returns every stored account.
func (a *AccountStore) List(ctx context.Context) ([]learner.Account, error) {
	docs, err := a.readAll()
	if err != nil {
		return nil, err
	}
	accounts := make([]learner.Account, 0, len(docs))
	for _, d := range docs {
		accounts = append(accounts, toAccount(d))
	}
	return accounts, nil
}

// CurrentEmail returns the current-account pointer. A pointer naming an
// email with no matching account is treated as absent: the guest state.
func (a *AccountStore) CurrentEmail(_ context.Context) (shared.Email, error) {
	var current string
	var docs []accountDoc
	err := a.store.withLock(func() error {
		if _, err := a.store.read(keyCurrentAccount, &current); err != nil {
			return err
		}
		_, err := a.store.read(keyAccounts, &docs)
		return err
	})
	if err != nil {
		return "", err
	}
	if current == "" {
		return "", nil
	}

	want := shared.Email(current).Normalize()
	for _, d := range docs {
		if shared.Email(d.Email).Normalize() == want {
			return want, nil
		}
	}
	return "", nil
}

// SetCurrentEmail moves the pointer; empty clears it.
func (a *AccountStore) SetCurrentEmail(_ context.Context, email shared.Email) error {
	return a.store.withLock(func() error {
		if email == "" {
			return a.store.remove(keyCurrentAccount)
		}
		return a.store.write(keyCurrentAccount, email.Normalize().String())
	})
}

func toAccount(d accountDoc) learner.Account {
	return learner.Account{
		ID:          d.ID,
		Email:       shared.Email(d.Email),
		Password:    d.Password,
		DisplayName: d.DisplayName,
		CreatedAt:   d.CreatedAt,
	}
}
