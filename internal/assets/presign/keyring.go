package presign

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

// KeyringService is the system keyring service ID tokens are stored under
const KeyringService = "anchor-sim"

// StoreIDToken checks raw and stores it in the system keyring for user
func StoreIDToken(user, raw string) error {
	raw = strings.TrimSpace(raw)
	if _, err := IDToken(raw); err != nil {
		return err
	}
	if err := keyring.Set(KeyringService, user, raw); err != nil {
		return fmt.Errorf("failed to store ID token: %w", err)
	}
	return nil
}

// DeleteIDToken removes the stored ID token of user. A missing token is not an error.
func DeleteIDToken(user string) error {
	if err := keyring.Delete(KeyringService, user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete ID token: %w", err)
	}
	return nil
}

type keyringTokenSource struct {
	user string
}

// NewKeyringTokenSource returns a token source for the ID token stored with StoreIDToken
func NewKeyringTokenSource(user string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &keyringTokenSource{user: user})
}

// Token reads the token from the keyring
func (s *keyringTokenSource) Token() (*oauth2.Token, error) {
	raw, err := keyring.Get(KeyringService, s.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("no ID token stored for %q, run 'anchor-sim assets login': %w", s.user, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ID token from keyring: %w", err)
	}
	return IDToken(raw)
}
