package presign

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// ErrEmptyToken is returned when the token file holds no token
var ErrEmptyToken = errors.New("ID token is empty")

// fileTokenSource reads an ID token from a file on every call
type fileTokenSource struct {
	path string
}

// NewFileTokenSource returns a token source for the ID token stored at path.
// The token is re-read once it expires, so an external process can refresh the file.
func NewFileTokenSource(path string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &fileTokenSource{path: path})
}

// Token reads the token file
func (s *fileTokenSource) Token() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ID token file: %w", err)
	}
	return IDToken(strings.TrimSpace(string(data)))
}

// IDToken wraps a raw ID token. The expiry is taken from the exp claim
// without verifying the signature; the API gateway verifies it.
func IDToken(raw string) (*oauth2.Token, error) {
	if raw == "" {
		return nil, ErrEmptyToken
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to parse ID token: %w", err)
	}

	token := &oauth2.Token{AccessToken: raw, TokenType: "JWT"}
	if claims.ExpiresAt != nil {
		token.Expiry = claims.ExpiresAt.Time
	}
	if !token.Expiry.IsZero() && token.Expiry.Before(time.Now()) {
		return nil, fmt.Errorf("ID token expired at %s", token.Expiry.Format(time.RFC3339))
	}
	return token, nil
}

// StaticIDTokenSource returns a token source that always yields raw
func StaticIDTokenSource(raw string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: raw, TokenType: "JWT"})
}
