package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Willizberc/Pexfin/internal/session"
)

const issuer = "pexfin"

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(u *User) (string, session.Session, error) {
	now := t.now()
	s := session.Session{
		UserID:    u.ID,
		Email:     u.Email,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(t.ttl).Truncate(time.Second),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID.String(),
			ID:        s.TokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", session.Session{}, fmt.Errorf("signing token: %w", err)
	}

	return signed, s, nil
}

// Parse verifies signature, issuer and expiry. It does not consult the
// revocation list.
func (t *Tokens) Parse(raw string) (session.Session, error) {
	var c claims

	_, err := jwt.ParseWithClaims(raw, &c,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: bad subject", ErrUnauthenticated)
	}

	return session.Session{
		UserID:    userID,
		Email:     c.Email,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
