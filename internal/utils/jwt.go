package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidToken is returned by ParseSessionToken for any token that
// fails signature, algorithm or expiry checks.
var ErrInvalidToken = errors.New("invalid session token")

// SessionToken is a signed HS256 JWT identifying one login together
// with its claims.
type SessionToken struct {
	Token    string    // the serialized JWT string
	Subject  string    // the admin username
	ID       string    // random jti; distinguishes logins by the same user
	IssuedAt time.Time // UTC issue time
	Exp      time.Time // UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT for a login. The token
// carries the username as subject, a random jti and the standard
// issued-at and expiry claims.
func NewSessionToken(secret []byte, user string, now time.Time, ttl time.Duration) (SessionToken, error) {
	jti, err := randomHex(16)
	if err != nil {
		return SessionToken{}, err
	}
	iat := now.UTC().Truncate(time.Second)
	exp := iat.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   user,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secret)
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Subject: user, ID: jti, IssuedAt: iat, Exp: exp}, nil
}

// ParseSessionToken verifies raw against secret and returns its claims.
// now is the reference time for the expiry check.
func ParseSessionToken(secret []byte, raw string, now time.Time) (SessionToken, error) {
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		// Reject anything but HMAC; an "alg: none" token must never verify.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return SessionToken{}, ErrInvalidToken
	}
	st := SessionToken{Token: raw, Subject: claims.Subject, ID: claims.ID}
	if claims.IssuedAt != nil {
		st.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		st.Exp = claims.ExpiresAt.Time.UTC()
	}
	if st.Subject == "" || st.ID == "" {
		return SessionToken{}, ErrInvalidToken
	}
	return st, nil
}
