package model

import "time"

// Credential schemes.
const (
	SchemeSHA256 = "sha256"
	SchemeBcrypt = "bcrypt"
)

// Credential is the single admin identity. Salt and Digest are replaced
// together on every rotation; nothing of a previous credential is kept.
//
// Fields:
//
//	Username  – exact-match login name.
//	Salt      – hex salt (24 chars); empty for bcrypt, which embeds its own.
//	Digest    – hex SHA-256 of salt||password, or the bcrypt hash.
//	Scheme    – SchemeSHA256 (default when empty) or SchemeBcrypt.
//	RotatedAt – when this credential was written.
type Credential struct {
	Username  string    `json:"username"`
	Salt      string    `json:"salt"`
	Digest    string    `json:"digest"`
	Scheme    string    `json:"scheme,omitempty"`
	RotatedAt time.Time `json:"rotatedAt"`
}

// Session marks a successful login in one browsing context. It is never
// written to the catalog or credential records.
type Session struct {
	User      string    `json:"user"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
