package domain

import "time"

// TokenKeyLength is the length of a credential token key in hex characters.
const TokenKeyLength = 40

// Token is the opaque credential issued to an account at login or
// registration. An account owns at most one token at a time.
type Token struct {
	Key       string
	AccountID string
	CreatedAt time.Time
}
