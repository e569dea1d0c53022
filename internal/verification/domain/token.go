package domain

import "time"

// VerificationToken maps an opaque token to the account it verifies. It
// resolves until it is consumed or IssuedAt+TTL has passed.
type VerificationToken struct {
	Token    string
	Username string
	IssuedAt time.Time
	TTL      time.Duration
}

func (t VerificationToken) ExpiresAt() time.Time {
	return t.IssuedAt.Add(t.TTL)
}
