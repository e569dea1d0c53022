package domain

import "time"

// Account is the durable user record. Username is the unique key and never
// changes after creation.
type Account struct {
	Username     string    `bson:"username"`
	Email        string    `bson:"email,omitempty"`
	DisplayName  string    `bson:"display_name,omitempty"`
	PasswordHash string    `bson:"password_hash,omitempty"`
	CreationID   string    `bson:"creation_id,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

// Pending reports whether the account has not completed signup yet.
func (a Account) Pending() bool {
	return a.PasswordHash == ""
}
