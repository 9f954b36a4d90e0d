package domain

import "time"

// Credential is the opaque token obtained by logging in, plus the username that
// obtained it. The client never looks inside Token.
type Credential struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// IsZero reports whether the credential carries no token.
func (c Credential) IsZero() bool {
	return c.Token == ""
}

// StoredCredential is the persisted form of a Credential, one row per session key.
type StoredCredential struct {
	SessionKey string    `gorm:"type:text;primaryKey" json:"session_key"`
	Token      string    `gorm:"type:text;not null" json:"-"`
	Username   string    `gorm:"type:text" json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for StoredCredential.
func (StoredCredential) TableName() string {
	return "credentials"
}

// Credential converts the row back to its domain form.
func (s StoredCredential) Credential() Credential {
	return Credential{Token: s.Token, Username: s.Username}
}
