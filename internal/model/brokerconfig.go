package model

import "time"

// BrokerConfig represents per-account broker access configuration.
// The access token is stored fernet-encrypted at rest; Token in this struct
// is always the plaintext form (decrypted on read, encrypted on write).
type BrokerConfig struct {
	Configured     bool       `json:"configured"`
	AccountID      string     `json:"accountId"`
	Enabled        bool       `json:"enabled"`
	Token          string     `json:"token,omitempty"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
	TokenWarning   string     `json:"tokenWarning,omitempty"`
	UpdatedAt      time.Time  `json:"updatedAt,omitempty"`
}
