package request

type CreateAccountRequest struct {
	Name     string `json:"name"`
	Broker   string `json:"broker"`
	Currency string `json:"currency"`
}

type BrokerConfigRequest struct {
	Enabled        bool   `json:"enabled"`
	Token          string `json:"token,omitempty"`
	TokenExpiresAt string `json:"tokenExpiresAt,omitempty"`
}
