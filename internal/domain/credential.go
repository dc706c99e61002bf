package domain

import "time"

// CredentialTTL is how long a brokerage access token is trusted after
// issuance. Upstox tokens expire daily; 20 hours leaves margin before the
// broker-side cutoff.
const CredentialTTL = 20 * time.Hour

// Credential is the single stored brokerage access credential.
type Credential struct {
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

// ValidAt reports whether the credential is still inside its validity window
// at the given instant. A stale credential is treated as absent; there is no
// explicit expiry deletion.
func (c Credential) ValidAt(now time.Time) bool {
	return c.Token != "" && now.Sub(c.IssuedAt) < CredentialTTL
}
