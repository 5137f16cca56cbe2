package refresh

import "time"

// StoredRefreshToken is the server-side record behind an opaque refresh token.
// The client only ever sees Token; the record is keyed by it in the store.
type StoredRefreshToken struct {
	Token    string    `json:"-"`
	ClientID string    `json:"client_id"`
	Scope    string    `json:"scope,omitempty"`
	Iat      time.Time `json:"iat"`
}
