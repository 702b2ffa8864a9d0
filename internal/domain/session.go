package domain

import "time"

// Session pairs a signed bearer token with the user it identifies.
// Sessions are stateless; nothing is persisted server-side and the token
// stops being honored once ExpiresAt passes or the signing key changes.
type Session struct {
	User      UserSummary
	Token     string
	ExpiresAt time.Time
}
