package auth

// AuthContext is the per-request authentication state derived from the two
// session cookies. It is computed once per request, never persisted, and
// carries only the cookie's claim - the access gate re-confirms the user
// still exists before trusting it.
type AuthContext struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id"`

	// TokenVersion is the revocation counter the token was issued with.
	// Only meaningful when Authenticated is true.
	TokenVersion int `json:"-"`
}

// Anonymous is the context for a request with no valid session cookies.
func Anonymous() AuthContext {
	return AuthContext{}
}
