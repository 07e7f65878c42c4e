package auth

// Identity describes the requester resolved from a session token.
// The zero value is the anonymous requester: it owns nothing, belongs to
// no team, and can only see public records.
type Identity struct {
	UserID int64
	TeamID *int64
}

// Anonymous returns the sentinel identity for unauthenticated requests.
func Anonymous() Identity {
	return Identity{}
}

// IsAnonymous reports whether the identity belongs to no signed-in user.
func (i Identity) IsAnonymous() bool {
	return i.UserID == 0
}
