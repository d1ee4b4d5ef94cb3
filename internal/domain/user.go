package domain

// Identity is the authenticated {userId, username} pair attached to a connection
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// IsZero reports whether no identity has been attached
func (i Identity) IsZero() bool {
	return i.UserID == ""
}

// User is a registered account
type User struct {
	ID           string `json:"_id" bson:"_id,omitempty"`
	Username     string `json:"username" bson:"username"`
	PasswordHash string `json:"-" bson:"password"`
}

// Identity returns the token identity of the user
func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}
