package ws

import "regexp"

// userIDRegex matches the IDs the stores hand out: ObjectID hex and UUIDs
var userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// IsValidUserID validates a recipient ID before it reaches the store
func IsValidUserID(id string) bool {
	if id == "" {
		return false
	}
	return userIDRegex.MatchString(id)
}
