package models

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// UserCode is the short public identifier shown to other members
	// (e.g. on profiles and in search results).
	UserCode string

	// Email is the user's email address (unique). Used for login.
	Email string

	// FullName is the display name shown to group members.
	FullName string

	// Phone is an optional contact number.
	Phone string

	// PasswordHash is the bcrypt hash of the user's password. Never
	// serialized to clients.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// Profile is the public slice of a user visible to other members.
type Profile struct {
	UserID   string `json:"user_id"`
	UserCode string `json:"user_code"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
}

// Profile returns the public view of the user.
func (u *User) Profile() Profile {
	return Profile{
		UserID:   u.ID,
		UserCode: u.UserCode,
		FullName: u.FullName,
		Phone:    u.Phone,
	}
}
