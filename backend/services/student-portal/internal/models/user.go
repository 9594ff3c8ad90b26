package models

// Roles known to the billing API.
const (
	RoleStudent    = "student"
	RoleSuperadmin = "superadmin"
)

// User is the authenticated identity returned by the billing API.
type User struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	NIM   string `json:"nim,omitempty"`
}

// DisplayName falls back to the email when the API sent no name.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Session binds a user to the bearer token used for API calls.
type Session struct {
	User  User
	Token string
}

// IsAdmin reports whether the session may use the management screens.
func (s Session) IsAdmin() bool {
	return s.User.Role == RoleSuperadmin
}
