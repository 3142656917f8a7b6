package types

import (
	"encoding/json"
	"strings"
)

// User is the profile the storefront API returns for an authenticated session.
type User struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

// HasProfileShape reports whether the value looks like a real profile: a
// non-empty email is the only field the client relies on.
func (u *User) HasProfileShape() bool {
	return u != nil && strings.TrimSpace(u.Email) != ""
}

// IsAdmin reports whether the profile carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && strings.EqualFold(u.Role, "admin")
}

// UnmarshalJSON accepts both `id` and `_id`.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var raw struct {
		alias
		MongoID ID `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw.alias)
	if u.ID.Empty() {
		u.ID = raw.MongoID
	}
	return nil
}
