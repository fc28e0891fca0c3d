package auth

import (
	"github.com/google/uuid"
)

// NewUserFromRequest builds a new local user from req. A fresh id is
// assigned when req carries none. Users created without a password get a
// random hash and cannot log in until one is set.
func NewUserFromRequest(req *UserRequest) (*User, error) {
	user := &User{}
	if id := req.UserID(); id != nil {
		user.ID = *id
	} else {
		user.ID = uuid.New()
	}

	if err := user.UpdateFrom(req); err != nil {
		return nil, err
	}

	if user.Enabled == nil {
		user.Enabled = Bool(true)
	}

	if user.PasswordHash == "" {
		user.PasswordHash = RandomPasswordHash()
	}

	return user, nil
}

// UpdateFrom copies the fields this service owns from req onto u. The id
// is never touched, a blank password keeps the current hash.
func (u *User) UpdateFrom(req *UserRequest) error {
	u.Username = req.Username
	u.Email = req.GetEmail()

	if req.Enabled != nil {
		u.Enabled = Bool(*req.Enabled)
	}

	if req.Password != "" {
		hash, err := HashPassword(req.Password)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}

	return nil
}

// Export returns the external representation of u
func (u *User) Export() *UserRequest {
	id := u.ID
	out := &UserRequest{
		ID:       &id,
		Username: u.Username,
	}

	if u.Email != "" {
		out.Email = String(u.Email)
	}

	if u.Enabled != nil {
		out.Enabled = Bool(*u.Enabled)
	}

	return out
}
