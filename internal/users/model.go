package users

import "time"

// Role is a user's authorization level. Stored on the user record and only
// ever changed through an explicit administrative path, never from identity
// provider claims.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAgent  Role = "agent"
	RoleAdmin  Role = "admin"
)

// DefaultRole is assigned to users on first login.
const DefaultRole = RoleBuyer

// ParseRole returns the Role for the given string, if it is one of the
// fixed enumeration.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleBuyer, RoleSeller, RoleAgent, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// User is the durable identity record. The primary key is the identity
// provider's subject claim.
type User struct {
	ID              string    `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	FirstName       string    `db:"first_name" json:"firstName"`
	LastName        string    `db:"last_name" json:"lastName"`
	ProfileImageURL string    `db:"profile_image_url" json:"profileImageUrl"`
	Phone           string    `db:"phone" json:"phone"`
	Bio             string    `db:"bio" json:"bio"`
	Role            Role      `db:"role" json:"role"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}
