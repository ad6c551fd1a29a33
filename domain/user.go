package domain

// Roles recognized by the access guard. Admin may do everything, manager
// everything except user and backup administration, operator only the PDV.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleOperator = "operator"
)

// ValidRole reports whether role is one of the three fixed roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleManager || role == RoleOperator
}

type User struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"`
	FullName     string `db:"full_name" json:"full_name"`
	Role         string `db:"role" json:"role"`
	IsActive     bool   `db:"is_active" json:"is_active"`
	CreatedAt    string `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt    string `db:"updated_at" json:"updated_at,omitempty"`
}
