// internal/domain/user/entity.go
package user

import (
	"database/sql"
	"time"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleEngineer   Role = "engineer"
	RoleSupervisor Role = "supervisor"
	RoleManagement Role = "management"
)

type User struct {
	ID           int64          `json:"id" db:"id"`
	Username     string         `json:"username" db:"username"`
	PasswordHash string         `json:"-" db:"password_hash"`
	FullName     sql.NullString `json:"full_name,omitempty" db:"full_name"`
	Role         Role           `json:"role" db:"role"`
	Permissions  []string       `json:"permissions" db:"permissions"`
	Active       bool           `json:"active" db:"active"`
	LastLogin    sql.NullTime   `json:"last_login,omitempty" db:"last_login"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}
