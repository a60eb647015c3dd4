package entity

import "time"

// User roles. A user carries exactly one role; admin passes every
// role check.
const (
	RoleAdmin      = "admin"
	RoleTechnical  = "technical"
	RoleAccounting = "accounting"
)

// IsValidRole reports whether role is one of the declared roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleTechnical, RoleAccounting:
		return true
	}
	return false
}

// User is an application account.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	Username     string    `json:"username" gorm:"size:64;not null;uniqueIndex"`
	Name         string    `json:"name" gorm:"size:64;not null"`
	Email        string    `json:"email" gorm:"size:128;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:128;not null"`
	Role         string    `json:"role" gorm:"size:16;not null;default:technical"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
