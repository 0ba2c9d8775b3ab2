package auth

import (
	"errors"
	"strings"
)

// Role 為篩選服務的四種角色：系統管理者、分析師、一般使用者，
// 以及排程器等機器帳號使用的 service。
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleAnalyst Role = "analyst"
	RoleUser    Role = "user"
	RoleService Role = "service"
)

// Status 定義帳號狀態。
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
	StatusLocked   Status = "locked"
)

// User 基本帳號資料。
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	Status       Status
	PasswordHash string
}

// NormalizeEmail 統一為小寫去空白，登入與儲存都以此格式比對。
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// Validate 基本欄位檢查。
func (u User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("email is malformed")
	}
	switch u.Role {
	case RoleAdmin, RoleAnalyst, RoleUser, RoleService:
	default:
		return errors.New("unknown role")
	}
	if u.Status == "" {
		return errors.New("status is required")
	}
	return nil
}

// IsActive 檢查是否可登入。
func (u User) IsActive() bool {
	return u.Status == StatusActive
}
