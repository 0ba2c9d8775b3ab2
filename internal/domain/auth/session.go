package auth

import (
	"context"
	"time"
)

// Session 對應一顆 refresh token 的生命週期。Token 為 token 內嵌的
// 亂數 ID（非 JWT 本體），撤銷後即使尚未過期也不可再換發。
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent string
	IPAddress string
	CreatedAt time.Time
}

// Active 檢查 session 是否仍可用於換發 access token。
func (s Session) Active(now time.Time) bool {
	if !s.ExpiresAt.After(now) {
		return false
	}
	return !s.Revoked()
}

// Revoked 檢查是否已被撤銷。
func (s Session) Revoked() bool {
	return s.RevokedAt != nil && !s.RevokedAt.IsZero()
}

// Remaining 回傳距離到期的剩餘時間，已過期回傳 0。
func (s Session) Remaining(now time.Time) time.Duration {
	if d := s.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// SessionStore 提供 refresh token 儲存/查詢/撤銷。
type SessionStore interface {
	SaveSession(ctx context.Context, sess Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string) error
}

// TokenMeta 記錄簽發當下的來源環境，寫入 session 供稽核。
type TokenMeta struct {
	UserAgent string
	IP        string
}
