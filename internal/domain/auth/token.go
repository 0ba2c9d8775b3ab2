package auth

import "time"

// TokenPair 為一次簽發的 access/refresh token 組合。access token 供
// API 請求帶在 Authorization 標頭，refresh token 走 HTTP-only cookie。
type TokenPair struct {
	AccessToken   string
	RefreshToken  string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

// AccessValid 檢查 access token 是否仍在效期內。
func (p TokenPair) AccessValid(now time.Time) bool {
	return p.AccessToken != "" && p.AccessExpiry.After(now)
}
