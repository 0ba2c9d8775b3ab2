package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"stock-radar/internal/domain/auth"
)

// UserRepository 存取使用者。
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (auth.User, error)
	FindByID(ctx context.Context, id string) (auth.User, error)
}

// PasswordHasher 驗證密碼。
type PasswordHasher interface {
	Compare(hashed, plain string) bool
}

// TokenIssuer 簽發/驗證 token。
type TokenIssuer interface {
	Issue(ctx context.Context, user auth.User) (auth.TokenPair, error)
	RevokeRefresh(ctx context.Context, token string) error
}

// Permission 表示功能權限，命名採 <資源>.<動作> 格式。
type Permission string

const (
	// 帳號與系統管理
	PermUserManage   Permission = "users.manage"
	PermSystemHealth Permission = "system.health"
	PermInternalOps  Permission = "internal.ops"

	// 資料攝入與每日批次
	PermIngestionTrigger Permission = "ingestion.trigger"
	PermAnalysisTrigger  Permission = "analysis.trigger"
	PermChipTrigger      Permission = "chip.trigger"

	// 查詢與選股
	PermAnalysisQuery Permission = "analysis.query"
	PermScreenerUse   Permission = "screener.use"
	PermScanRun       Permission = "scan.run"
	PermReportsView   Permission = "reports.view"

	// 個人化功能
	PermWatchlistWrite    Permission = "watchlist.write"
	PermSubscriptionWrite Permission = "subscriptions.write"
)

// RolePermissions 定義各角色的權限表。
// service 角色給排程器與內部服務使用，只能觸發批次與健康檢查。
var RolePermissions = map[auth.Role][]Permission{
	auth.RoleAdmin: {
		PermUserManage,
		PermSystemHealth,
		PermInternalOps,
		PermIngestionTrigger,
		PermAnalysisTrigger,
		PermChipTrigger,
		PermAnalysisQuery,
		PermScreenerUse,
		PermScanRun,
		PermReportsView,
		PermWatchlistWrite,
		PermSubscriptionWrite,
	},
	auth.RoleAnalyst: {
		PermSystemHealth,
		PermIngestionTrigger,
		PermAnalysisTrigger,
		PermChipTrigger,
		PermAnalysisQuery,
		PermScreenerUse,
		PermScanRun,
		PermReportsView,
		PermWatchlistWrite,
		PermSubscriptionWrite,
	},
	auth.RoleUser: {
		PermAnalysisQuery,
		PermScreenerUse,
		PermScanRun,
		PermReportsView,
		PermWatchlistWrite,
		PermSubscriptionWrite,
	},
	auth.RoleService: {
		PermInternalOps,
		PermSystemHealth,
		PermIngestionTrigger,
		PermAnalysisTrigger,
		PermChipTrigger,
	},
}

// ResourceOwnerChecker 用於判斷資源是否屬於當前使用者。
type ResourceOwnerChecker interface {
	IsOwner(ctx context.Context, userID, resourceID string) bool
}

// AuthorizeInput 定義授權需求。
type AuthorizeInput struct {
	UserID     string
	Required   []Permission
	ResourceID string // 若需要判斷 owner
	OwnerPerm  Permission
}

// AuthorizeResult 回傳授權結果。
type AuthorizeResult struct {
	Allowed bool
	Reason  string
}

// LoginUseCase 驗證帳密並簽發 token。
type LoginUseCase struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	now    func() time.Time
}

func NewLoginUseCase(users UserRepository, hasher PasswordHasher, tokens TokenIssuer) *LoginUseCase {
	return &LoginUseCase{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	User  auth.User
	Token auth.TokenPair
}

func (uc *LoginUseCase) Execute(ctx context.Context, input LoginInput) (LoginResult, error) {
	var out LoginResult
	email := auth.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return out, errors.New("email and password required")
	}

	user, err := uc.users.FindByEmail(ctx, email)
	if err != nil {
		return out, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive() {
		return out, errors.New("user disabled or locked")
	}
	if !uc.hasher.Compare(user.PasswordHash, input.Password) {
		return out, errors.New("invalid credentials")
	}

	token, err := uc.tokens.Issue(ctx, user)
	if err != nil {
		return out, fmt.Errorf("issue token: %w", err)
	}

	out.User = user
	out.Token = token
	return out, nil
}

// LogoutUseCase 處理 refresh token 作廢。
type LogoutUseCase struct {
	tokens TokenIssuer
}

func NewLogoutUseCase(tokens TokenIssuer) *LogoutUseCase {
	return &LogoutUseCase{tokens: tokens}
}

func (uc *LogoutUseCase) Execute(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return errors.New("refresh token required")
	}
	return uc.tokens.RevokeRefresh(ctx, refreshToken)
}

// Authorizer 檢查角色/權限。
type Authorizer struct {
	users UserRepository
	owner ResourceOwnerChecker
}

func NewAuthorizer(users UserRepository, owner ResourceOwnerChecker) *Authorizer {
	return &Authorizer{users: users, owner: owner}
}

func (a *Authorizer) HasPermission(role auth.Role, perm Permission) bool {
	return lo.Contains(RolePermissions[role], perm)
}

// Authorize 檢查使用者是否具備所需權限，並視情況檢查 owner。
func (a *Authorizer) Authorize(ctx context.Context, input AuthorizeInput) (AuthorizeResult, error) {
	user, err := a.users.FindByID(ctx, input.UserID)
	if err != nil {
		return AuthorizeResult{Allowed: false, Reason: "user not found"}, err
	}
	if !user.IsActive() {
		return AuthorizeResult{Allowed: false, Reason: "user disabled"}, nil
	}

	for _, perm := range input.Required {
		if a.HasPermission(user.Role, perm) {
			continue
		}
		// 若指定 owner 權限檢查且資源為本人
		if input.OwnerPerm != "" && input.ResourceID != "" && a.owner != nil {
			if a.owner.IsOwner(ctx, user.ID, input.ResourceID) && perm == input.OwnerPerm {
				continue
			}
		}
		return AuthorizeResult{Allowed: false, Reason: fmt.Sprintf("missing permission %s", perm)}, nil
	}

	return AuthorizeResult{Allowed: true}, nil
}
