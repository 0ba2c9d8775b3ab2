package httpapi

import (
	"context"

	"stock-radar/internal/application/auth"
	authDomain "stock-radar/internal/domain/auth"
	"stock-radar/internal/infrastructure/persistence/postgres"
)

// seedAuth 確保預設角色、帳號與權限存在於資料庫。
func seedAuth(ctx context.Context, repo *postgres.AuthRepo) error {
	if err := repo.SeedDefaults(ctx); err != nil {
		return err
	}

	seen := map[string]bool{}
	var perms []string
	rolePerms := map[authDomain.Role][]string{}
	for role, list := range auth.RolePermissions {
		names := make([]string, 0, len(list))
		for _, p := range list {
			name := string(p)
			names = append(names, name)
			if !seen[name] {
				seen[name] = true
				perms = append(perms, name)
			}
		}
		rolePerms[role] = names
	}
	return repo.SeedPermissions(ctx, perms, rolePerms)
}
