package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"stock-radar/internal/application/analysis"
	alertDomain "stock-radar/internal/domain/alert"
)

// SubscriptionRepo 儲存警報訂閱；條件以 JSONB 保存。
type SubscriptionRepo struct {
	db *sql.DB
}

func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

// Save 寫入或更新訂閱。
func (r *SubscriptionRepo) Save(ctx context.Context, sub alertDomain.Subscription) error {
	conditions, err := json.Marshal(sub.Conditions)
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}
	channels := make([]string, len(sub.Channels))
	for i, ch := range sub.Channels {
		channels[i] = string(ch)
	}

	const q = `
INSERT INTO alert_subscriptions (id, name, type, enabled, logic, conditions, symbol, threshold, channels, webhook_url, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
ON CONFLICT (id)
DO UPDATE SET name = EXCLUDED.name,
              type = EXCLUDED.type,
              enabled = EXCLUDED.enabled,
              logic = EXCLUDED.logic,
              conditions = EXCLUDED.conditions,
              symbol = EXCLUDED.symbol,
              threshold = EXCLUDED.threshold,
              channels = EXCLUDED.channels,
              webhook_url = EXCLUDED.webhook_url,
              version = EXCLUDED.version,
              updated_at = NOW();
`
	_, err = r.db.ExecContext(ctx, q,
		sub.ID,
		sub.Name,
		string(sub.Type),
		sub.Enabled,
		string(sub.Logic),
		conditions,
		sub.Symbol,
		sub.Threshold,
		pq.Array(channels),
		sub.WebhookURL,
		sub.Version,
	)
	return err
}

// ListActive 回傳所有啟用中的訂閱。
func (r *SubscriptionRepo) ListActive(ctx context.Context) ([]alertDomain.Subscription, error) {
	const q = `
SELECT id, name, type, enabled, logic, conditions, symbol, threshold, channels, webhook_url, version
FROM alert_subscriptions
WHERE enabled = TRUE
ORDER BY id;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []alertDomain.Subscription
	for rows.Next() {
		var sub alertDomain.Subscription
		var typ, logic string
		var conditions []byte
		var channels pq.StringArray
		if err := rows.Scan(&sub.ID, &sub.Name, &typ, &sub.Enabled, &logic, &conditions, &sub.Symbol, &sub.Threshold, &channels, &sub.WebhookURL, &sub.Version); err != nil {
			return nil, err
		}
		sub.Type = alertDomain.SubscriptionType(typ)
		sub.Logic = analysis.BoolLogic(logic)
		if len(conditions) > 0 {
			if err := json.Unmarshal(conditions, &sub.Conditions); err != nil {
				return nil, fmt.Errorf("unmarshal conditions for %s: %w", sub.ID, err)
			}
		}
		for _, ch := range channels {
			sub.Channels = append(sub.Channels, alertDomain.Channel(ch))
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Delete 移除訂閱。
func (r *SubscriptionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM alert_subscriptions WHERE id = $1;`, id)
	return err
}
