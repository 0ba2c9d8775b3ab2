package postgres

import (
	"context"
	"database/sql"

	"stock-radar/internal/domain/watchlist"
)

// WatchlistRepo 儲存使用者自選股清單。
type WatchlistRepo struct {
	db *sql.DB
}

func NewWatchlistRepo(db *sql.DB) *WatchlistRepo {
	return &WatchlistRepo{db: db}
}

// Save 以 (user_id, symbol) 作為唯一鍵，重複加入時更新備註與目標價。
func (r *WatchlistRepo) Save(ctx context.Context, item watchlist.Item) error {
	const q = `
INSERT INTO watchlist_items (user_id, symbol, note, target_price, source, added_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id, symbol)
DO UPDATE SET note = EXCLUDED.note, target_price = EXCLUDED.target_price, source = EXCLUDED.source;
`
	_, err := r.db.ExecContext(ctx, q,
		item.UserID,
		item.Symbol,
		item.Note,
		nullFloat(item.TargetPrice),
		string(item.Source),
		item.AddedAt,
	)
	return err
}

// List 回傳使用者全部自選股，依加入時間新到舊。
func (r *WatchlistRepo) List(ctx context.Context, userID string) ([]watchlist.Item, error) {
	const q = `
SELECT id, user_id, symbol, note, target_price, source, added_at
FROM watchlist_items
WHERE user_id = $1
ORDER BY added_at DESC;
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []watchlist.Item
	for rows.Next() {
		var item watchlist.Item
		var target sql.NullFloat64
		var source string
		if err := rows.Scan(&item.ID, &item.UserID, &item.Symbol, &item.Note, &target, &source, &item.AddedAt); err != nil {
			return nil, err
		}
		item.TargetPrice = floatPtr(target)
		item.Source = watchlist.Source(source)
		out = append(out, item)
	}
	return out, rows.Err()
}

// Delete 移除單一自選股。
func (r *WatchlistRepo) Delete(ctx context.Context, userID, symbol string) error {
	const q = `DELETE FROM watchlist_items WHERE user_id = $1 AND symbol = $2;`
	_, err := r.db.ExecContext(ctx, q, userID, symbol)
	return err
}
