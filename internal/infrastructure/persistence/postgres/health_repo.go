package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	alertDomain "stock-radar/internal/domain/alert"
)

// HealthRepo 由資料表統計系統健康度指標。
type HealthRepo struct {
	db *sql.DB
}

func NewHealthRepo(db *sql.DB) *HealthRepo {
	return &HealthRepo{db: db}
}

// Check 回傳指定交易日的健康度指標：
// ingestion_count、analysis_success_rate、analysis_failure_count。
func (r *HealthRepo) Check(ctx context.Context, date time.Time) ([]alertDomain.SystemMetric, error) {
	var metrics []alertDomain.SystemMetric

	var priceCount int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM daily_prices WHERE trade_date = $1;`, date).Scan(&priceCount); err != nil {
		return nil, err
	}
	metrics = append(metrics, alertDomain.SystemMetric{
		Metric: "ingestion_count",
		Value:  float64(priceCount),
		Detail: fmt.Sprintf("%s 日 K 筆數", date.Format("2006-01-02")),
	})

	var total, success int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*), count(*) FILTER (WHERE status = 'success') FROM analysis_results WHERE trade_date = $1;`,
		date).Scan(&total, &success); err != nil {
		return nil, err
	}

	rate := 0.0
	if total > 0 {
		rate = float64(success) / float64(total)
	}
	metrics = append(metrics,
		alertDomain.SystemMetric{
			Metric: "analysis_success_rate",
			Value:  rate,
			Detail: fmt.Sprintf("成功 %d / 總數 %d", success, total),
		},
		alertDomain.SystemMetric{
			Metric: "analysis_failure_count",
			Value:  float64(total - success),
		},
	)
	return metrics, nil
}
