package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"stock-radar/internal/application/analysis"
	chipApp "stock-radar/internal/application/chip"
	analysisDomain "stock-radar/internal/domain/analysis"
	chipDomain "stock-radar/internal/domain/chip"
	dataDomain "stock-radar/internal/domain/dataingestion"
	"stock-radar/internal/domain/strategy"
)

// Repo 提供 Postgres 資料存取，涵蓋 ingestion / analysis / chip 讀寫與查詢。
type Repo struct {
	db *sql.DB
}

// NewRepo 建立 Postgres 資料存取實例。
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// UpsertStock 以 symbol 作為唯一鍵維護基本資料。
func (r *Repo) UpsertStock(ctx context.Context, symbol, name string, market dataDomain.Market, industry string) error {
	const q = `
INSERT INTO stocks (symbol, market, name_zh, industry, status)
VALUES ($1, $2, $3, $4, 'active')
ON CONFLICT (symbol)
DO UPDATE SET market = EXCLUDED.market, name_zh = EXCLUDED.name_zh, industry = EXCLUDED.industry, updated_at = NOW();
`
	_, err := r.db.ExecContext(ctx, q, symbol, string(market), name, industry)
	return err
}

// ListBasicInfo 供分析管線取得股票基本資料；symbols 為空時回傳全部。
func (r *Repo) ListBasicInfo(ctx context.Context, symbols []string, _ time.Time) ([]analysis.BasicInfo, error) {
	q := `SELECT symbol, market, industry FROM stocks WHERE status = 'active'`
	args := []interface{}{}
	if len(symbols) > 0 {
		q += ` AND symbol = ANY($1)`
		args = append(args, pq.Array(symbols))
	}
	q += ` ORDER BY symbol;`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []analysis.BasicInfo
	for rows.Next() {
		var info analysis.BasicInfo
		var market string
		if err := rows.Scan(&info.Symbol, &market, &info.Industry); err != nil {
			return nil, err
		}
		info.Market = dataDomain.Market(market)
		out = append(out, info)
	}
	return out, rows.Err()
}

// UpsertDailyPrice 寫入單日日 K；replace 為 false 時不覆蓋既有資料。
func (r *Repo) UpsertDailyPrice(ctx context.Context, price dataDomain.DailyPrice, replace bool) error {
	q := `
INSERT INTO daily_prices (symbol, market, trade_date, open_price, high_price, low_price, close_price, volume, turnover, change, change_percent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (symbol, trade_date)
`
	if replace {
		q += `
DO UPDATE SET open_price = EXCLUDED.open_price,
              high_price = EXCLUDED.high_price,
              low_price = EXCLUDED.low_price,
              close_price = EXCLUDED.close_price,
              volume = EXCLUDED.volume,
              turnover = EXCLUDED.turnover,
              change = EXCLUDED.change,
              change_percent = EXCLUDED.change_percent,
              updated_at = NOW();
`
	} else {
		q += `DO NOTHING;`
	}
	_, err := r.db.ExecContext(ctx, q,
		price.Symbol,
		string(price.Market),
		price.TradeDate,
		price.Open,
		price.High,
		price.Low,
		price.Close,
		price.Volume,
		price.Turnover,
		price.Change,
		price.ChangeRate,
	)
	return err
}

// GetHistory 取截至 endDate（含）最近 lookback 個交易日，日期遞增。
func (r *Repo) GetHistory(ctx context.Context, symbol string, endDate time.Time, lookback int) ([]dataDomain.DailyPrice, error) {
	const q = `
SELECT symbol, market, trade_date, open_price, high_price, low_price, close_price, volume, turnover, change, change_percent
FROM daily_prices
WHERE symbol = $1 AND trade_date <= $2
ORDER BY trade_date DESC
LIMIT $3;
`
	rows, err := r.db.QueryContext(ctx, q, symbol, endDate, lookback)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dataDomain.DailyPrice
	for rows.Next() {
		var p dataDomain.DailyPrice
		var market string
		if err := rows.Scan(&p.Symbol, &market, &p.TradeDate, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &p.Turnover, &p.Change, &p.ChangeRate); err != nil {
			return nil, err
		}
		p.Market = dataDomain.Market(market)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// 反轉成日期遞增
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// SaveDailyResult 寫入或更新分析結果。
func (r *Repo) SaveDailyResult(ctx context.Context, res analysisDomain.DailyAnalysisResult) error {
	const q = `
INSERT INTO analysis_results (
    symbol, market, industry, trade_date, analysis_version,
    close_price, change, change_percent, volume,
    ma5, ma10, ma20, ma60, vol_ma20, high60, low60, rsi, kd_k, kd_d, macd_hist,
    regime, trade_mode, watch, buy, confidence, reason,
    composite_score, composite_reasons, chip_net_buy, chip_switch, tags,
    status, error_reason, created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5,
    $6, $7, $8, $9,
    $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
    $21, $22, $23, $24, $25, $26,
    $27, $28, $29, $30, $31,
    $32, $33, NOW(), NOW()
) ON CONFLICT (symbol, trade_date, analysis_version)
DO UPDATE SET close_price = EXCLUDED.close_price,
              change = EXCLUDED.change,
              change_percent = EXCLUDED.change_percent,
              volume = EXCLUDED.volume,
              ma5 = EXCLUDED.ma5,
              ma10 = EXCLUDED.ma10,
              ma20 = EXCLUDED.ma20,
              ma60 = EXCLUDED.ma60,
              vol_ma20 = EXCLUDED.vol_ma20,
              high60 = EXCLUDED.high60,
              low60 = EXCLUDED.low60,
              rsi = EXCLUDED.rsi,
              kd_k = EXCLUDED.kd_k,
              kd_d = EXCLUDED.kd_d,
              macd_hist = EXCLUDED.macd_hist,
              regime = EXCLUDED.regime,
              trade_mode = EXCLUDED.trade_mode,
              watch = EXCLUDED.watch,
              buy = EXCLUDED.buy,
              confidence = EXCLUDED.confidence,
              reason = EXCLUDED.reason,
              composite_score = EXCLUDED.composite_score,
              composite_reasons = EXCLUDED.composite_reasons,
              chip_net_buy = EXCLUDED.chip_net_buy,
              chip_switch = EXCLUDED.chip_switch,
              tags = EXCLUDED.tags,
              status = EXCLUDED.status,
              error_reason = EXCLUDED.error_reason,
              updated_at = NOW();
`
	_, err := r.db.ExecContext(ctx, q,
		res.Symbol,
		string(res.Market),
		res.Industry,
		res.TradeDate,
		res.Version,
		res.Close,
		res.Change,
		res.ChangeRate,
		res.Volume,
		nullFloat(res.MA5),
		nullFloat(res.MA10),
		nullFloat(res.MA20),
		nullFloat(res.MA60),
		nullFloat(res.VolMA20),
		nullFloat(res.High60),
		nullFloat(res.Low60),
		nullFloat(res.RSI),
		nullFloat(res.K),
		nullFloat(res.D),
		nullFloat(res.MACDHist),
		string(res.Decision.Regime),
		string(res.Decision.Mode),
		res.Decision.Watch,
		res.Decision.Buy,
		res.Decision.Confidence,
		nullableString(res.Decision.Reason),
		res.CompositeScore,
		pq.Array(res.CompositeReasons),
		nullFloat(res.ChipNetBuy),
		nullableString(res.ChipSwitch),
		pq.Array(tagsToStrings(res.Tags)),
		statusValue(res.Success),
		nullableString(res.ErrorReason),
	)
	return err
}

const resultColumns = `
symbol, market, industry, trade_date, analysis_version,
close_price, change, change_percent, volume,
ma5, ma10, ma20, ma60, vol_ma20, high60, low60, rsi, kd_k, kd_d, macd_hist,
regime, trade_mode, watch, buy, confidence, reason,
composite_score, composite_reasons, chip_net_buy, chip_switch, tags,
status, error_reason`

// FindByDate 供 QueryUseCase 使用，條件於 SQL 端過濾。
func (r *Repo) FindByDate(ctx context.Context, date time.Time, filter analysis.QueryFilter, sort analysis.SortOption, pagination analysis.Pagination) ([]analysisDomain.DailyAnalysisResult, int, error) {
	where, args := buildFilter(date, filter)

	countQ := `SELECT count(*) FROM analysis_results WHERE ` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + resultColumns + ` FROM analysis_results WHERE ` + where +
		` ORDER BY ` + orderClause(sort)
	args = append(args, pagination.Limit, pagination.Offset)
	q += fmt.Sprintf(` LIMIT $%d OFFSET $%d;`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := scanResults(rows)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// FindHistory 供 QueryUseCase 使用。
func (r *Repo) FindHistory(ctx context.Context, symbol string, from, to *time.Time, limit int, onlySuccess bool) ([]analysisDomain.DailyAnalysisResult, error) {
	q := `SELECT ` + resultColumns + ` FROM analysis_results WHERE symbol = $1`
	args := []interface{}{symbol}
	if from != nil {
		q += fmt.Sprintf(" AND trade_date >= $%d", len(args)+1)
		args = append(args, *from)
	}
	if to != nil {
		q += fmt.Sprintf(" AND trade_date <= $%d", len(args)+1)
		args = append(args, *to)
	}
	if onlySuccess {
		q += " AND status = 'success'"
	}
	q += " ORDER BY trade_date DESC"
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResults(rows)
}

// Get 單筆查詢。
func (r *Repo) Get(ctx context.Context, symbol string, date time.Time) (analysisDomain.DailyAnalysisResult, error) {
	q := `SELECT ` + resultColumns + ` FROM analysis_results WHERE symbol = $1 AND trade_date = $2 LIMIT 1;`
	rows, err := r.db.QueryContext(ctx, q, symbol, date)
	if err != nil {
		return analysisDomain.DailyAnalysisResult{}, err
	}
	defer rows.Close()

	results, err := scanResults(rows)
	if err != nil {
		return analysisDomain.DailyAnalysisResult{}, err
	}
	if len(results) == 0 {
		return analysisDomain.DailyAnalysisResult{}, sql.ErrNoRows
	}
	return results[0], nil
}

// SaveNetFlows 寫入彙總後的法人淨流量。
func (r *Repo) SaveNetFlows(ctx context.Context, symbol string, flows []chipDomain.NetFlow) error {
	const q = `
INSERT INTO chip_flows (symbol, flow_date, net_buy, net_buy_ma5)
VALUES ($1, $2, $3, $4)
ON CONFLICT (symbol, flow_date)
DO UPDATE SET net_buy = EXCLUDED.net_buy, net_buy_ma5 = EXCLUDED.net_buy_ma5, updated_at = NOW();
`
	for _, flow := range flows {
		if _, err := r.db.ExecContext(ctx, q, symbol, flow.Date, flow.NetBuy, nullFloat(flow.MA5)); err != nil {
			return err
		}
	}
	return nil
}

// SwitchEvents 取單檔轉向事件，新到舊。
func (r *Repo) SwitchEvents(ctx context.Context, symbol string) ([]chipApp.SwitchEvent, error) {
	const q = `
SELECT symbol, event_date, kind, prev_net, last_net
FROM chip_switch_events
WHERE symbol = $1
ORDER BY event_date DESC;
`
	rows, err := r.db.QueryContext(ctx, q, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chipApp.SwitchEvent
	for rows.Next() {
		var ev chipApp.SwitchEvent
		var kind string
		if err := rows.Scan(&ev.Symbol, &ev.Date, &kind, &ev.Prev, &ev.Last); err != nil {
			return nil, err
		}
		ev.Kind = chipDomain.SwitchKind(kind)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// SaveSwitchEvents 以單檔為單位全量覆寫事件歷史。
func (r *Repo) SaveSwitchEvents(ctx context.Context, symbol string, events []chipApp.SwitchEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chip_switch_events WHERE symbol = $1;`, symbol); err != nil {
		return err
	}
	const q = `
INSERT INTO chip_switch_events (symbol, event_date, kind, prev_net, last_net)
VALUES ($1, $2, $3, $4, $5);
`
	for _, ev := range events {
		if _, err := tx.ExecContext(ctx, q, symbol, ev.Date, string(ev.Kind), ev.Prev, ev.Last); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func buildFilter(date time.Time, filter analysis.QueryFilter) (string, []interface{}) {
	clauses := []string{"trade_date = $1"}
	args := []interface{}{date}

	next := func() int { return len(args) + 1 }

	if len(filter.Markets) > 0 {
		markets := make([]string, len(filter.Markets))
		for i, m := range filter.Markets {
			markets[i] = string(m)
		}
		clauses = append(clauses, fmt.Sprintf("market = ANY($%d)", next()))
		args = append(args, pq.Array(markets))
	}
	if len(filter.Industries) > 0 {
		clauses = append(clauses, fmt.Sprintf("industry = ANY($%d)", next()))
		args = append(args, pq.Array(filter.Industries))
	}
	if len(filter.Symbols) > 0 {
		clauses = append(clauses, fmt.Sprintf("symbol = ANY($%d)", next()))
		args = append(args, pq.Array(filter.Symbols))
	}
	if len(filter.Regimes) > 0 {
		clauses = append(clauses, fmt.Sprintf("regime = ANY($%d)", next()))
		args = append(args, pq.Array(filter.Regimes))
	}
	if len(filter.Modes) > 0 {
		clauses = append(clauses, fmt.Sprintf("trade_mode = ANY($%d)", next()))
		args = append(args, pq.Array(filter.Modes))
	}
	if len(filter.Signals) > 0 {
		clauses = append(clauses, signalClause(filter.Signals))
	}
	if filter.CompositeScoreMin != nil {
		clauses = append(clauses, fmt.Sprintf("composite_score >= $%d", next()))
		args = append(args, *filter.CompositeScoreMin)
	}
	if filter.CompositeScoreMax != nil {
		clauses = append(clauses, fmt.Sprintf("composite_score <= $%d", next()))
		args = append(args, *filter.CompositeScoreMax)
	}
	if filter.ConfidenceMin != nil {
		clauses = append(clauses, fmt.Sprintf("confidence >= $%d", next()))
		args = append(args, *filter.ConfidenceMin)
	}
	if filter.ChipNetBuyMin != nil {
		clauses = append(clauses, fmt.Sprintf("chip_net_buy >= $%d", next()))
		args = append(args, *filter.ChipNetBuyMin)
	}
	if len(filter.TagsAny) > 0 {
		clauses = append(clauses, fmt.Sprintf("tags && $%d", next()))
		args = append(args, pq.Array(tagsToStrings(filter.TagsAny)))
	}
	if len(filter.TagsAll) > 0 {
		clauses = append(clauses, fmt.Sprintf("tags @> $%d", next()))
		args = append(args, pq.Array(tagsToStrings(filter.TagsAll)))
	}
	if filter.OnlySuccess {
		clauses = append(clauses, "status = 'success'")
	}
	return strings.Join(clauses, " AND "), args
}

// signalClause 將 buy/watch/none 轉成布林欄位條件。
func signalClause(signals []string) string {
	var parts []string
	for _, s := range signals {
		switch s {
		case "buy":
			parts = append(parts, "(buy = TRUE)")
		case "watch":
			parts = append(parts, "(watch = TRUE AND buy = FALSE)")
		case "none":
			parts = append(parts, "(watch = FALSE AND buy = FALSE)")
		}
	}
	if len(parts) == 0 {
		return "TRUE"
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func orderClause(sort analysis.SortOption) string {
	col := "composite_score"
	switch sort.Field {
	case analysis.SortConfidence:
		col = "confidence"
	case analysis.SortChangeRate:
		col = "change_percent"
	case analysis.SortChipNetBuy:
		col = "chip_net_buy"
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s NULLS LAST, symbol ASC", col, dir)
}

func scanResults(rows *sql.Rows) ([]analysisDomain.DailyAnalysisResult, error) {
	var results []analysisDomain.DailyAnalysisResult
	for rows.Next() {
		var res analysisDomain.DailyAnalysisResult
		var market, regime, mode, status string
		var reason, chipSwitch, errorReason sql.NullString
		var ma5, ma10, ma20, ma60, volMA20, high60, low60, rsi, k, d, macdHist, chipNetBuy sql.NullFloat64
		var compositeReasons, tags pq.StringArray

		if err := rows.Scan(
			&res.Symbol,
			&market,
			&res.Industry,
			&res.TradeDate,
			&res.Version,
			&res.Close,
			&res.Change,
			&res.ChangeRate,
			&res.Volume,
			&ma5, &ma10, &ma20, &ma60, &volMA20, &high60, &low60, &rsi, &k, &d, &macdHist,
			&regime,
			&mode,
			&res.Decision.Watch,
			&res.Decision.Buy,
			&res.Decision.Confidence,
			&reason,
			&res.CompositeScore,
			&compositeReasons,
			&chipNetBuy,
			&chipSwitch,
			&tags,
			&status,
			&errorReason,
		); err != nil {
			return nil, err
		}

		res.Market = dataDomain.Market(market)
		res.Decision.Regime = strategy.Regime(regime)
		res.Decision.Mode = strategy.Mode(mode)
		res.Decision.Reason = reason.String
		res.MA5 = floatPtr(ma5)
		res.MA10 = floatPtr(ma10)
		res.MA20 = floatPtr(ma20)
		res.MA60 = floatPtr(ma60)
		res.VolMA20 = floatPtr(volMA20)
		res.High60 = floatPtr(high60)
		res.Low60 = floatPtr(low60)
		res.RSI = floatPtr(rsi)
		res.K = floatPtr(k)
		res.D = floatPtr(d)
		res.MACDHist = floatPtr(macdHist)
		res.ChipNetBuy = floatPtr(chipNetBuy)
		res.ChipSwitch = chipSwitch.String
		res.CompositeReasons = compositeReasons
		res.Tags = stringsToTags(tags)
		res.Success = status == "success"
		res.ErrorReason = errorReason.String
		results = append(results, res)
	}
	return results, rows.Err()
}

func tagsToStrings(tags []analysisDomain.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

func stringsToTags(values []string) []analysisDomain.Tag {
	if len(values) == 0 {
		return nil
	}
	out := make([]analysisDomain.Tag, len(values))
	for i, v := range values {
		out[i] = analysisDomain.Tag(v)
	}
	return out
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func statusValue(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func nullableString(s string) interface{} {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
