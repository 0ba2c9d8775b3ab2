package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"stock-radar/internal/application/analysis"
	chipApp "stock-radar/internal/application/chip"
	analysisDomain "stock-radar/internal/domain/analysis"
	chipDomain "stock-radar/internal/domain/chip"
	dataDomain "stock-radar/internal/domain/dataingestion"
	"stock-radar/internal/domain/strategy"
)

func newMockRepo(t *testing.T) (*Repo, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	return NewRepo(db), mock, func() { db.Close() }
}

func TestRepo_UpsertDailyPrice(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	price := dataDomain.DailyPrice{
		Symbol:    "2330",
		Market:    dataDomain.MarketTWSE,
		TradeDate: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Open:      1050, High: 1065, Low: 1045, Close: 1060,
		Volume: 25000000, Turnover: 26500000000, Change: 10, ChangeRate: 0.0095,
	}

	mock.ExpectExec("INSERT INTO daily_prices").
		WithArgs("2330", "TWSE", price.TradeDate, 1050.0, 1065.0, 1045.0, 1060.0,
			int64(25000000), int64(26500000000), 10.0, 0.0095).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.UpsertDailyPrice(context.Background(), price, true); err != nil {
		t.Fatalf("UpsertDailyPrice failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRepo_GetHistory_ReturnsAscending(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	cols := []string{"symbol", "market", "trade_date", "open_price", "high_price", "low_price", "close_price", "volume", "turnover", "change", "change_percent"}
	rows := sqlmock.NewRows(cols).
		AddRow("2330", "TWSE", end, 1050.0, 1065.0, 1045.0, 1060.0, int64(25000000), int64(0), 10.0, 0.0095).
		AddRow("2330", "TWSE", end.AddDate(0, 0, -1), 1040.0, 1055.0, 1035.0, 1050.0, int64(24000000), int64(0), 5.0, 0.0048)

	mock.ExpectQuery("SELECT (.+) FROM daily_prices").
		WithArgs("2330", end, 120).
		WillReturnRows(rows)

	history, err := repo.GetHistory(context.Background(), "2330", end, 120)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(history))
	}
	// 反轉後首筆應為較早日期
	if !history[0].TradeDate.Before(history[1].TradeDate) {
		t.Errorf("expected ascending dates, got %v then %v", history[0].TradeDate, history[1].TradeDate)
	}
}

func TestRepo_SaveDailyResult(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	res := sampleResult()
	mock.ExpectExec("INSERT INTO analysis_results").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.SaveDailyResult(context.Background(), res); err != nil {
		t.Fatalf("SaveDailyResult failed: %v", err)
	}
}

func TestRepo_FindByDate(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM analysis_results").
		WillReturnRows(resultRows(date))

	minScore := 50.0
	results, total, err := repo.FindByDate(context.Background(), date, analysis.QueryFilter{
		Regimes:           []string{"BULL"},
		Signals:           []string{"buy"},
		CompositeScoreMin: &minScore,
		OnlySuccess:       true,
	}, analysis.SortOption{Field: analysis.SortCompositeScore, Desc: true}, analysis.Pagination{Limit: 100})
	if err != nil {
		t.Fatalf("FindByDate failed: %v", err)
	}
	if total != 1 || len(results) != 1 {
		t.Fatalf("expected 1/1, got %d/%d", len(results), total)
	}
	r := results[0]
	if r.Symbol != "2330" || !r.Decision.Buy || r.Decision.Regime != "BULL" {
		t.Errorf("unexpected result: %+v", r)
	}
	if r.MA60 == nil || *r.MA60 != 980.0 {
		t.Errorf("expected MA60 980, got %v", r.MA60)
	}
	if len(r.Tags) != 1 || string(r.Tags[0]) != "突破 60 日高" {
		t.Errorf("unexpected tags: %v", r.Tags)
	}
}

func TestRepo_Get_NotFound(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM analysis_results").
		WillReturnRows(sqlmock.NewRows(resultCols()))

	if _, err := repo.Get(context.Background(), "9999", date); err == nil {
		t.Error("expected error for missing row")
	}
}

func TestRepo_SaveNetFlows(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	ma := 120.0
	flows := []chipDomain.NetFlow{
		{Date: time.Date(2025, 6, 27, 0, 0, 0, 0, time.UTC), NetBuy: -50},
		{Date: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), NetBuy: 200, MA5: &ma},
	}
	mock.ExpectExec("INSERT INTO chip_flows").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO chip_flows").WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.SaveNetFlows(context.Background(), "2330", flows); err != nil {
		t.Fatalf("SaveNetFlows failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRepo_SaveSwitchEvents_ReplacesAll(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	events := []chipApp.SwitchEvent{
		{Symbol: "2330", Date: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), Kind: chipDomain.SwitchSellToBuy, Prev: -50, Last: 200},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM chip_switch_events").
		WithArgs("2330").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO chip_switch_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.SaveSwitchEvents(context.Background(), "2330", events); err != nil {
		t.Fatalf("SaveSwitchEvents failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRepo_ListBasicInfo(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	rows := sqlmock.NewRows([]string{"symbol", "market", "industry"}).
		AddRow("2330", "TWSE", "半導體業")
	mock.ExpectQuery("SELECT (.+) FROM stocks").
		WillReturnRows(rows)

	infos, err := repo.ListBasicInfo(context.Background(), []string{"2330"}, time.Now())
	if err != nil {
		t.Fatalf("ListBasicInfo failed: %v", err)
	}
	if len(infos) != 1 || infos[0].Industry != "半導體業" {
		t.Errorf("unexpected infos: %+v", infos)
	}
}

func sampleResult() analysisDomain.DailyAnalysisResult {
	ma60 := 980.0
	netBuy := 200.0
	return analysisDomain.DailyAnalysisResult{
		Symbol:    "2330",
		Market:    dataDomain.MarketTWSE,
		Industry:  "半導體業",
		TradeDate: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Version:   "v1",
		Close:     1060, Change: 10, ChangeRate: 0.0095, Volume: 25000000,
		MA60: &ma60,
		Decision: strategy.Decision{
			Regime: strategy.RegimeBull, Mode: strategy.ModeTrend,
			Watch: true, Buy: true, Confidence: 100, Reason: "突破觸發",
		},
		CompositeScore:   80,
		CompositeReasons: []string{"均線多頭"},
		ChipNetBuy:       &netBuy,
		Tags:             []analysisDomain.Tag{analysisDomain.TagBreakHigh60},
		Success:          true,
	}
}

func resultCols() []string {
	return []string{
		"symbol", "market", "industry", "trade_date", "analysis_version",
		"close_price", "change", "change_percent", "volume",
		"ma5", "ma10", "ma20", "ma60", "vol_ma20", "high60", "low60", "rsi", "kd_k", "kd_d", "macd_hist",
		"regime", "trade_mode", "watch", "buy", "confidence", "reason",
		"composite_score", "composite_reasons", "chip_net_buy", "chip_switch", "tags",
		"status", "error_reason",
	}
}

func resultRows(date time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(resultCols()).AddRow(
		"2330", "TWSE", "半導體業", date, "v1",
		1060.0, 10.0, 0.0095, int64(25000000),
		nil, nil, nil, 980.0, nil, nil, nil, nil, nil, nil, nil,
		"BULL", "Trend", true, true, 100, "突破觸發",
		80.0, "{均線多頭}", 200.0, nil, "{突破 60 日高}",
		"success", nil,
	)
}
