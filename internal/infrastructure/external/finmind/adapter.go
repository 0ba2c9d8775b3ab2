package finmind

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"stock-radar/internal/application/analysis"
	"stock-radar/internal/domain/chip"
	"stock-radar/internal/domain/dataingestion"
	"stock-radar/internal/domain/scoring"
)

const foreignInvestor = "Foreign_Investor"

// Adapter 將 FinMind 資料轉成應用層 port 需要的形狀。
// 同時實作 dataingestion.PriceSource、analysis.BasicInfoProvider、
// analysis.FundamentalsProvider 與 chip 模組的 FlowSource。
type Adapter struct {
	client *Client

	mu       sync.Mutex
	infoByID map[string]StockInfoRow
}

func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

// FetchDaily 逐檔抓取指定日期的日 K。
func (a *Adapter) FetchDaily(ctx context.Context, date time.Time, symbols []string, market *dataingestion.Market) ([]dataingestion.DailyPrice, error) {
	if len(symbols) == 0 {
		infos, err := a.loadInfo(ctx)
		if err != nil {
			return nil, err
		}
		for id := range infos {
			symbols = append(symbols, id)
		}
		sort.Strings(symbols)
	}

	var out []dataingestion.DailyPrice
	for _, symbol := range symbols {
		m, err := a.marketOf(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if market != nil && m != *market {
			continue
		}

		rows, err := a.client.DailyPrices(ctx, symbol, date, date)
		if err != nil {
			return nil, fmt.Errorf("fetch daily price %s: %w", symbol, err)
		}
		for _, row := range rows {
			price, err := toDailyPrice(row, m)
			if err != nil {
				return nil, err
			}
			out = append(out, price)
		}
	}
	return out, nil
}

// ListBasicInfo 回傳股票基本資料；symbols 為空時回傳全部上市櫃個股。
func (a *Adapter) ListBasicInfo(ctx context.Context, symbols []string, _ time.Time) ([]analysis.BasicInfo, error) {
	infos, err := a.loadInfo(ctx)
	if err != nil {
		return nil, err
	}

	if len(symbols) == 0 {
		for id := range infos {
			symbols = append(symbols, id)
		}
		sort.Strings(symbols)
	}

	out := make([]analysis.BasicInfo, 0, len(symbols))
	for _, symbol := range symbols {
		info, ok := infos[symbol]
		if !ok {
			continue
		}
		out = append(out, analysis.BasicInfo{
			Symbol:   info.StockID,
			Market:   marketFromType(info.Type),
			Industry: info.IndustryCategory,
		})
	}
	return out, nil
}

// GetFundamentals 由估值與損益表資料組出評分輸入。缺資料時欄位留 nil。
func (a *Adapter) GetFundamentals(ctx context.Context, symbol string) (scoring.Fundamentals, error) {
	var f scoring.Fundamentals
	now := time.Now()

	vals, err := a.client.Valuations(ctx, symbol, now.AddDate(0, 0, -14), now)
	if err != nil {
		return f, fmt.Errorf("fetch valuations %s: %w", symbol, err)
	}
	if len(vals) > 0 {
		last := vals[len(vals)-1]
		if last.PER > 0 {
			pe := last.PER
			f.PE = &pe
		}
	}

	rows, err := a.client.FinancialStatements(ctx, symbol, now.AddDate(0, -15, 0), now)
	if err != nil {
		return f, fmt.Errorf("fetch financials %s: %w", symbol, err)
	}
	epsByDate := map[string]float64{}
	var dates []string
	for _, row := range rows {
		if row.Type != "EPS" {
			continue
		}
		if _, seen := epsByDate[row.Date]; !seen {
			dates = append(dates, row.Date)
		}
		epsByDate[row.Date] = row.Value
	}
	sort.Strings(dates)

	if len(dates) > 0 {
		eps := epsByDate[dates[len(dates)-1]]
		f.EPS = &eps
		// 與去年同季比較
		if len(dates) >= 5 {
			prior := epsByDate[dates[len(dates)-5]]
			if prior != 0 {
				growth := (eps - prior) / abs(prior)
				f.EarningsGrowth = &growth
				if f.PE != nil && growth > 0 {
					peg := *f.PE / (growth * 100)
					f.PEG = &peg
				}
			}
		}
	}
	return f, nil
}

// FetchFlows 抓取外資買賣超原始列（單位：股）。
func (a *Adapter) FetchFlows(ctx context.Context, symbol string, endDate time.Time, lookback int) ([]chip.FlowRow, error) {
	if lookback <= 0 {
		lookback = 30
	}
	// 以兩倍天數涵蓋假日
	start := endDate.AddDate(0, 0, -lookback*2)
	rows, err := a.client.InstitutionalFlows(ctx, symbol, start, endDate)
	if err != nil {
		return nil, fmt.Errorf("fetch institutional flows %s: %w", symbol, err)
	}

	var out []chip.FlowRow
	for _, row := range rows {
		if row.Name != foreignInvestor {
			continue
		}
		date, err := time.Parse(dateLayout, row.Date)
		if err != nil {
			return nil, fmt.Errorf("parse flow date %q: %w", row.Date, err)
		}
		out = append(out, chip.FlowRow{Date: date, Buy: row.Buy, Sell: row.Sell})
	}
	if len(out) > lookback {
		out = out[len(out)-lookback:]
	}
	return out, nil
}

// GetFlows 與 FetchFlows 相同，供分析管線直接讀取來源資料時使用。
func (a *Adapter) GetFlows(ctx context.Context, symbol string, endDate time.Time, lookback int) ([]chip.FlowRow, error) {
	return a.FetchFlows(ctx, symbol, endDate, lookback)
}

func (a *Adapter) marketOf(ctx context.Context, symbol string) (dataingestion.Market, error) {
	infos, err := a.loadInfo(ctx)
	if err != nil {
		return "", err
	}
	if info, ok := infos[symbol]; ok {
		return marketFromType(info.Type), nil
	}
	return dataingestion.MarketTWSE, nil
}

func (a *Adapter) loadInfo(ctx context.Context) (map[string]StockInfoRow, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.infoByID != nil {
		return a.infoByID, nil
	}

	rows, err := a.client.StockInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch stock info: %w", err)
	}
	byID := make(map[string]StockInfoRow, len(rows))
	for _, row := range rows {
		switch strings.ToLower(row.Type) {
		case "twse", "tpex":
			byID[row.StockID] = row
		}
	}
	a.infoByID = byID
	return byID, nil
}

func toDailyPrice(row PriceRow, market dataingestion.Market) (dataingestion.DailyPrice, error) {
	date, err := time.Parse(dateLayout, row.Date)
	if err != nil {
		return dataingestion.DailyPrice{}, fmt.Errorf("parse price date %q: %w", row.Date, err)
	}
	price := dataingestion.DailyPrice{
		Symbol:    row.StockID,
		Market:    market,
		TradeDate: date,
		Open:      row.Open,
		High:      row.Max,
		Low:       row.Min,
		Close:     row.Close,
		Volume:    row.TradingVolume,
		Turnover:  row.TradingMoney,
		Change:    row.Spread,
	}
	if prev := row.Close - row.Spread; prev > 0 {
		price.ChangeRate = row.Spread / prev
	}
	return price, nil
}

func marketFromType(t string) dataingestion.Market {
	if strings.EqualFold(t, "tpex") {
		return dataingestion.MarketTPEx
	}
	return dataingestion.MarketTWSE
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
