package synthetic

import (
	"context"
	"hash/fnv"
	"math"
	"time"

	"stock-radar/internal/application/analysis"
	"stock-radar/internal/domain/chip"
	"stock-radar/internal/domain/dataingestion"
	"stock-radar/internal/domain/scoring"
)

// Source 產生可重現的模擬行情，供本地開發與測試使用。
// 同一股票同一天永遠產生同一根 K 棒，分析批次可重跑比對。
type Source struct {
	universe []stockMeta
}

type stockMeta struct {
	symbol   string
	name     string
	market   dataingestion.Market
	industry string
	base     float64
}

func NewSource() *Source {
	return &Source{
		universe: []stockMeta{
			{"2330", "台積電", dataingestion.MarketTWSE, "半導體", 1000},
			{"2317", "鴻海", dataingestion.MarketTWSE, "電子零組件", 180},
			{"2454", "聯發科", dataingestion.MarketTWSE, "半導體", 1250},
			{"2603", "長榮", dataingestion.MarketTWSE, "航運", 210},
			{"2882", "國泰金", dataingestion.MarketTWSE, "金融保險", 62},
			{"8069", "元太", dataingestion.MarketTPEx, "光電", 250},
			{"5483", "中美晶", dataingestion.MarketTPEx, "半導體", 175},
			{"3105", "穩懋", dataingestion.MarketTPEx, "半導體", 140},
		},
	}
}

// FetchDaily 依股票代號與日期產生當日 K 棒。symbols 為空時回傳全部。
func (s *Source) FetchDaily(ctx context.Context, date time.Time, symbols []string, market *dataingestion.Market) ([]dataingestion.DailyPrice, error) {
	var out []dataingestion.DailyPrice
	for _, m := range s.selected(symbols) {
		if market != nil && m.market != *market {
			continue
		}
		out = append(out, priceFor(m, date))
	}
	return out, nil
}

// ListBasicInfo 回傳模擬宇宙的基本資料。
func (s *Source) ListBasicInfo(ctx context.Context, symbols []string, _ time.Time) ([]analysis.BasicInfo, error) {
	var out []analysis.BasicInfo
	for _, m := range s.selected(symbols) {
		out = append(out, analysis.BasicInfo{Symbol: m.symbol, Market: m.market, Industry: m.industry})
	}
	return out, nil
}

// GetFundamentals 回傳由代號推導的固定估值。
func (s *Source) GetFundamentals(ctx context.Context, symbol string) (scoring.Fundamentals, error) {
	seed := float64(seedOf(symbol)%40) + 8 // PE 介於 8~48
	pe := seed
	eps := 4 + float64(seedOf(symbol)%12)
	growth := 0.05 + float64(seedOf(symbol)%5)*0.05
	peg := pe / (growth * 100)
	return scoring.Fundamentals{PE: &pe, EPS: &eps, EarningsGrowth: &growth, PEG: &peg}, nil
}

// FetchFlows 產生法人買賣超序列：以週期性正弦切換買賣方向，
// 讓方向轉折偵測有事件可抓。
func (s *Source) FetchFlows(ctx context.Context, symbol string, endDate time.Time, lookback int) ([]chip.FlowRow, error) {
	seed := seedOf(symbol)
	var rows []chip.FlowRow
	for i := lookback - 1; i >= 0; i-- {
		d := endDate.AddDate(0, 0, -i)
		phase := float64(d.Unix()/86400+int64(seed%17)) / 9.0
		net := math.Sin(phase) * float64(2000+seed%3000) * 1000
		buy := int64(3_000_000 + seed%1_000_000)
		sell := buy - int64(net)
		if sell < 0 {
			sell = 0
		}
		rows = append(rows, chip.FlowRow{Date: d, Buy: buy, Sell: sell})
	}
	return rows, nil
}

// GetFlows 與 FetchFlows 相同，滿足分析批次的籌碼介面。
func (s *Source) GetFlows(ctx context.Context, symbol string, endDate time.Time, lookback int) ([]chip.FlowRow, error) {
	return s.FetchFlows(ctx, symbol, endDate, lookback)
}

func (s *Source) selected(symbols []string) []stockMeta {
	if len(symbols) == 0 {
		return s.universe
	}
	want := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		want[sym] = true
	}
	var out []stockMeta
	for _, m := range s.universe {
		if want[m.symbol] {
			out = append(out, m)
		}
	}
	return out
}

// priceFor 以日序號驅動的緩慢趨勢加上短週期波動，
// 收盤價永遠為正且 high/low 包住 open/close。
func priceFor(m stockMeta, date time.Time) dataingestion.DailyPrice {
	seed := seedOf(m.symbol)
	day := float64(date.Unix() / 86400)
	trend := 1 + 0.25*math.Sin(day/60+float64(seed%7))
	wave := 0.03 * math.Sin(day/5+float64(seed%13))
	closeP := round2(m.base * trend * (1 + wave))
	prevWave := 0.03 * math.Sin((day-1)/5+float64(seed%13))
	prevTrend := 1 + 0.25*math.Sin((day-1)/60+float64(seed%7))
	prevClose := round2(m.base * prevTrend * (1 + prevWave))
	openP := round2(prevClose * (1 + 0.002*math.Sin(day)))
	high := math.Max(openP, closeP) * 1.01
	low := math.Min(openP, closeP) * 0.99
	vol := int64(5_000_000 + (seed+uint32(date.Unix()/86400))%20_000_000)
	change := round2(closeP - prevClose)
	rate := 0.0
	if prevClose > 0 {
		rate = change / prevClose
	}
	return dataingestion.DailyPrice{
		Symbol:     m.symbol,
		Market:     m.market,
		TradeDate:  date,
		Open:       openP,
		High:       round2(high),
		Low:        round2(low),
		Close:      closeP,
		Volume:     vol,
		Turnover:   int64(closeP * float64(vol)),
		Change:     change,
		ChangeRate: rate,
	}
}

func seedOf(symbol string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return h.Sum32()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
