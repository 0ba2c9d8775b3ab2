package analysis

import (
	"fmt"
	"time"

	"stock-radar/internal/domain/chip"
	"stock-radar/internal/domain/dataingestion"
	"stock-radar/internal/domain/indicator"
	"stock-radar/internal/domain/strategy"
)

// Tag 表示分析結果的標籤。
type Tag string

const (
	TagBreakHigh60  Tag = "突破 60 日高"
	TagNearLow60    Tag = "接近 60 日低"
	TagVolumeSurge  Tag = "量能放大"
	TagMACrossover  Tag = "均線黃金交叉"
	TagChipSwitch   Tag = "法人轉向"
	TagOverextended Tag = "高檔乖離"
)

// DailyAnalysisResult 為「股票 × 日期」的完整分析結果：
// 指標快照、三層策略決策、綜合評分與籌碼狀態。
type DailyAnalysisResult struct {
	Symbol    string
	Market    dataingestion.Market
	Industry  string
	TradeDate time.Time
	Version   string

	// 價格
	Close      float64
	Change     float64
	ChangeRate float64
	Volume     int64

	// 指標快照（視窗不足為 nil）
	MA5      *float64
	MA10     *float64
	MA20     *float64
	MA60     *float64
	VolMA20  *float64
	High60   *float64
	Low60    *float64
	RSI      *float64
	K        *float64
	D        *float64
	MACDHist *float64

	// 策略決策
	Decision strategy.Decision

	// 綜合評分
	CompositeScore   float64
	CompositeReasons []string

	// 籌碼
	ChipNetBuy *float64 // 當日買賣超（張）
	ChipSwitch string   // 轉向事件，空字串表示無
	Tags       []Tag

	// 狀態
	Success     bool
	ErrorReason string
}

// Validate 基礎必填檢查。
func (r DailyAnalysisResult) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if r.TradeDate.IsZero() {
		return fmt.Errorf("trade date is required")
	}
	switch r.Market {
	case dataingestion.MarketTWSE, dataingestion.MarketTPEx:
	default:
		return fmt.Errorf("market is required or unsupported")
	}
	if !r.Decision.Valid() {
		return fmt.Errorf("inconsistent decision for %s", r.Symbol)
	}
	return nil
}

// Snapshot 從富化序列摘出最新一列的指標快照與價格欄位。
func Snapshot(r *DailyAnalysisResult, s indicator.Series) {
	curr, ok := s.Last()
	if !ok {
		return
	}
	r.TradeDate = curr.TradeDate
	r.Close = curr.Close
	r.Volume = curr.Volume
	if prev, ok := s.Prev(); ok {
		r.Change = curr.Close - prev.Close
		if prev.Close > 0 {
			r.ChangeRate = r.Change / prev.Close
		}
	}
	r.MA5 = curr.MA5
	r.MA10 = curr.MA10
	r.MA20 = curr.MA20
	r.MA60 = curr.MA60
	r.VolMA20 = curr.VolMA20
	r.High60 = curr.High60
	r.Low60 = curr.Low60
	r.RSI = curr.RSI
	r.K = curr.K
	r.D = curr.D
	r.MACDHist = curr.MACDHist
}

// DeriveTags 依指標與籌碼狀態補上標籤。決策理由已在 Decision.Reason，
// 標籤只收快速掃視用的訊號。
func DeriveTags(s indicator.Series, sw *chip.Switch) []Tag {
	curr, ok := s.Last()
	if !ok {
		return nil
	}

	var tags []Tag
	if prevHigh, ok := s.PrevHighestHigh(60); ok && curr.Close > prevHigh {
		tags = append(tags, TagBreakHigh60)
	}
	if curr.Low60 != nil && *curr.Low60 > 0 && curr.Close <= *curr.Low60*1.03 {
		tags = append(tags, TagNearLow60)
	}
	if curr.VolMA20 != nil && *curr.VolMA20 > 0 && float64(curr.Volume) >= *curr.VolMA20*1.5 {
		tags = append(tags, TagVolumeSurge)
	}
	if indicator.MA5BreakoutMA10(s) {
		tags = append(tags, TagMACrossover)
	}
	if sw != nil {
		tags = append(tags, TagChipSwitch)
	}
	if curr.MA60 != nil && *curr.MA60 > 0 && curr.Close/(*curr.MA60) > 1.25 {
		tags = append(tags, TagOverextended)
	}
	return tags
}
