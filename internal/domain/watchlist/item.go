package watchlist

import (
	"fmt"
	"time"
)

// Source 標記加入自選股的途徑。
type Source string

const (
	SourceManual Source = "manual"
	SourceScan   Source = "scan"
	SourceAlert  Source = "alert"
)

// Item 為一筆自選股。
type Item struct {
	ID          string
	UserID      string
	Symbol      string
	Note        string
	TargetPrice *float64
	Source      Source
	AddedAt     time.Time
}

// Validate 基本欄位檢查。
func (i Item) Validate() error {
	if i.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if i.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	switch i.Source {
	case SourceManual, SourceScan, SourceAlert:
	default:
		return fmt.Errorf("unsupported source: %s", i.Source)
	}
	if i.TargetPrice != nil && *i.TargetPrice <= 0 {
		return fmt.Errorf("target price must be positive")
	}
	return nil
}
