package chip

import (
	"sort"
	"time"
)

// FlowRow 為來源提供的單筆法人買賣資料（股數）。同一日可能有多筆。
type FlowRow struct {
	Date time.Time
	Buy  int64
	Sell int64
}

// NetFlow 為彙總後的單日淨買賣超（張數）與 5 日均量。
type NetFlow struct {
	Date   time.Time
	NetBuy float64  // (買進 − 賣出) / 1000，單位：張
	MA5    *float64 // 近 5 日 NetBuy 平均，不足 5 日為 nil
}

// AlignedFlow 為對齊到價格序列交易日後的淨流量。
// 對齊只允許 forward-fill：交易日早於第一筆籌碼資料時欄位為 nil。
type AlignedFlow struct {
	Date   time.Time
	NetBuy *float64
	MA5    *float64
}

// Normalize 將原始多筆資料彙總為每日淨買賣超序列：
// 同日多筆先加總，再轉為張數並計算 5 日滾動平均。輸出依日期遞增。
func Normalize(rows []FlowRow) []NetFlow {
	if len(rows) == 0 {
		return nil
	}

	type daily struct {
		buy  int64
		sell int64
	}
	byDate := make(map[time.Time]daily)
	for _, r := range rows {
		day := r.Date.Truncate(24 * time.Hour)
		d := byDate[day]
		d.buy += r.Buy
		d.sell += r.Sell
		byDate[day] = d
	}

	out := make([]NetFlow, 0, len(byDate))
	for day, d := range byDate {
		out = append(out, NetFlow{
			Date:   day,
			NetBuy: float64(d.buy-d.sell) / 1000,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	var sum float64
	for i := range out {
		sum += out[i].NetBuy
		if i >= 5 {
			sum -= out[i-5].NetBuy
		}
		if i >= 4 {
			avg := sum / 5
			out[i].MA5 = &avg
		}
	}
	return out
}

// AlignTo 將淨流量序列對齊到指定的交易日索引（forward-fill，絕不 back-fill）。
func AlignTo(flows []NetFlow, dates []time.Time) []AlignedFlow {
	out := make([]AlignedFlow, len(dates))
	idx := -1
	for i, date := range dates {
		day := date.Truncate(24 * time.Hour)
		for idx+1 < len(flows) && !flows[idx+1].Date.After(day) {
			idx++
		}
		out[i] = AlignedFlow{Date: date}
		if idx >= 0 {
			v := flows[idx].NetBuy
			out[i].NetBuy = &v
			out[i].MA5 = flows[idx].MA5
		}
	}
	return out
}

// SwitchKind 列舉法人動向轉折類型。
type SwitchKind string

const (
	SwitchSellToBuy   SwitchKind = "賣轉買"
	SwitchBuyToSell   SwitchKind = "買轉賣"
	SwitchSellToBuyMA SwitchKind = "賣轉買(MA)"
	SwitchBuyToSellMA SwitchKind = "買轉賣(MA)"
)

// Switch 描述一次方向轉折與其前後值。
type Switch struct {
	Kind SwitchKind
	Prev float64
	Last float64
}

// DetectSwitch 以最後兩個有值的 NetBuy 判斷由賣轉買或由買轉賣。
// NetBuy 有值筆數不足兩筆時，退而以 5 日均量做同樣判斷；皆不足則無轉折。
func DetectSwitch(aligned []AlignedFlow) *Switch {
	sw, enough := detectOn(aligned, func(f AlignedFlow) *float64 { return f.NetBuy }, SwitchSellToBuy, SwitchBuyToSell)
	if enough {
		return sw
	}
	sw, _ = detectOn(aligned, func(f AlignedFlow) *float64 { return f.MA5 }, SwitchSellToBuyMA, SwitchBuyToSellMA)
	return sw
}

func detectOn(aligned []AlignedFlow, get func(AlignedFlow) *float64, up, down SwitchKind) (*Switch, bool) {
	var defined []float64
	for _, f := range aligned {
		if v := get(f); v != nil {
			defined = append(defined, *v)
		}
	}
	if len(defined) < 2 {
		return nil, false
	}

	prev := defined[len(defined)-2]
	last := defined[len(defined)-1]
	if prev <= 0 && last > 0 {
		return &Switch{Kind: up, Prev: prev, Last: last}, true
	}
	if prev >= 0 && last < 0 {
		return &Switch{Kind: down, Prev: prev, Last: last}, true
	}
	return nil, true
}
