package finmind

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stock-radar/internal/domain/dataingestion"
)

// fakeServer 依 dataset 參數回應固定 JSON。
func fakeServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dataset := r.URL.Query().Get("dataset")
		body, ok := responses[dataset]
		if !ok {
			http.Error(w, `{"msg":"unknown dataset","status":400}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestClient_DailyPrices(t *testing.T) {
	srv := fakeServer(t, map[string]string{
		datasetPrice: `{"msg":"success","status":200,"data":[
			{"date":"2025-06-30","stock_id":"2330","Trading_Volume":25000000,"Trading_money":26500000000,"open":1050,"max":1065,"min":1045,"close":1060,"spread":10}
		]}`,
	})
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", time.Second)
	rows, err := client.DailyPrices(context.Background(), "2330",
		time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DailyPrices error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Close != 1060 || rows[0].TradingVolume != 25000000 {
		t.Errorf("unexpected row: %+v", rows[0])
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"msg":"token invalid","status":402}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bad", time.Second)
	_, err := client.DailyPrices(context.Background(), "2330", time.Time{}, time.Time{})
	if err == nil {
		t.Fatal("expected error for non-200 api status")
	}
}

func TestAdapter_FetchDaily(t *testing.T) {
	srv := fakeServer(t, map[string]string{
		datasetStockInfo: `{"msg":"success","status":200,"data":[
			{"stock_id":"2330","stock_name":"台積電","industry_category":"半導體業","type":"twse"},
			{"stock_id":"8069","stock_name":"元太","industry_category":"光電業","type":"tpex"}
		]}`,
		datasetPrice: `{"msg":"success","status":200,"data":[
			{"date":"2025-06-30","stock_id":"2330","Trading_Volume":25000000,"Trading_money":26500000000,"open":1050,"max":1065,"min":1045,"close":1060,"spread":10}
		]}`,
	})
	defer srv.Close()

	adapter := NewAdapter(NewClient(srv.URL, "", time.Second))
	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	prices, err := adapter.FetchDaily(context.Background(), date, []string{"2330"}, nil)
	if err != nil {
		t.Fatalf("FetchDaily error: %v", err)
	}
	if len(prices) != 1 {
		t.Fatalf("expected 1 price, got %d", len(prices))
	}
	p := prices[0]
	if p.Symbol != "2330" || p.Market != dataingestion.MarketTWSE {
		t.Errorf("unexpected identity: %+v", p)
	}
	if p.Close != 1060 || p.High != 1065 || p.Low != 1045 || p.Change != 10 {
		t.Errorf("unexpected bar values: %+v", p)
	}
	// 漲跌幅以前收計算
	if p.ChangeRate < 0.0095 || p.ChangeRate > 0.0096 {
		t.Errorf("unexpected change rate: %f", p.ChangeRate)
	}
}

func TestAdapter_FetchDaily_MarketFilter(t *testing.T) {
	srv := fakeServer(t, map[string]string{
		datasetStockInfo: `{"msg":"success","status":200,"data":[
			{"stock_id":"8069","stock_name":"元太","industry_category":"光電業","type":"tpex"}
		]}`,
		datasetPrice: `{"msg":"success","status":200,"data":[]}`,
	})
	defer srv.Close()

	adapter := NewAdapter(NewClient(srv.URL, "", time.Second))
	twse := dataingestion.MarketTWSE
	prices, err := adapter.FetchDaily(context.Background(), time.Now(), []string{"8069"}, &twse)
	if err != nil {
		t.Fatalf("FetchDaily error: %v", err)
	}
	if len(prices) != 0 {
		t.Fatalf("expected tpex symbol filtered out, got %d", len(prices))
	}
}

func TestAdapter_ListBasicInfo(t *testing.T) {
	srv := fakeServer(t, map[string]string{
		datasetStockInfo: `{"msg":"success","status":200,"data":[
			{"stock_id":"2330","stock_name":"台積電","industry_category":"半導體業","type":"twse"},
			{"stock_id":"0050","stock_name":"元大台灣50","industry_category":"ETF","type":"twse"}
		]}`,
	})
	defer srv.Close()

	adapter := NewAdapter(NewClient(srv.URL, "", time.Second))
	infos, err := adapter.ListBasicInfo(context.Background(), []string{"2330"}, time.Now())
	if err != nil {
		t.Fatalf("ListBasicInfo error: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 info, got %d", len(infos))
	}
	if infos[0].Industry != "半導體業" {
		t.Errorf("unexpected industry: %s", infos[0].Industry)
	}
}

func TestAdapter_GetFundamentals(t *testing.T) {
	srv := fakeServer(t, map[string]string{
		datasetPER: `{"msg":"success","status":200,"data":[
			{"date":"2025-06-30","stock_id":"2330","PER":22.5,"PBR":5.1,"dividend_yield":1.5}
		]}`,
		datasetFinancial: `{"msg":"success","status":200,"data":[
			{"date":"2024-03-31","stock_id":"2330","type":"EPS","value":8.0},
			{"date":"2024-06-30","stock_id":"2330","type":"EPS","value":9.0},
			{"date":"2024-09-30","stock_id":"2330","type":"EPS","value":10.0},
			{"date":"2024-12-31","stock_id":"2330","type":"EPS","value":11.0},
			{"date":"2025-03-31","stock_id":"2330","type":"EPS","value":10.0}
		]}`,
	})
	defer srv.Close()

	adapter := NewAdapter(NewClient(srv.URL, "", time.Second))
	f, err := adapter.GetFundamentals(context.Background(), "2330")
	if err != nil {
		t.Fatalf("GetFundamentals error: %v", err)
	}
	if f.PE == nil || *f.PE != 22.5 {
		t.Fatalf("expected PE 22.5, got %v", f.PE)
	}
	if f.EPS == nil || *f.EPS != 10.0 {
		t.Fatalf("expected EPS 10.0, got %v", f.EPS)
	}
	// 2025Q1 對 2024Q1：(10-8)/8 = 0.25
	if f.EarningsGrowth == nil || *f.EarningsGrowth != 0.25 {
		t.Fatalf("expected growth 0.25, got %v", f.EarningsGrowth)
	}
	if f.PEG == nil || *f.PEG != 22.5/25 {
		t.Fatalf("expected PEG %.3f, got %v", 22.5/25, f.PEG)
	}
}

func TestAdapter_FetchFlows(t *testing.T) {
	srv := fakeServer(t, map[string]string{
		datasetInstitutional: `{"msg":"success","status":200,"data":[
			{"date":"2025-06-27","stock_id":"2330","name":"Foreign_Investor","buy":5000000,"sell":3000000},
			{"date":"2025-06-27","stock_id":"2330","name":"Investment_Trust","buy":900000,"sell":100000},
			{"date":"2025-06-30","stock_id":"2330","name":"Foreign_Investor","buy":2000000,"sell":4000000}
		]}`,
	})
	defer srv.Close()

	adapter := NewAdapter(NewClient(srv.URL, "", time.Second))
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	rows, err := adapter.FetchFlows(context.Background(), "2330", end, 30)
	if err != nil {
		t.Fatalf("FetchFlows error: %v", err)
	}
	// 只保留外資
	if len(rows) != 2 {
		t.Fatalf("expected 2 foreign rows, got %d", len(rows))
	}
	if rows[0].Buy != 5000000 || rows[1].Sell != 4000000 {
		t.Errorf("unexpected rows: %+v", rows)
	}
}
