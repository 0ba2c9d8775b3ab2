package finmind

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	datasetPrice         = "TaiwanStockPrice"
	datasetInstitutional = "TaiwanStockInstitutionalInvestorsBuySell"
	datasetStockInfo     = "TaiwanStockInfo"
	datasetPER           = "TaiwanStockPER"
	datasetFinancial     = "TaiwanStockFinancialStatements"

	dateLayout = "2006-01-02"
)

// Client 包裝 FinMind v4 開放資料 API。
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	Msg    string          `json:"msg"`
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (c *Client) fetch(ctx context.Context, dataset, dataID string, start, end time.Time, out any) error {
	params := url.Values{}
	params.Set("dataset", dataset)
	if dataID != "" {
		params.Set("data_id", dataID)
	}
	if !start.IsZero() {
		params.Set("start_date", start.Format(dateLayout))
	}
	if !end.IsZero() {
		params.Set("end_date", end.Format(dateLayout))
	}
	if c.token != "" {
		params.Set("token", c.token)
	}

	fullURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("finmind api error (status %d): %s", resp.StatusCode, string(body))
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode finmind response: %w", err)
	}
	if envelope.Status != 0 && envelope.Status != http.StatusOK {
		return fmt.Errorf("finmind api error: %s (status %d)", envelope.Msg, envelope.Status)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}

// PriceRow 對應 TaiwanStockPrice 一筆日 K。
type PriceRow struct {
	Date          string  `json:"date"`
	StockID       string  `json:"stock_id"`
	TradingVolume int64   `json:"Trading_Volume"`
	TradingMoney  int64   `json:"Trading_money"`
	Open          float64 `json:"open"`
	Max           float64 `json:"max"`
	Min           float64 `json:"min"`
	Close         float64 `json:"close"`
	Spread        float64 `json:"spread"`
}

func (c *Client) DailyPrices(ctx context.Context, stockID string, start, end time.Time) ([]PriceRow, error) {
	var rows []PriceRow
	if err := c.fetch(ctx, datasetPrice, stockID, start, end, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// InstitutionalRow 對應三大法人買賣超，單位為股。
type InstitutionalRow struct {
	Date    string `json:"date"`
	StockID string `json:"stock_id"`
	Name    string `json:"name"`
	Buy     int64  `json:"buy"`
	Sell    int64  `json:"sell"`
}

func (c *Client) InstitutionalFlows(ctx context.Context, stockID string, start, end time.Time) ([]InstitutionalRow, error) {
	var rows []InstitutionalRow
	if err := c.fetch(ctx, datasetInstitutional, stockID, start, end, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// StockInfoRow 對應上市/上櫃股票基本資料。
type StockInfoRow struct {
	StockID          string `json:"stock_id"`
	StockName        string `json:"stock_name"`
	IndustryCategory string `json:"industry_category"`
	Type             string `json:"type"` // twse / tpex
}

func (c *Client) StockInfo(ctx context.Context) ([]StockInfoRow, error) {
	var rows []StockInfoRow
	if err := c.fetch(ctx, datasetStockInfo, "", time.Time{}, time.Time{}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// PERRow 對應本益比/股價淨值比/殖利率資料。
type PERRow struct {
	Date          string  `json:"date"`
	StockID       string  `json:"stock_id"`
	PER           float64 `json:"PER"`
	PBR           float64 `json:"PBR"`
	DividendYield float64 `json:"dividend_yield"`
}

func (c *Client) Valuations(ctx context.Context, stockID string, start, end time.Time) ([]PERRow, error) {
	var rows []PERRow
	if err := c.fetch(ctx, datasetPER, stockID, start, end, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// FinancialRow 對應綜合損益表單一科目，type 如 EPS、Revenue。
type FinancialRow struct {
	Date    string  `json:"date"`
	StockID string  `json:"stock_id"`
	Type    string  `json:"type"`
	Value   float64 `json:"value"`
}

func (c *Client) FinancialStatements(ctx context.Context, stockID string, start, end time.Time) ([]FinancialRow, error) {
	var rows []FinancialRow
	if err := c.fetch(ctx, datasetFinancial, stockID, start, end, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
