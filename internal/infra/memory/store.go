package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"stock-radar/internal/application/analysis"
	chipApp "stock-radar/internal/application/chip"
	alertDomain "stock-radar/internal/domain/alert"
	analysisDomain "stock-radar/internal/domain/analysis"
	authDomain "stock-radar/internal/domain/auth"
	chipDomain "stock-radar/internal/domain/chip"
	dataDomain "stock-radar/internal/domain/dataingestion"
	"stock-radar/internal/domain/watchlist"
	authinfra "stock-radar/internal/infrastructure/auth"
)

const dateKeyLayout = "2006-01-02"

// Store 為無資料庫模式使用的記憶體資料庫。
type Store struct {
	mu              sync.RWMutex
	users           map[string]authDomain.User
	passwords       map[string]string
	tokens          map[string]tokenRecord
	sessions        map[string]sessionRecord
	stocks          map[string]stockRecord
	dailyPrices     map[string]map[string]dataDomain.DailyPrice              // symbol -> date -> price
	analysisResults map[string]map[string]analysisDomain.DailyAnalysisResult // date -> symbol -> result
	chipFlows       map[string]map[string]chipDomain.NetFlow                 // symbol -> date -> flow
	switchEvents    map[string][]chipApp.SwitchEvent
	watchlists      map[string]map[string]watchlist.Item // userID -> symbol -> item
	subscriptions   map[string]alertDomain.Subscription
	idSeq           int64
}

type tokenRecord struct {
	UserID  string
	Expires time.Time
}

type sessionRecord struct {
	UserID    string
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent string
	IPAddress string
	CreatedAt time.Time
}

type stockRecord struct {
	Symbol   string
	Market   dataDomain.Market
	Name     string
	Industry string
}

// NewStore 建立新的記憶體 Store 實例。
func NewStore() *Store {
	return &Store{
		users:           make(map[string]authDomain.User),
		passwords:       make(map[string]string),
		tokens:          make(map[string]tokenRecord),
		sessions:        make(map[string]sessionRecord),
		stocks:          make(map[string]stockRecord),
		dailyPrices:     make(map[string]map[string]dataDomain.DailyPrice),
		analysisResults: make(map[string]map[string]analysisDomain.DailyAnalysisResult),
		chipFlows:       make(map[string]map[string]chipDomain.NetFlow),
		switchEvents:    make(map[string][]chipApp.SwitchEvent),
		watchlists:      make(map[string]map[string]watchlist.Item),
		subscriptions:   make(map[string]alertDomain.Subscription),
	}
}

func (s *Store) nextID() string {
	s.idSeq++
	return fmt.Sprintf("id-%d", s.idSeq)
}

// SeedUsers 建立預設帳號供登入測試。
func (s *Store) SeedUsers() {
	hash := func(p string) string {
		h, err := authinfra.HashPassword(p)
		if err != nil {
			return p
		}
		return h
	}
	s.addUser("admin@example.com", hash("password123"), "Admin", authDomain.RoleAdmin)
	s.addUser("analyst@example.com", hash("password123"), "Analyst", authDomain.RoleAnalyst)
	s.addUser("user@example.com", hash("password123"), "User", authDomain.RoleUser)
}

func (s *Store) addUser(email, password, name string, role authDomain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID()
	user := authDomain.User{
		ID:           id,
		Email:        email,
		Name:         name,
		Role:         role,
		Status:       authDomain.StatusActive,
		PasswordHash: password,
	}
	s.users[id] = user
	s.passwords[email] = password
}

// FindByEmail 依 email 查詢使用者。
func (s *Store) FindByEmail(ctx context.Context, email string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return authDomain.User{}, fmt.Errorf("user not found")
}

// FindByID 依 ID 查詢使用者。
func (s *Store) FindByID(ctx context.Context, id string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return authDomain.User{}, fmt.Errorf("user not found")
	}
	return u, nil
}

// MemoryTokenIssuer 為簡易的記憶體版 token 簽發器。
type MemoryTokenIssuer struct {
	store *Store
	ttl   time.Duration
}

func NewMemoryTokenIssuer(store *Store, ttl time.Duration) *MemoryTokenIssuer {
	return &MemoryTokenIssuer{store: store, ttl: ttl}
}

func (m *MemoryTokenIssuer) Issue(ctx context.Context, user authDomain.User) (authDomain.TokenPair, error) {
	token := fmt.Sprintf("token-%s-%d", user.ID, time.Now().UnixNano())
	m.store.mu.Lock()
	m.store.tokens[token] = tokenRecord{
		UserID:  user.ID,
		Expires: time.Now().Add(m.ttl),
	}
	m.store.mu.Unlock()
	return authDomain.TokenPair{
		AccessToken:   token,
		RefreshToken:  token,
		AccessExpiry:  time.Now().Add(m.ttl),
		RefreshExpiry: time.Now().Add(m.ttl),
	}, nil
}

func (m *MemoryTokenIssuer) RevokeRefresh(ctx context.Context, token string) error {
	return nil
}

// ValidateToken 驗證 access token 並回傳對應使用者。
func (s *Store) ValidateToken(token string) (authDomain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.tokens[token]
	if !ok || time.Now().After(rec.Expires) {
		return authDomain.User{}, false
	}
	u, ok := s.users[rec.UserID]
	return u, ok
}

// OwnerChecker 以 userID 比對資源擁有者。
type OwnerChecker struct{}

func (OwnerChecker) IsOwner(ctx context.Context, userID, resourceID string) bool {
	return userID == resourceID
}

// SaveSession 實作 SessionStore。
func (s *Store) SaveSession(ctx context.Context, sess authDomain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sessionRecord{
		UserID:    sess.UserID,
		ExpiresAt: sess.ExpiresAt,
		RevokedAt: sess.RevokedAt,
		UserAgent: sess.UserAgent,
		IPAddress: sess.IPAddress,
		CreatedAt: sess.CreatedAt,
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (authDomain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[token]
	if !ok {
		return authDomain.Session{}, fmt.Errorf("session not found")
	}
	return authDomain.Session{
		Token:     token,
		UserID:    rec.UserID,
		ExpiresAt: rec.ExpiresAt,
		RevokedAt: rec.RevokedAt,
		UserAgent: rec.UserAgent,
		IPAddress: rec.IPAddress,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *Store) RevokeSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[token]
	if !ok {
		return fmt.Errorf("session not found")
	}
	now := time.Now()
	rec.RevokedAt = &now
	s.sessions[token] = rec
	return nil
}

// UpsertStock 維護基本資料。
func (s *Store) UpsertStock(ctx context.Context, symbol, name string, market dataDomain.Market, industry string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks[symbol] = stockRecord{Symbol: symbol, Market: market, Name: name, Industry: industry}
	return nil
}

// ListBasicInfo 實作 analysis.BasicInfoProvider。
func (s *Store) ListBasicInfo(ctx context.Context, symbols []string, _ time.Time) ([]analysis.BasicInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(symbols) == 0 {
		for symbol := range s.stocks {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
	}
	var out []analysis.BasicInfo
	for _, symbol := range symbols {
		rec, ok := s.stocks[symbol]
		if !ok {
			continue
		}
		out = append(out, analysis.BasicInfo{Symbol: rec.Symbol, Market: rec.Market, Industry: rec.Industry})
	}
	return out, nil
}

// UpsertDailyPrice 實作 dataingestion.PriceRepository。
func (s *Store) UpsertDailyPrice(ctx context.Context, price dataDomain.DailyPrice, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dateKey := price.TradeDate.Format(dateKeyLayout)
	if _, ok := s.dailyPrices[price.Symbol]; !ok {
		s.dailyPrices[price.Symbol] = make(map[string]dataDomain.DailyPrice)
	}
	if _, exists := s.dailyPrices[price.Symbol][dateKey]; exists && !replace {
		return nil
	}
	s.dailyPrices[price.Symbol][dateKey] = price
	return nil
}

// GetHistory 實作 analysis.PriceHistoryProvider，回傳日期遞增序列。
func (s *Store) GetHistory(ctx context.Context, symbol string, endDate time.Time, lookback int) ([]dataDomain.DailyPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []dataDomain.DailyPrice
	for _, p := range s.dailyPrices[symbol] {
		if p.TradeDate.After(endDate) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TradeDate.Before(out[j].TradeDate)
	})
	if lookback > 0 && len(out) > lookback {
		out = out[len(out)-lookback:]
	}
	return out, nil
}

// SaveDailyResult 實作 analysis.AnalysisRepository。
func (s *Store) SaveDailyResult(ctx context.Context, res analysisDomain.DailyAnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dateKey := res.TradeDate.Format(dateKeyLayout)
	if _, ok := s.analysisResults[dateKey]; !ok {
		s.analysisResults[dateKey] = make(map[string]analysisDomain.DailyAnalysisResult)
	}
	s.analysisResults[dateKey][res.Symbol] = res
	return nil
}

// FindByDate 依交易日期查詢分析結果，完整套用過濾、排序與分頁。
func (s *Store) FindByDate(ctx context.Context, date time.Time, filter analysis.QueryFilter, sortOpt analysis.SortOption, pagination analysis.Pagination) ([]analysisDomain.DailyAnalysisResult, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dateKey := date.Format(dateKeyLayout)
	var list []analysisDomain.DailyAnalysisResult
	for _, r := range s.analysisResults[dateKey] {
		if matchesFilter(r, filter) {
			list = append(list, r)
		}
	}
	sortResults(list, sortOpt)

	total := len(list)
	if pagination.Offset > total {
		return []analysisDomain.DailyAnalysisResult{}, total, nil
	}
	end := pagination.Offset + pagination.Limit
	if end > total || pagination.Limit <= 0 {
		end = total
	}
	return list[pagination.Offset:end], total, nil
}

// FindHistory 依股票代碼與日期區間查詢歷史分析結果（日期遞增）。
func (s *Store) FindHistory(ctx context.Context, symbol string, from, to *time.Time, limit int, onlySuccess bool) ([]analysisDomain.DailyAnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []analysisDomain.DailyAnalysisResult
	for _, day := range s.analysisResults {
		for _, r := range day {
			if r.Symbol != symbol {
				continue
			}
			if onlySuccess && !r.Success {
				continue
			}
			if from != nil && r.TradeDate.Before(*from) {
				continue
			}
			if to != nil && r.TradeDate.After(*to) {
				continue
			}
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].TradeDate.Before(all[j].TradeDate)
	})
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// Get 取得指定日期、指定股票的分析結果。
func (s *Store) Get(ctx context.Context, symbol string, date time.Time) (analysisDomain.DailyAnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day := s.analysisResults[date.Format(dateKeyLayout)]
	if r, ok := day[symbol]; ok {
		return r, nil
	}
	return analysisDomain.DailyAnalysisResult{}, fmt.Errorf("not found")
}

// SaveNetFlows 實作 chip.FlowRepository。
func (s *Store) SaveNetFlows(ctx context.Context, symbol string, flows []chipDomain.NetFlow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chipFlows[symbol]; !ok {
		s.chipFlows[symbol] = make(map[string]chipDomain.NetFlow)
	}
	for _, flow := range flows {
		s.chipFlows[symbol][flow.Date.Format(dateKeyLayout)] = flow
	}
	return nil
}

// NetFlows 回傳單檔法人淨流量，日期遞增。
func (s *Store) NetFlows(ctx context.Context, symbol string) ([]chipDomain.NetFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []chipDomain.NetFlow
	for _, flow := range s.chipFlows[symbol] {
		out = append(out, flow)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// SwitchEvents 取單檔轉向事件，新到舊。
func (s *Store) SwitchEvents(ctx context.Context, symbol string) ([]chipApp.SwitchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.switchEvents[symbol]
	out := make([]chipApp.SwitchEvent, len(events))
	copy(out, events)
	return out, nil
}

// SaveSwitchEvents 全量覆寫單檔事件歷史。
func (s *Store) SaveSwitchEvents(ctx context.Context, symbol string, events []chipApp.SwitchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]chipApp.SwitchEvent, len(events))
	copy(copied, events)
	s.switchEvents[symbol] = copied
	return nil
}

// List 實作 watchlist.Repository。
func (s *Store) List(ctx context.Context, userID string) ([]watchlist.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []watchlist.Item
	for _, item := range s.watchlists[userID] {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AddedAt.After(out[j].AddedAt)
	})
	return out, nil
}

// Save 寫入或更新自選股。
func (s *Store) Save(ctx context.Context, item watchlist.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = s.nextID()
	}
	if _, ok := s.watchlists[item.UserID]; !ok {
		s.watchlists[item.UserID] = make(map[string]watchlist.Item)
	}
	s.watchlists[item.UserID][item.Symbol] = item
	return nil
}

// Delete 移除自選股。
func (s *Store) Delete(ctx context.Context, userID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchlists[userID], symbol)
	return nil
}

// SaveSubscription 寫入或更新警報訂閱。
func (s *Store) SaveSubscription(ctx context.Context, sub alertDomain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.ID] = sub
	return nil
}

// ListActive 實作 alert.SubscriptionRepository。
func (s *Store) ListActive(ctx context.Context) ([]alertDomain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []alertDomain.Subscription
	for _, sub := range s.subscriptions {
		if sub.Enabled {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteSubscription 移除警報訂閱。
func (s *Store) DeleteSubscription(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, id)
	return nil
}

// HasAnalysisForDate 回傳指定交易日是否已有分析結果。
func (s *Store) HasAnalysisForDate(date time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.analysisResults[date.Format(dateKeyLayout)]) > 0
}

// LatestAnalysisDate 回傳最新的分析日期。
func (s *Store) LatestAnalysisDate() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest time.Time
	for dateKey := range s.analysisResults {
		d, err := time.Parse(dateKeyLayout, dateKey)
		if err != nil {
			continue
		}
		if d.After(latest) {
			latest = d
		}
	}
	if latest.IsZero() {
		return time.Time{}, false
	}
	return latest, true
}

func matchesFilter(r analysisDomain.DailyAnalysisResult, filter analysis.QueryFilter) bool {
	if filter.OnlySuccess && !r.Success {
		return false
	}
	if len(filter.Markets) > 0 && !containsMarket(filter.Markets, r.Market) {
		return false
	}
	if len(filter.Industries) > 0 && !containsString(filter.Industries, r.Industry) {
		return false
	}
	if len(filter.Symbols) > 0 && !containsString(filter.Symbols, r.Symbol) {
		return false
	}
	if len(filter.Regimes) > 0 && !containsString(filter.Regimes, string(r.Decision.Regime)) {
		return false
	}
	if len(filter.Modes) > 0 && !containsString(filter.Modes, string(r.Decision.Mode)) {
		return false
	}
	if len(filter.Signals) > 0 && !containsString(filter.Signals, r.Decision.Signal()) {
		return false
	}
	if filter.CompositeScoreMin != nil && r.CompositeScore < *filter.CompositeScoreMin {
		return false
	}
	if filter.CompositeScoreMax != nil && r.CompositeScore > *filter.CompositeScoreMax {
		return false
	}
	if filter.ConfidenceMin != nil && r.Decision.Confidence < *filter.ConfidenceMin {
		return false
	}
	if filter.ChipNetBuyMin != nil {
		if r.ChipNetBuy == nil || *r.ChipNetBuy < *filter.ChipNetBuyMin {
			return false
		}
	}
	if len(filter.TagsAny) > 0 && !hasAnyTag(r.Tags, filter.TagsAny) {
		return false
	}
	if len(filter.TagsAll) > 0 && !hasAllTags(r.Tags, filter.TagsAll) {
		return false
	}
	return true
}

func sortResults(list []analysisDomain.DailyAnalysisResult, opt analysis.SortOption) {
	value := func(r analysisDomain.DailyAnalysisResult) float64 {
		switch opt.Field {
		case analysis.SortConfidence:
			return float64(r.Decision.Confidence)
		case analysis.SortChangeRate:
			return r.ChangeRate
		case analysis.SortChipNetBuy:
			if r.ChipNetBuy == nil {
				return 0
			}
			return *r.ChipNetBuy
		default:
			return r.CompositeScore
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		vi, vj := value(list[i]), value(list[j])
		if vi == vj {
			return list[i].Symbol < list[j].Symbol
		}
		if opt.Desc {
			return vi > vj
		}
		return vi < vj
	})
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func containsMarket(values []dataDomain.Market, target dataDomain.Market) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func hasAnyTag(tags, wanted []analysisDomain.Tag) bool {
	for _, w := range wanted {
		for _, t := range tags {
			if t == w {
				return true
			}
		}
	}
	return false
}

func hasAllTags(tags, wanted []analysisDomain.Tag) bool {
	for _, w := range wanted {
		found := false
		for _, t := range tags {
			if t == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
