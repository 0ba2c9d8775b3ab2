package httpapi

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"stock-radar/internal/application/alert"
	"stock-radar/internal/application/analysis"
	"stock-radar/internal/application/auth"
	chipApp "stock-radar/internal/application/chip"
	ingestApp "stock-radar/internal/application/dataingestion"
	"stock-radar/internal/application/reports"
	"stock-radar/internal/application/scan"
	watchlistApp "stock-radar/internal/application/watchlist"
	alertDomain "stock-radar/internal/domain/alert"
	authDomain "stock-radar/internal/domain/auth"
	dataDomain "stock-radar/internal/domain/dataingestion"
	"stock-radar/internal/infra/memory"
	authinfra "stock-radar/internal/infrastructure/auth"
	"stock-radar/internal/infrastructure/config"
	"stock-radar/internal/infrastructure/external/finmind"
	"stock-radar/internal/infrastructure/external/synthetic"
	"stock-radar/internal/infrastructure/notify"
	"stock-radar/internal/infrastructure/persistence/postgres"

	"github.com/gin-gonic/gin"
)

const (
	errCodeBadRequest         = "BAD_REQUEST"
	errCodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	errCodeUnauthorized       = "AUTH_UNAUTHORIZED"
	errCodeForbidden          = "AUTH_FORBIDDEN"
	errCodeAnalysisNotReady   = "ANALYSIS_NOT_READY"
	errCodeNotFound           = "NOT_FOUND"
	errCodeInternal           = "INTERNAL_ERROR"
	refreshCookieName         = "refresh_token"
)

// DataRepository 彙總行情與分析結果的讀寫需求，postgres.Repo 與
// memory.Store 都要能滿足。
type DataRepository interface {
	ingestApp.PriceRepository
	analysis.PriceHistoryProvider
	analysis.AnalysisRepository
	analysis.AnalysisQueryRepository
	chipApp.FlowRepository
	UpsertStock(ctx context.Context, symbol, name string, market dataDomain.Market, industry string) error
}

// SubscriptionStore 管理通知訂閱的增刪查。
type SubscriptionStore interface {
	Save(ctx context.Context, sub alertDomain.Subscription) error
	ListActive(ctx context.Context) ([]alertDomain.Subscription, error)
	Delete(ctx context.Context, id string) error
}

// memorySubscriptionAdapter 讓 memory.Store 相容 SubscriptionStore，
// 避免與自選股的 Save/Delete 方法名稱衝突。
type memorySubscriptionAdapter struct {
	store *memory.Store
}

func (m memorySubscriptionAdapter) Save(ctx context.Context, sub alertDomain.Subscription) error {
	return m.store.SaveSubscription(ctx, sub)
}

func (m memorySubscriptionAdapter) ListActive(ctx context.Context) ([]alertDomain.Subscription, error) {
	return m.store.ListActive(ctx)
}

func (m memorySubscriptionAdapter) Delete(ctx context.Context, id string) error {
	return m.store.DeleteSubscription(ctx, id)
}

// Server 封裝 HTTP 路由與依賴。
type Server struct {
	engine *gin.Engine
	store  *memory.Store
	db     *sql.DB

	loginUC  *auth.LoginUseCase
	logoutUC *auth.LogoutUseCase
	authz    *auth.Authorizer
	tokenSvc *authinfra.JWTIssuer

	dataRepo    DataRepository
	basicInfo   analysis.BasicInfoProvider
	ingestUC    *ingestApp.IngestUseCase
	analyzeUC   *analysis.AnalyzeUseCase
	queryUC     *analysis.QueryUseCase
	screenerUC  *analysis.ScreenerUseCase
	chipUC      *chipApp.IngestUseCase
	scanUC      *scan.UseCase
	watchlistUC *watchlistApp.UseCase
	reportsUC   *reports.UseCase
	alertEngine *alert.Engine
	subsStore   SubscriptionStore

	scanWorker   *scan.BackgroundWorker
	lookbackDays int
	dataSource   string
}

// NewServer 建立 API 伺服器。db 為 nil 時使用記憶體存儲與模擬資料來源，
// 否則走 PostgreSQL 與 FinMind。
func NewServer(cfg config.Config, pool *sql.DB) *Server {
	store := memory.NewStore()
	store.SeedUsers()

	var dataRepo DataRepository
	var authRepo auth.UserRepository
	var sessions authDomain.SessionStore
	var watchRepo watchlistApp.Repository
	var subsStore SubscriptionStore
	var healthChecker alert.SystemHealthChecker

	if pool != nil {
		authPg := postgres.NewAuthRepo(pool)
		seedCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := seedAuth(seedCtx, authPg); err != nil {
			log.Printf("warning: seed auth failed: %v", err)
		}
		cancel()
		dataRepo = postgres.NewRepo(pool)
		authRepo = authPg
		sessions = authPg
		watchRepo = postgres.NewWatchlistRepo(pool)
		subsStore = postgres.NewSubscriptionRepo(pool)
		healthChecker = postgres.NewHealthRepo(pool)
	} else {
		dataRepo = store
		authRepo = store
		sessions = store
		watchRepo = store
		subsStore = memorySubscriptionAdapter{store: store}
	}

	var (
		priceSource  ingestApp.PriceSource
		basicInfo    analysis.BasicInfoProvider
		fundamentals analysis.FundamentalsProvider
		chipFlows    analysis.ChipFlowProvider
		flowSource   chipApp.FlowSource
		dataSource   string
	)
	if cfg.Ingestion.UseSynthetic || cfg.FinMind.Token == "" {
		src := synthetic.NewSource()
		priceSource, basicInfo, fundamentals, chipFlows, flowSource = src, src, src, src, src
		dataSource = "synthetic"
	} else {
		adapter := finmind.NewAdapter(finmind.NewClient(cfg.FinMind.BaseURL, cfg.FinMind.Token, cfg.FinMind.Timeout))
		priceSource, basicInfo, fundamentals, chipFlows, flowSource = adapter, adapter, adapter, adapter, adapter
		dataSource = "finmind"
	}

	accessTTL := cfg.Auth.TokenTTL
	if accessTTL == 0 {
		accessTTL = 30 * time.Minute
	}
	refreshTTL := cfg.Auth.RefreshTTL
	if refreshTTL == 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	tokenSvc := authinfra.NewJWTIssuer(cfg.Auth.Secret, accessTTL, refreshTTL, sessions, authRepo)

	queryUC := analysis.NewQueryUseCase(dataRepo)
	screenerUC := analysis.NewScreenerUseCase(dataRepo)
	chipUC := chipApp.NewIngestUseCase(flowSource, dataRepo, dataRepo)
	scanUC := scan.NewUseCase(basicInfo, dataRepo, fundamentals)

	var notifier *notify.Dispatcher
	if cfg.Notifier.Telegram.Enabled && cfg.Notifier.Telegram.Token != "" {
		notifier = notify.NewDispatcher(notify.NewTelegramClient(cfg.Notifier.Telegram.Token, cfg.Notifier.Telegram.ChatID, "[StockRadar]"))
	}

	var alertNotifier alert.Notifier
	var scanNotifier scan.Notifier
	if notifier != nil {
		alertNotifier = notifier
		scanNotifier = notifier
	}

	s := &Server{
		store:        store,
		db:           pool,
		loginUC:      auth.NewLoginUseCase(authRepo, authinfra.BcryptHasher{}, tokenSvc),
		logoutUC:     auth.NewLogoutUseCase(tokenSvc),
		authz:        auth.NewAuthorizer(authRepo, memory.OwnerChecker{}),
		tokenSvc:     tokenSvc,
		dataRepo:     dataRepo,
		basicInfo:    basicInfo,
		ingestUC:     ingestApp.NewIngestUseCase(priceSource, dataRepo),
		analyzeUC:    analysis.NewAnalyzeUseCase(basicInfo, dataRepo, fundamentals, chipFlows, dataRepo),
		queryUC:      queryUC,
		screenerUC:   screenerUC,
		chipUC:       chipUC,
		scanUC:       scanUC,
		watchlistUC:  watchlistApp.NewUseCase(watchRepo, queryUC),
		reportsUC:    reports.NewUseCase(queryUC, dataRepo, chipFlows, healthChecker),
		alertEngine:  alert.NewEngine(subsStore, screenerUC, queryUC, chipUC, healthChecker, alertNotifier),
		subsStore:    subsStore,
		lookbackDays: cfg.Ingestion.LookbackDays,
		dataSource:   dataSource,
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.ginLogger(), corsMiddleware())
	s.registerRoutes()

	if cfg.Scan.Enabled {
		s.scanWorker = scan.NewBackgroundWorker(scanUC, scanNotifier, cfg.Scan.Interval).WithIngester(s.ingestUC)
		s.scanWorker.Start()
	}
	return s
}

// Handler 回傳路由處理器，供 HTTP server 掛載。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store 主要用於測試注入初始資料。
func (s *Server) Store() *memory.Store {
	return s.store
}

// Close 停止背景工作。
func (s *Server) Close() {
	if s.scanWorker != nil {
		s.scanWorker.Stop()
	}
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	api.GET("/ping", s.handlePing)
	api.GET("/health", s.handleHealth)

	api.POST("/auth/login", s.handleLogin)
	api.POST("/auth/refresh", s.handleRefresh)
	api.POST("/auth/logout", s.handleLogout)

	admin := api.Group("/admin")
	admin.POST("/ingestion/daily", s.requireAuth(auth.PermIngestionTrigger), s.handleIngestionDaily)
	admin.POST("/ingestion/backfill", s.requireAuth(auth.PermIngestionTrigger), s.handleIngestionBackfill)
	admin.POST("/analysis/daily", s.requireAuth(auth.PermAnalysisTrigger), s.handleAnalysisDaily)
	admin.POST("/chip/daily", s.requireAuth(auth.PermChipTrigger), s.handleChipDaily)
	admin.POST("/alerts/run", s.requireAuth(auth.PermInternalOps), s.handleAlertsRun)

	api.GET("/analysis/daily", s.requireAuth(auth.PermAnalysisQuery), s.handleAnalysisQuery)
	api.GET("/analysis/history", s.requireAuth(auth.PermAnalysisQuery), s.handleAnalysisHistory)
	api.GET("/analysis/detail", s.requireAuth(auth.PermAnalysisQuery), s.handleAnalysisDetail)
	api.GET("/analysis/export", s.requireAuth(auth.PermAnalysisQuery), s.handleAnalysisExport)

	api.POST("/screener/run", s.requireAuth(auth.PermScreenerUse), s.handleScreenerRun)
	api.GET("/screener/presets", s.requireAuth(auth.PermScreenerUse), s.handleScreenerPresets)
	api.POST("/screener/presets/:id/run", s.requireAuth(auth.PermScreenerUse), s.handleScreenerPresetRun)

	api.GET("/chip/:symbol/events", s.requireAuth(auth.PermAnalysisQuery), s.handleChipEvents)

	api.POST("/scan/run", s.requireAuth(auth.PermScanRun), s.handleScanRun)
	api.GET("/scan/crossover", s.requireAuth(auth.PermScanRun), s.handleScanCrossover)

	api.GET("/watchlist", s.requireAuth(auth.PermWatchlistWrite), s.handleWatchlistList)
	api.POST("/watchlist", s.requireAuth(auth.PermWatchlistWrite), s.handleWatchlistAdd)
	api.DELETE("/watchlist/:symbol", s.requireAuth(auth.PermWatchlistWrite), s.handleWatchlistDelete)
	api.POST("/watchlist/import-scan", s.requireAuth(auth.PermWatchlistWrite), s.handleWatchlistImportScan)

	api.GET("/reports/market", s.requireAuth(auth.PermReportsView), s.handleReportMarket)
	api.GET("/reports/industry", s.requireAuth(auth.PermReportsView), s.handleReportIndustry)
	api.GET("/reports/stock/:symbol", s.requireAuth(auth.PermReportsView), s.handleReportStock)
	api.GET("/reports/executive/:symbol", s.requireAuth(auth.PermReportsView), s.handleReportExecutive)
	api.GET("/reports/health", s.requireAuth(auth.PermSystemHealth), s.handleReportHealth)
	api.GET("/reports/export", s.requireAuth(auth.PermReportsView), s.handleReportExport)

	api.GET("/subscriptions", s.requireAuth(auth.PermSubscriptionWrite), s.handleSubscriptionList)
	api.POST("/subscriptions", s.requireAuth(auth.PermSubscriptionWrite), s.handleSubscriptionCreate)
	api.DELETE("/subscriptions/:id", s.requireAuth(auth.PermSubscriptionWrite), s.handleSubscriptionDelete)
}
