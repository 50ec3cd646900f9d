// Package server exposes the HTTP and websocket surface of the trading
// service.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/analysis"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/interfaces"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/persistence"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/registry"
	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

const defaultTradeLimit = 50

type Server struct {
	registry *registry.Registry
	repo     persistence.Repository
	analysis *analysis.Service
	broker   interfaces.Broker
	hub      *Hub
	mode     string
	version  string
}

func New(reg *registry.Registry, repo persistence.Repository, svc *analysis.Service, broker interfaces.Broker, hub *Hub, mode, version string) *Server {
	return &Server{
		registry: reg,
		repo:     repo,
		analysis: svc,
		broker:   broker,
		hub:      hub,
		mode:     mode,
		version:  version,
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/", s.handleInfo)
		api.GET("/markets", s.handleMarkets)
		api.POST("/accounts/verify", s.handleVerifyAccount)

		bots := api.Group("/bots")
		{
			bots.POST("", s.handleCreateBot)
			bots.GET("", s.handleListBots)
			bots.GET("/:id", s.handleGetBot)
			bots.DELETE("/:id", s.handleDeleteBot)
			bots.POST("/:id/start", s.handleStartBot)
			bots.POST("/:id/stop", s.handleStopBot)
			bots.POST("/:id/restart", s.handleRestartBot)
			bots.GET("/:id/status", s.handleBotStatus)
			bots.GET("/:id/trades", s.handleBotTrades)
			bots.GET("/:id/recovery", s.handleBotRecovery)
		}

		api.GET("/ticks/:symbol", s.handleTicks)
		api.GET("/analysis/:symbol", s.handleAnalysis)
		api.GET("/ws", s.hub.handleWebSocket)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var (
		status int
		kind   string
	)
	switch {
	case errors.Is(err, types.ErrUnknownBot):
		status, kind = http.StatusNotFound, "unknown_bot"
	case errors.Is(err, types.ErrInvalidConfiguration):
		status, kind = http.StatusUnprocessableEntity, "invalid_configuration"
	case errors.Is(err, registry.ErrNeedsAcknowledge):
		status, kind = http.StatusUnprocessableEntity, "needs_acknowledge"
	case errors.Is(err, registry.ErrAlreadyRunning):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, types.ErrInvalidToken):
		status, kind = http.StatusUnprocessableEntity, "invalid_token"
	case errors.Is(err, types.ErrInsufficientFunds):
		status, kind = http.StatusUnprocessableEntity, "insufficient_funds"
	case errors.Is(err, types.ErrStorage):
		status, kind = http.StatusInternalServerError, "storage"
	case errors.Is(err, types.ErrBrokerUnavailable), errors.Is(err, types.ErrMarketClosed):
		status, kind = http.StatusInternalServerError, "broker"
	default:
		status, kind = http.StatusInternalServerError, "internal"
	}

	var body errorBody
	body.Error.Kind = kind
	body.Error.Message = err.Error()
	c.JSON(status, body)
}

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Wakhungu28Ai",
		"version": s.version,
		"mode":    s.mode,
		"status":  "running",
	})
}

func (s *Server) handleMarkets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"markets": types.Markets})
}

func (s *Server) handleVerifyAccount(c *gin.Context) {
	var req struct {
		APIToken string `json:"api_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.APIToken == "" {
		writeError(c, errors.Join(types.ErrInvalidConfiguration, errors.New("api_token is required")))
		return
	}

	account, err := s.broker.Authorize(c.Request.Context(), req.APIToken)
	if err != nil {
		writeError(c, err)
		return
	}
	accounts, err := s.broker.Accounts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "accounts": accounts})
}

type createBotRequest struct {
	Name                  string          `json:"name"`
	APIToken              string          `json:"api_token"`
	Symbol                string          `json:"symbol"`
	BaseStake             decimal.Decimal `json:"base_stake"`
	MartingaleMultiplier  decimal.Decimal `json:"martingale_multiplier"`
	MaxMartingaleSteps    int             `json:"max_martingale_steps"`
	RepeatAttemptsPerStep int             `json:"repeat_attempts_per_step"`
	TakeProfit            decimal.Decimal `json:"take_profit"`
	StopLoss              decimal.Decimal `json:"stop_loss"`
	TradeIntervalSeconds  int             `json:"trade_interval_seconds"`
	MinConfidence         float64         `json:"min_confidence"`
	DryRun                bool            `json:"dry_run"`
}

// botResponse is the public view of a bot: the API token never leaves
// the service.
type botResponse struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Symbol                string          `json:"symbol"`
	BaseStake             decimal.Decimal `json:"base_stake"`
	MartingaleMultiplier  decimal.Decimal `json:"martingale_multiplier"`
	MaxMartingaleSteps    int             `json:"max_martingale_steps"`
	RepeatAttemptsPerStep int             `json:"repeat_attempts_per_step"`
	TakeProfit            decimal.Decimal `json:"take_profit"`
	StopLoss              decimal.Decimal `json:"stop_loss"`
	TradeIntervalSeconds  int             `json:"trade_interval_seconds"`
	MinConfidence         float64         `json:"min_confidence"`
	DryRun                bool            `json:"dry_run"`
	CreatedAt             time.Time       `json:"created_at"`
}

func toBotResponse(spec *types.BotSpec) botResponse {
	return botResponse{
		ID:                    spec.ID,
		Name:                  spec.Name,
		Symbol:                spec.Symbol,
		BaseStake:             spec.BaseStake,
		MartingaleMultiplier:  spec.MartingaleMultiplier,
		MaxMartingaleSteps:    spec.MaxMartingaleSteps,
		RepeatAttemptsPerStep: spec.RepeatAttemptsPerStep,
		TakeProfit:            spec.TakeProfit,
		StopLoss:              spec.StopLoss,
		TradeIntervalSeconds:  int(spec.TradeInterval / time.Second),
		MinConfidence:         spec.MinConfidence,
		DryRun:                spec.DryRun,
		CreatedAt:             spec.CreatedAt,
	}
}

func (s *Server) handleCreateBot(c *gin.Context) {
	var req createBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Join(types.ErrInvalidConfiguration, err))
		return
	}

	spec := &types.BotSpec{
		Name:                  req.Name,
		APIToken:              req.APIToken,
		Symbol:                req.Symbol,
		BaseStake:             req.BaseStake,
		MartingaleMultiplier:  req.MartingaleMultiplier,
		MaxMartingaleSteps:    req.MaxMartingaleSteps,
		RepeatAttemptsPerStep: req.RepeatAttemptsPerStep,
		TakeProfit:            req.TakeProfit,
		StopLoss:              req.StopLoss,
		TradeInterval:         time.Duration(req.TradeIntervalSeconds) * time.Second,
		MinConfidence:         req.MinConfidence,
		DryRun:                req.DryRun,
	}

	created, err := s.registry.Create(c.Request.Context(), spec)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBotResponse(created))
}

func (s *Server) handleListBots(c *gin.Context) {
	bots, err := s.registry.List()
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]botResponse, 0, len(bots))
	for _, spec := range bots {
		out = append(out, toBotResponse(spec))
	}
	c.JSON(http.StatusOK, gin.H{"bots": out})
}

func (s *Server) handleGetBot(c *gin.Context) {
	spec, err := s.registry.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBotResponse(spec))
}

func (s *Server) handleDeleteBot(c *gin.Context) {
	if err := s.registry.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (s *Server) handleStartBot(c *gin.Context) {
	id := c.Param("id")
	if err := s.registry.Start(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"started": id})
}

func (s *Server) handleStopBot(c *gin.Context) {
	id := c.Param("id")
	if err := s.registry.Stop(id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopping": id})
}

func (s *Server) handleRestartBot(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		AcknowledgeReset bool `json:"acknowledge_reset"`
	}
	// A missing body means no acknowledgement.
	_ = c.ShouldBindJSON(&req)

	if err := s.registry.Restart(c.Request.Context(), id, req.AcknowledgeReset); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restarted": id})
}

func (s *Server) handleBotStatus(c *gin.Context) {
	status, err := s.registry.Status(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleBotTrades(c *gin.Context) {
	limit := defaultTradeLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	trades, err := s.registry.Trades(c.Param("id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if trades == nil {
		trades = []types.TradeRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleBotRecovery(c *gin.Context) {
	info, err := s.registry.RecoveryInfo(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleTicks(c *gin.Context) {
	symbol := c.Param("symbol")
	if !types.IsKnownSymbol(symbol) {
		writeError(c, errors.Join(types.ErrInvalidConfiguration, errors.New("unknown symbol "+symbol)))
		return
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	ticks, err := s.repo.RecentTicks(symbol, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if ticks == nil {
		ticks = []types.Tick{}
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "ticks": ticks})
}

func (s *Server) handleAnalysis(c *gin.Context) {
	symbol := c.Param("symbol")
	if !types.IsKnownSymbol(symbol) {
		writeError(c, errors.Join(types.ErrInvalidConfiguration, errors.New("unknown symbol "+symbol)))
		return
	}
	report, err := s.analysis.Report(c.Request.Context(), symbol)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
