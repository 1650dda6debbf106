package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/matcher"
	"github.com/eliteGoblin/focusd/web_mon/internal/usecase"
)

// Engine is the part of usecase.FocusEngine the control API drives.
type Engine interface {
	Snapshot() usecase.Snapshot
	Decision() domain.BlockingDecision
	SetBlocking(enabled bool) error
	EmergencyUnlock() error
	SetUnblockable(enabled bool) error
	SetCalendarEnabled(enabled bool) error

	StartPause(minutes int) error
	CancelPause()
	StartPomodoro() error
	SkipPomodoroPhase() error
	StopPomodoro() error
	SetPomodoroDurations(focusMinutes, breakMinutes int) error

	RuleSets() []domain.RuleSet
	CreateRuleSet(name string, urls []string) (domain.RuleSet, error)
	ImportRuleSets(sets []domain.RuleSet) ([]domain.RuleSet, error)
	DeleteRuleSet(id string) error
	SelectRuleSet(id string) error
	AddURLToActiveRuleSet(url string) error

	Schedules() []domain.Schedule
	AddSchedule(s domain.Schedule) (domain.Schedule, error)
	DeleteSchedule(id string) error
}

// MonitorStatus reports browser monitor health. Implementation: daemon.Monitor.
type MonitorStatus interface {
	Running() bool
	HasPermission() bool
}

// CalendarSyncer pulls meetings on demand. Implementation: daemon.CalendarSync.
type CalendarSyncer interface {
	Sync(ctx context.Context) error
}

// ControlDeps are the collaborators of the control API.
type ControlDeps struct {
	Engine   Engine
	Monitor  MonitorStatus
	Matcher  *matcher.Matcher
	Bridge   domain.AutomationBridge
	Browsers []domain.Browser
	Gatherer prometheus.Gatherer // nil disables /metrics
	Calendar CalendarSyncer      // nil when no calendar feed is configured
	// UnlockHash is an argon2id hash of the emergency passphrase.
	// Empty disables emergency unlock.
	UnlockHash string
}

const (
	// tabsTimeout bounds the tab listing scripts.
	tabsTimeout = 10 * time.Second
	// calendarSyncTimeout bounds the sync run when the calendar is enabled.
	calendarSyncTimeout = 10 * time.Second
)

// ControlServer is the loopback REST API of the running daemon.
type ControlServer struct {
	listener
	deps ControlDeps
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	usecase.Snapshot
	AutomationPermission bool `json:"automation_permission"`
	Monitoring           bool `json:"monitoring"`
}

// MatchResponse is the body of GET /match.
type MatchResponse struct {
	URL        string `json:"url"`
	Normalized string `json:"normalized"`
	Allowed    bool   `json:"allowed"`
	BlockPage  bool   `json:"block_page"`
	Blocking   bool   `json:"blocking"`
}

type toggleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type unlockRequest struct {
	Passphrase string `json:"passphrase" binding:"required"`
}

type pauseRequest struct {
	Minutes int `json:"minutes"`
}

type pomodoroSettingsRequest struct {
	FocusMinutes int `json:"focus_minutes"`
	BreakMinutes int `json:"break_minutes"`
}

type ruleSetRequest struct {
	Name string   `json:"name" binding:"required"`
	URLs []string `json:"urls"`
}

// importRuleSetsRequest mirrors the GET /rulesets body so an export can be
// posted back unchanged.
type importRuleSetsRequest struct {
	RuleSets []domain.RuleSet `json:"rule_sets" binding:"required"`
}

type selectRuleSetRequest struct {
	ID string `json:"id" binding:"required"`
}

type urlRequest struct {
	URL string `json:"url" binding:"required"`
}

// NewControlServer creates the control API on addr (host:port).
func NewControlServer(addr string, deps ControlDeps, logger *zap.Logger) *ControlServer {
	s := &ControlServer{deps: deps}
	s.listener = listener{
		name:    "control-api",
		addr:    addr,
		handler: s.routes(logger),
		logger:  logger,
	}
	return s
}

// Handler returns the HTTP handler (for testing).
func (s *ControlServer) Handler() http.Handler {
	return s.handler
}

func (s *ControlServer) routes(logger *zap.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	engine.GET("/status", s.status)
	engine.POST("/blocking", s.setBlocking)
	engine.POST("/unlock", s.unlock)
	engine.PUT("/strict", s.setStrict)
	engine.PUT("/calendar", s.setCalendar)

	engine.POST("/pause", s.startPause)
	engine.DELETE("/pause", s.cancelPause)

	pomodoro := engine.Group("/pomodoro")
	pomodoro.POST("/start", s.engineAction(s.deps.Engine.StartPomodoro))
	pomodoro.POST("/skip", s.engineAction(s.deps.Engine.SkipPomodoroPhase))
	pomodoro.POST("/stop", s.engineAction(s.deps.Engine.StopPomodoro))
	pomodoro.PUT("/settings", s.pomodoroSettings)

	rulesets := engine.Group("/rulesets")
	rulesets.GET("", s.listRuleSets)
	rulesets.POST("", s.createRuleSet)
	rulesets.POST("/import", s.importRuleSets)
	rulesets.PUT("/active", s.selectRuleSet)
	rulesets.POST("/active/urls", s.addURL)
	rulesets.DELETE("/:id", s.deleteRuleSet)

	schedules := engine.Group("/schedules")
	schedules.GET("", s.listSchedules)
	schedules.POST("", s.addSchedule)
	schedules.DELETE("/:id", s.deleteSchedule)

	engine.GET("/match", s.match)
	engine.GET("/tabs", s.tabs)

	if s.deps.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	engine.NoRoute(func(c *gin.Context) {
		writeError(c, newAPIError(http.StatusNotFound, "not_found", "no such endpoint"))
	})
	return engine
}

func (s *ControlServer) status(c *gin.Context) {
	resp := StatusResponse{Snapshot: s.deps.Engine.Snapshot()}
	if s.deps.Monitor != nil {
		resp.AutomationPermission = s.deps.Monitor.HasPermission()
		resp.Monitoring = s.deps.Monitor.Running()
	}
	c.JSON(http.StatusOK, resp)
}

// respondStatus answers a mutation with the fresh status.
func (s *ControlServer) respondStatus(c *gin.Context, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	s.status(c)
}

func (s *ControlServer) engineAction(fn func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.respondStatus(c, fn())
	}
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, badRequest("invalid_json", err.Error()))
		return false
	}
	return true
}

func (s *ControlServer) setBlocking(c *gin.Context) {
	var req toggleRequest
	if !bind(c, &req) {
		return
	}
	s.respondStatus(c, s.deps.Engine.SetBlocking(*req.Enabled))
}

func (s *ControlServer) setStrict(c *gin.Context) {
	var req toggleRequest
	if !bind(c, &req) {
		return
	}
	s.respondStatus(c, s.deps.Engine.SetUnblockable(*req.Enabled))
}

func (s *ControlServer) setCalendar(c *gin.Context) {
	var req toggleRequest
	if !bind(c, &req) {
		return
	}
	if *req.Enabled && s.deps.Calendar == nil {
		writeError(c, newAPIError(http.StatusConflict, "calendar_unavailable",
			"no calendar feed configured (set calendar.client_id and restart the daemon)"))
		return
	}
	if err := s.deps.Engine.SetCalendarEnabled(*req.Enabled); err != nil {
		writeError(c, err)
		return
	}

	// Pull meetings now instead of at the next sync tick. A failed sync
	// keeps the flag; the periodic sync retries.
	if *req.Enabled {
		ctx, cancel := context.WithTimeout(c.Request.Context(), calendarSyncTimeout)
		defer cancel()
		if err := s.deps.Calendar.Sync(ctx); err != nil {
			s.logger.Warn("calendar sync after enable failed", zap.Error(err))
		}
	}
	s.status(c)
}

func (s *ControlServer) unlock(c *gin.Context) {
	if s.deps.UnlockHash == "" {
		writeError(c, newAPIError(http.StatusForbidden, "unlock_disabled", "no emergency passphrase configured"))
		return
	}
	var req unlockRequest
	if !bind(c, &req) {
		return
	}

	match, err := comparePassphrase(req.Passphrase, s.deps.UnlockHash)
	if err != nil {
		writeError(c, err)
		return
	}
	if !match {
		writeError(c, newAPIError(http.StatusForbidden, "wrong_passphrase", "passphrase does not match"))
		return
	}
	s.respondStatus(c, s.deps.Engine.EmergencyUnlock())
}

// comparePassphrase recovers from the panics argon2 raises on malformed
// hash parameters.
func comparePassphrase(passphrase, hash string) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			match, err = false, errors.New("invalid unlock hash parameters")
		}
	}()
	return argon2id.ComparePasswordAndHash(passphrase, hash)
}

func (s *ControlServer) startPause(c *gin.Context) {
	var req pauseRequest
	if !bind(c, &req) {
		return
	}
	s.respondStatus(c, s.deps.Engine.StartPause(req.Minutes))
}

func (s *ControlServer) cancelPause(c *gin.Context) {
	s.deps.Engine.CancelPause()
	s.status(c)
}

func (s *ControlServer) pomodoroSettings(c *gin.Context) {
	var req pomodoroSettingsRequest
	if !bind(c, &req) {
		return
	}
	s.respondStatus(c, s.deps.Engine.SetPomodoroDurations(req.FocusMinutes, req.BreakMinutes))
}

func (s *ControlServer) listRuleSets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"rule_sets": s.deps.Engine.RuleSets(),
		"active_id": s.deps.Engine.Snapshot().ActiveRuleSetID,
	})
}

func (s *ControlServer) createRuleSet(c *gin.Context) {
	var req ruleSetRequest
	if !bind(c, &req) {
		return
	}
	rs, err := s.deps.Engine.CreateRuleSet(req.Name, req.URLs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rs)
}

func (s *ControlServer) importRuleSets(c *gin.Context) {
	var req importRuleSetsRequest
	if !bind(c, &req) {
		return
	}
	imported, err := s.deps.Engine.ImportRuleSets(req.RuleSets)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule_sets": imported})
}

func (s *ControlServer) deleteRuleSet(c *gin.Context) {
	if err := s.deps.Engine.DeleteRuleSet(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *ControlServer) selectRuleSet(c *gin.Context) {
	var req selectRuleSetRequest
	if !bind(c, &req) {
		return
	}
	s.respondStatus(c, s.deps.Engine.SelectRuleSet(req.ID))
}

func (s *ControlServer) addURL(c *gin.Context) {
	var req urlRequest
	if !bind(c, &req) {
		return
	}
	s.respondStatus(c, s.deps.Engine.AddURLToActiveRuleSet(req.URL))
}

func (s *ControlServer) listSchedules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"schedules": s.deps.Engine.Schedules()})
}

func (s *ControlServer) addSchedule(c *gin.Context) {
	var req domain.Schedule
	if !bind(c, &req) {
		return
	}
	sch, err := s.deps.Engine.AddSchedule(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sch)
}

func (s *ControlServer) deleteSchedule(c *gin.Context) {
	if err := s.deps.Engine.DeleteSchedule(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *ControlServer) match(c *gin.Context) {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		writeError(c, badRequest("invalid_input", "url query parameter is required"))
		return
	}
	decision := s.deps.Engine.Decision()
	c.JSON(http.StatusOK, MatchResponse{
		URL:        url,
		Normalized: matcher.Normalize(url),
		Allowed:    s.deps.Matcher.IsAllowed(url, decision.AllowedRules),
		BlockPage:  s.deps.Matcher.IsBlockPage(url),
		Blocking:   decision.IsBlocking,
	})
}

func (s *ControlServer) tabs(c *gin.Context) {
	if s.deps.Bridge == nil {
		c.JSON(http.StatusOK, gin.H{"urls": []string{}})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), tabsTimeout)
	defer cancel()

	urls, err := s.deps.Bridge.ListOpenTabURLs(ctx, s.deps.Browsers)
	if err != nil {
		writeError(c, newAPIError(http.StatusServiceUnavailable, "automation_unavailable", err.Error()))
		return
	}
	if urls == nil {
		urls = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"urls": urls})
}
