package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// Client talks to a running daemon's control API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the control API at addr (host:port or URL).
func NewClient(addr string) *Client {
	return NewClientWithHTTP(addr, &http.Client{Timeout: 15 * time.Second})
}

// NewClientWithHTTP creates a client with a custom http.Client (for testing)
func NewClientWithHTTP(addr string, httpClient *http.Client) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{baseURL: base, httpClient: httpClient}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable (is 'webmon run' running?): %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var env errorEnvelope
		if err := json.Unmarshal(data, &env); err == nil && env.Error != nil {
			env.Error.Status = resp.StatusCode
			return env.Error
		}
		return newAPIError(resp.StatusCode, "http_error", strings.TrimSpace(string(data)))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Status returns the daemon status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) mutate(ctx context.Context, method, path string, body any) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.do(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetBlocking toggles focus mode manually.
func (c *Client) SetBlocking(ctx context.Context, enabled bool) (*StatusResponse, error) {
	return c.mutate(ctx, http.MethodPost, "/blocking", toggleRequest{Enabled: &enabled})
}

// Unlock performs an emergency unlock.
func (c *Client) Unlock(ctx context.Context, passphrase string) (*StatusResponse, error) {
	return c.mutate(ctx, http.MethodPost, "/unlock", unlockRequest{Passphrase: passphrase})
}

// SetStrict toggles strict mode.
func (c *Client) SetStrict(ctx context.Context, enabled bool) (*StatusResponse, error) {
	return c.mutate(ctx, http.MethodPut, "/strict", toggleRequest{Enabled: &enabled})
}

// SetCalendar toggles the calendar meeting exemption.
func (c *Client) SetCalendar(ctx context.Context, enabled bool) (*StatusResponse, error) {
	return c.mutate(ctx, http.MethodPut, "/calendar", toggleRequest{Enabled: &enabled})
}

// Pause suspends enforcement for minutes.
func (c *Client) Pause(ctx context.Context, minutes int) (*StatusResponse, error) {
	return c.mutate(ctx, http.MethodPost, "/pause", pauseRequest{Minutes: minutes})
}

// Resume cancels a pause.
func (c *Client) Resume(ctx context.Context) (*StatusResponse, error) {
	return c.mutate(ctx, http.MethodDelete, "/pause", nil)
}

// Pomodoro runs a Pomodoro action: start, skip or stop.
func (c *Client) Pomodoro(ctx context.Context, action string) (*StatusResponse, error) {
	return c.mutate(ctx, http.MethodPost, "/pomodoro/"+url.PathEscape(action), nil)
}

// SetPomodoroDurations sets focus and break lengths in minutes.
func (c *Client) SetPomodoroDurations(ctx context.Context, focusMinutes, breakMinutes int) (*StatusResponse, error) {
	return c.mutate(ctx, http.MethodPut, "/pomodoro/settings", pomodoroSettingsRequest{
		FocusMinutes: focusMinutes,
		BreakMinutes: breakMinutes,
	})
}

// RuleSets returns all rule sets and the selected id.
func (c *Client) RuleSets(ctx context.Context) ([]domain.RuleSet, string, error) {
	var resp struct {
		RuleSets []domain.RuleSet `json:"rule_sets"`
		ActiveID string           `json:"active_id"`
	}
	if err := c.do(ctx, http.MethodGet, "/rulesets", nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.RuleSets, resp.ActiveID, nil
}

// CreateRuleSet adds a rule set.
func (c *Client) CreateRuleSet(ctx context.Context, name string, urls []string) (*domain.RuleSet, error) {
	var rs domain.RuleSet
	if err := c.do(ctx, http.MethodPost, "/rulesets", ruleSetRequest{Name: name, URLs: urls}, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// ImportRuleSets upserts rule sets by id.
func (c *Client) ImportRuleSets(ctx context.Context, sets []domain.RuleSet) ([]domain.RuleSet, error) {
	var resp struct {
		RuleSets []domain.RuleSet `json:"rule_sets"`
	}
	if err := c.do(ctx, http.MethodPost, "/rulesets/import", importRuleSetsRequest{RuleSets: sets}, &resp); err != nil {
		return nil, err
	}
	return resp.RuleSets, nil
}

// DeleteRuleSet removes a rule set.
func (c *Client) DeleteRuleSet(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/rulesets/"+url.PathEscape(id), nil, nil)
}

// SelectRuleSet makes id the active rule set.
func (c *Client) SelectRuleSet(ctx context.Context, id string) (*StatusResponse, error) {
	return c.mutate(ctx, http.MethodPut, "/rulesets/active", selectRuleSetRequest{ID: id})
}

// AddURL appends a URL to the active rule set.
func (c *Client) AddURL(ctx context.Context, u string) (*StatusResponse, error) {
	return c.mutate(ctx, http.MethodPost, "/rulesets/active/urls", urlRequest{URL: u})
}

// Schedules lists schedules.
func (c *Client) Schedules(ctx context.Context) ([]domain.Schedule, error) {
	var resp struct {
		Schedules []domain.Schedule `json:"schedules"`
	}
	if err := c.do(ctx, http.MethodGet, "/schedules", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Schedules, nil
}

// AddSchedule creates a schedule.
func (c *Client) AddSchedule(ctx context.Context, s domain.Schedule) (*domain.Schedule, error) {
	var created domain.Schedule
	if err := c.do(ctx, http.MethodPost, "/schedules", s, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteSchedule removes a schedule.
func (c *Client) DeleteSchedule(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/schedules/"+url.PathEscape(id), nil, nil)
}

// Match evaluates u against the live allow-list.
func (c *Client) Match(ctx context.Context, u string) (*MatchResponse, error) {
	var resp MatchResponse
	if err := c.do(ctx, http.MethodGet, "/match?url="+url.QueryEscape(u), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Tabs lists open tab URLs of running supported browsers.
func (c *Client) Tabs(ctx context.Context) ([]string, error) {
	var resp struct {
		URLs []string `json:"urls"`
	}
	if err := c.do(ctx, http.MethodGet, "/tabs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.URLs, nil
}
