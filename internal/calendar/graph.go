// Package calendar implements the meeting feed backed by Microsoft Graph.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// ErrNotAuthorized is returned by Events before a successful Login.
var ErrNotAuthorized = errors.New("calendar not authorized, run 'webmon calendar login'")

var requiredScopes = []string{
	"https://graph.microsoft.com/Calendars.Read",
	"offline_access",
}

func msEndpoint(tenantID, path string) string {
	return "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/" + path
}

// OAuthConfig returns the device-flow oauth2.Config for Microsoft Graph.
func OAuthConfig(tenantID, clientID string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: clientID,
		Scopes:   requiredScopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: msEndpoint(tenantID, "devicecode"),
			TokenURL:      msEndpoint(tenantID, "token"),
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// graphEvent is the subset of a Graph calendar event we read.
type graphEvent struct {
	ID          string        `json:"id"`
	Subject     string        `json:"subject"`
	IsAllDay    bool          `json:"isAllDay"`
	IsCancelled bool          `json:"isCancelled"`
	ShowAs      string        `json:"showAs"` // "free", "tentative", "busy", "oof", "workingElsewhere", "unknown"
	Start       graphDateTime `json:"start"`
	End         graphDateTime `json:"end"`
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// calendarViewResponse is the Graph API paged response for calendar events.
type calendarViewResponse struct {
	Value    []graphEvent `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

// GraphFeed implements domain.CalendarFeed against /me/calendarView.
type GraphFeed struct {
	oauth      *oauth2.Config
	baseURL    string
	httpClient *http.Client
	tokens     *tokenStore
	logger     *zap.Logger
}

// NewGraphFeed creates a feed for the given Azure AD tenant and app.
func NewGraphFeed(tenantID, clientID string, store domain.KeyValueStore, logger *zap.Logger) *GraphFeed {
	return NewGraphFeedWithDeps(OAuthConfig(tenantID, clientID), graphBaseURL, http.DefaultClient, store, logger)
}

// NewGraphFeedWithDeps creates a feed with injectable dependencies (for testing)
func NewGraphFeedWithDeps(cfg *oauth2.Config, baseURL string, httpClient *http.Client, store domain.KeyValueStore, logger *zap.Logger) *GraphFeed {
	return &GraphFeed{
		oauth:      cfg,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     &tokenStore{store: store},
		logger:     logger,
	}
}

// Authorized reports whether a usable or refreshable token is stored.
func (f *GraphFeed) Authorized() bool {
	tok, err := f.tokens.load()
	if err != nil || tok == nil {
		return false
	}
	return tok.RefreshToken != "" || tok.Valid()
}

// Login runs the OAuth2 device code flow. prompt is called once with the
// code the user must enter at the verification URI.
func (f *GraphFeed) Login(ctx context.Context, prompt func(userCode, verificationURI string)) error {
	ctx = f.clientContext(ctx)

	da, err := f.oauth.DeviceAuth(ctx)
	if err != nil {
		return fmt.Errorf("device auth request: %w", err)
	}
	prompt(da.UserCode, da.VerificationURI)

	tok, err := f.oauth.DeviceAccessToken(ctx, da)
	if err != nil {
		return fmt.Errorf("waiting for device authorization: %w", err)
	}
	if err := f.tokens.save(tok); err != nil {
		return err
	}
	f.logger.Info("calendar authorized")
	return nil
}

// Logout forgets the stored token.
func (f *GraphFeed) Logout() error {
	return f.tokens.clear()
}

// Events returns busy, non-cancelled, timed meetings overlapping [from, to).
func (f *GraphFeed) Events(ctx context.Context, from, to time.Time) ([]domain.ExternalEvent, error) {
	tok, err := f.tokens.load()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, ErrNotAuthorized
	}

	ctx = f.clientContext(ctx)
	client := oauth2.NewClient(ctx, &savingTokenSource{
		ts:    f.oauth.TokenSource(ctx, tok),
		store: f.tokens,
	})

	endpoint := fmt.Sprintf("%s/me/calendarView?startDateTime=%s&endDateTime=%s&$top=100",
		f.baseURL,
		url.QueryEscape(from.UTC().Format(time.RFC3339)),
		url.QueryEscape(to.UTC().Format(time.RFC3339)),
	)

	var events []domain.ExternalEvent
	for endpoint != "" {
		page, err := f.fetchPage(ctx, client, endpoint)
		if err != nil {
			return nil, err
		}
		for _, ge := range page.Value {
			if skipEvent(ge) {
				continue
			}
			ev, err := toExternalEvent(ge)
			if err != nil {
				f.logger.Debug("skipping unparsable event", zap.String("id", ge.ID), zap.Error(err))
				continue
			}
			events = append(events, ev)
		}
		endpoint = page.NextLink
	}
	return events, nil
}

func (f *GraphFeed) fetchPage(ctx context.Context, client *http.Client, endpoint string) (*calendarViewResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph API request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph API error %d: %s", resp.StatusCode, string(body))
	}

	var page calendarViewResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decoding graph response: %w", err)
	}
	return &page, nil
}

func (f *GraphFeed) clientContext(ctx context.Context) context.Context {
	if f.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
}

// skipEvent drops events that do not represent a meeting the user attends.
// All-day events are dropped too: a holiday would otherwise lift focus mode
// for the whole day.
func skipEvent(ev graphEvent) bool {
	if ev.IsCancelled || ev.IsAllDay {
		return true
	}
	return ev.ShowAs == "free"
}

func toExternalEvent(ev graphEvent) (domain.ExternalEvent, error) {
	start, err := parseGraphTime(ev.Start)
	if err != nil {
		return domain.ExternalEvent{}, err
	}
	end, err := parseGraphTime(ev.End)
	if err != nil {
		return domain.ExternalEvent{}, err
	}
	return domain.ExternalEvent{ID: ev.ID, Title: ev.Subject, Start: start, End: end}, nil
}

// parseGraphTime parses Graph's zone-less "2006-01-02T15:04:05.0000000" in
// the zone the event names, falling back to UTC.
func parseGraphTime(dt graphDateTime) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, dt.DateTime); err == nil {
		return t, nil
	}

	loc := time.UTC
	if dt.TimeZone != "" && dt.TimeZone != "UTC" {
		if l, err := time.LoadLocation(dt.TimeZone); err == nil {
			loc = l
		}
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, dt.DateTime, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse graph time %q", dt.DateTime)
}

// Ensure GraphFeed implements domain.CalendarFeed.
var _ domain.CalendarFeed = (*GraphFeed)(nil)
