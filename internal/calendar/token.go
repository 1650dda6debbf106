package calendar

import (
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// TokenKey is the settings-store key holding the Graph OAuth token.
const TokenKey = "calendar_token"

// tokenStore persists the OAuth token in the encrypted settings store.
type tokenStore struct {
	store domain.KeyValueStore

	mu     sync.Mutex
	cached *oauth2.Token
}

func (s *tokenStore) load() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return s.cached, nil
	}
	data, ok, err := s.store.Get(TokenKey)
	if err != nil {
		return nil, fmt.Errorf("reading calendar token: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt calendar token (run 'webmon calendar logout'): %w", err)
	}
	s.cached = &tok
	return s.cached, nil
}

func (s *tokenStore) save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(TokenKey, data); err != nil {
		return fmt.Errorf("saving calendar token: %w", err)
	}
	s.cached = tok
	return nil
}

func (s *tokenStore) clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	return s.store.Delete(TokenKey)
}

// savingTokenSource persists tokens the underlying source refreshed.
type savingTokenSource struct {
	ts    oauth2.TokenSource
	store *tokenStore
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if prev, _ := s.store.load(); prev == nil || prev.AccessToken != tok.AccessToken {
		// Best-effort save; the next refresh tries again.
		_ = s.store.save(tok)
	}
	return tok, nil
}
