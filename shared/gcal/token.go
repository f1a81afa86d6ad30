package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// tokenStore is the on-disk home of the calendar credentials.
type tokenStore struct {
	path string
}

func (s tokenStore) load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file %s: %w", s.path, err)
	}
	return &tok, nil
}

func (s tokenStore) save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}

// persistingSource hands out tokens from base and writes each newly issued
// access token back to the store.
type persistingSource struct {
	base   oauth2.TokenSource
	store  tokenStore
	logger *zap.Logger

	mu   sync.Mutex
	last string
}

func newPersistingSource(base oauth2.TokenSource, store tokenStore, issued *oauth2.Token, logger *zap.Logger) *persistingSource {
	return &persistingSource{base: base, store: store, logger: logger, last: issued.AccessToken}
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.last {
		return tok, nil
	}
	p.last = tok.AccessToken
	if err := p.store.save(tok); err != nil {
		p.logger.Warn("calendar token refreshed but not persisted", zap.Error(err))
	} else {
		p.logger.Debug("calendar token refreshed", zap.Time("expiry", tok.Expiry))
	}
	return tok, nil
}

// authorize returns the stored credentials when they can still be refreshed
// and otherwise walks the user through the device flow, printing the prompt
// to prompt.
func authorize(ctx context.Context, cfg *oauth2.Config, store tokenStore, prompt io.Writer, logger *zap.Logger) (*oauth2.Token, error) {
	tok, err := store.load()
	switch {
	case err == nil && (tok.RefreshToken != "" || tok.Valid()):
		return tok, nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		logger.Warn("ignoring unreadable calendar token", zap.String("path", store.path), zap.Error(err))
	}

	auth, err := cfg.DeviceAuth(ctx, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("start device authorization: %w", err)
	}
	fmt.Fprintf(prompt, "Google Calendar access is needed for team events.\nOpen %s and enter the code %s\n", auth.VerificationURI, auth.UserCode)

	tok, err = cfg.DeviceAccessToken(ctx, auth, oauth2.AccessTypeOffline)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			logger.Error("device authorization rejected",
				zap.String("error_code", retrieveErr.ErrorCode),
				zap.String("body", strings.TrimSpace(string(retrieveErr.Body))))
		}
		return nil, fmt.Errorf("device authorization: %w (the OAuth client must be a limited-input device client)", err)
	}

	if err := store.save(tok); err != nil {
		logger.Warn("calendar token not persisted", zap.Error(err))
	}
	return tok, nil
}
