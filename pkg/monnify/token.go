package monnify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// expiryDelta refreshes the token slightly before Monnify expires it.
const expiryDelta = 30 * time.Second

// loginSource exchanges the API key and secret for a bearer token.
type loginSource struct {
	cfg    Config
	client *http.Client
}

type loginBody struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

func (s *loginSource) Token() (*oauth2.Token, error) {
	if s.cfg.APIKey == "" || s.cfg.SecretKey == "" {
		return nil, errors.New("monnify credentials not configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/api/v1/auth/login", nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.cfg.APIKey, s.cfg.SecretKey)
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed: %d", resp.StatusCode)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode login: %w", err)
	}
	var body loginBody
	if len(env.ResponseBody) > 0 {
		if err := json.Unmarshal(env.ResponseBody, &body); err != nil {
			return nil, fmt.Errorf("decode login body: %w", err)
		}
	}
	if !env.RequestSuccessful || body.AccessToken == "" {
		return nil, fmt.Errorf("login rejected: %s", env.ResponseMessage)
	}
	tok := &oauth2.Token{AccessToken: body.AccessToken, TokenType: "Bearer"}
	if body.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - expiryDelta)
	}
	return tok, nil
}
