package cli

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

	"squadmarket/internal/market"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type LoginResponse struct {
	Token     string `json:"token"`
	IsNewUser bool   `json:"is_new_user"`
	Message   string `json:"message"`
	User      struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type TeamStatusResponse struct {
	TeamCreated bool            `json:"team_created"`
	Message     string          `json:"message"`
	Team        *market.Team    `json:"team,omitempty"`
	Players     []market.Player `json:"players,omitempty"`
}

type MarketResponse struct {
	Players []market.Listing `json:"players"`
}

type MarketQuery struct {
	TeamName   string
	PlayerName string
	Position   string
	MinPrice   int64
	MaxPrice   int64
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) TeamStatus(ctx context.Context, token string) (TeamStatusResponse, error) {
	var out TeamStatusResponse
	err := c.jsonRequest(ctx, http.MethodGet, "/api/team/status", token, nil, &out)
	return out, err
}

func (c *Client) Market(ctx context.Context, token string, q MarketQuery) (MarketResponse, error) {
	params := url.Values{}
	if q.TeamName != "" {
		params.Set("team_name", q.TeamName)
	}
	if q.PlayerName != "" {
		params.Set("player_name", q.PlayerName)
	}
	if q.Position != "" {
		params.Set("position", q.Position)
	}
	if q.MinPrice > 0 {
		params.Set("min_price", fmt.Sprintf("%d", q.MinPrice))
	}
	if q.MaxPrice > 0 {
		params.Set("max_price", fmt.Sprintf("%d", q.MaxPrice))
	}
	path := "/api/transfer/market"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var out MarketResponse
	err := c.jsonRequest(ctx, http.MethodGet, path, token, nil, &out)
	return out, err
}

func (c *Client) ListPlayer(ctx context.Context, token string, playerID, askingPrice int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/api/transfer/add", token, map[string]any{
		"player_id":    playerID,
		"asking_price": askingPrice,
	}, &out)
	return out, err
}

func (c *Client) DelistPlayer(ctx context.Context, token string, playerID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/api/transfer/remove", token, map[string]any{
		"player_id": playerID,
	}, &out)
	return out, err
}

func (c *Client) BuyPlayer(ctx context.Context, token string, playerID int64) (market.PurchaseReceipt, error) {
	var out market.PurchaseReceipt
	err := c.jsonRequest(ctx, http.MethodPost, "/api/transfer/buy", token, map[string]any{
		"player_id": playerID,
	}, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (%s)", apiErr.Error, apiErr.Code)
		}
		return fmt.Errorf("api error: %s", http.StatusText(resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
