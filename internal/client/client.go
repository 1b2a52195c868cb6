package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"voting-app/internal/domain/auth"
	"voting-app/internal/domain/poll"
	"voting-app/internal/domain/user"
	"voting-app/internal/domain/vote"
)

// ErrSessionExpired means the access token was rejected and the refresh
// token could not produce a new pair; the caller has to log in again.
var ErrSessionExpired = errors.New("session expired, re-authentication required")

// APIError carries a machine-checkable error code from the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// Client talks to the voting API on a user's behalf. On a 401 it
// refreshes the token pair exactly once and retries the request; the
// singleflight group guarantees that concurrent 401s share a single
// refresh call, so the client never trips the server's reuse detection
// against itself.
type Client struct {
	baseURL string
	httpc   *http.Client
	store   TokenStore
	refresh singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

func New(baseURL string, store TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		store:   store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Session struct {
	User   user.User      `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

func (c *Client) Register(ctx context.Context, username, email, password string) (*Session, error) {
	var s Session
	err := c.public(ctx, http.MethodPost, "/api/v1/auth/register",
		map[string]string{"username": username, "email": email, "password": password}, &s)
	if err != nil {
		return nil, err
	}
	c.store.Set(s.Tokens.Access, s.Tokens.Refresh)
	return &s, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	var s Session
	err := c.public(ctx, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"username": username, "password": password}, &s)
	if err != nil {
		return nil, err
	}
	c.store.Set(s.Tokens.Access, s.Tokens.Refresh)
	return &s, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, refresh := c.store.Tokens()
	defer c.store.Clear()
	if refresh == "" {
		return nil
	}
	return c.public(ctx, http.MethodPost, "/api/v1/auth/logout",
		map[string]string{"refresh": refresh}, nil)
}

type PollPage struct {
	Count    int64          `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []poll.Summary `json:"results"`
}

func (c *Client) ListPolls(ctx context.Context, page int, search string) (*PollPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if search != "" {
		q.Set("search", search)
	}
	path := "/api/v1/polls"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out PollPage
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CastVote(ctx context.Context, pollID, choiceID int64) (*vote.Receipt, error) {
	var receipt vote.Receipt
	err := c.Do(ctx, http.MethodPost, "/api/v1/votes",
		map[string]int64{"poll": pollID, "choice": choiceID}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) Results(ctx context.Context, pollID int64) (*vote.Results, error) {
	var res vote.Results
	err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/polls/%d/results", pollID), nil, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Do sends an authenticated request. The flow per request is: attach the
// current access token, dispatch, and on a 401 refresh once and retry
// once. A second 401 after a successful refresh, or a failed refresh,
// clears the store and surfaces ErrSessionExpired.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	payload, err := encodeBody(body)
	if err != nil {
		return err
	}

	access, _ := c.store.Tokens()
	resp, err := c.send(ctx, method, path, payload, access)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && access != "" {
		drain(resp)
		if err := c.refreshOnce(ctx); err != nil {
			c.store.Clear()
			return ErrSessionExpired
		}
		access, _ = c.store.Tokens()
		resp, err = c.send(ctx, method, path, payload, access)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.store.Clear()
			return ErrSessionExpired
		}
	}

	return decodeResponse(resp, out)
}

// refreshOnce funnels all concurrent refresh attempts into a single
// upstream call; latecomers wait on the in-flight result instead of
// presenting the same refresh token twice.
func (c *Client) refreshOnce(ctx context.Context) error {
	_, err, _ := c.refresh.Do("refresh", func() (any, error) {
		_, refreshToken := c.store.Tokens()
		if refreshToken == "" {
			return nil, ErrSessionExpired
		}

		var pair auth.TokenPair
		err := c.public(ctx, http.MethodPost, "/api/v1/auth/refresh",
			map[string]string{"refresh": refreshToken}, &pair)
		if err != nil {
			return nil, err
		}

		c.store.Set(pair.Access, pair.Refresh)
		return nil, nil
	})
	return err
}

// public sends a request without bearer credentials and without the
// refresh-and-retry path.
func (c *Client) public(ctx context.Context, method, path string, body, out any) error {
	payload, err := encodeBody(body)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, method, path, payload, "")
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, access string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	return c.httpc.Do(req)
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	return json.Marshal(body)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = "unknown_error"
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
