// Package httpsource is a FriendSource backed by a REST social-network API.
//
// The API exposes two resources:
//
//	GET /users/{id}          -> {"user": {"id", "firstName", "lastName", "friends": {"count"}}}
//	GET /users/{id}/friends  -> {"friends": {"count": n, "items": [user, ...]}}
//
// Friend lists are paged with limit/offset query parameters.
package httpsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/persistorai/friendgraph/internal/models"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 500
	maxBodyBytes    = 8 << 20
	userAgent       = "friendgraph-crawler/1"
)

// Client talks to the friend API. Safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outgoing requests at rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}

		if burst < 1 {
			burst = 1
		}

		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithPageSize sets the friend-list page size.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// New creates a client for baseURL (e.g. "https://api.example.com/v2").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		pageSize:   defaultPageSize,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

type apiUser struct {
	ID        any    `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Friends   *struct {
		Count int `json:"count"`
	} `json:"friends,omitempty"`
}

type userResponse struct {
	User *apiUser `json:"user"`
}

type friendsResponse struct {
	Friends struct {
		Count int       `json:"count"`
		Items []apiUser `json:"items"`
	} `json:"friends"`
}

// FetchProfile implements crawl.FriendSource.
func (c *Client) FetchProfile(ctx context.Context, id models.ID) (map[string]any, error) {
	var resp userResponse
	if err := c.get(ctx, "/users/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}

	if resp.User == nil {
		return nil, fmt.Errorf("%w: profile %s: empty user object", models.ErrSourceUnavailable, id)
	}

	attrs := map[string]any{models.AttrName: displayName(resp.User, id)}
	if resp.User.Friends != nil {
		attrs[models.AttrFriendCount] = resp.User.Friends.Count
	}

	return attrs, nil
}

// FetchFriends implements crawl.FriendSource. All pages are fetched before
// returning.
func (c *Client) FetchFriends(ctx context.Context, id models.ID) ([]models.Friend, error) {
	path := "/users/" + url.PathEscape(id) + "/friends"

	var out []models.Friend

	for offset := 0; ; {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(c.pageSize))
		params.Set("offset", strconv.Itoa(offset))

		var resp friendsResponse
		if err := c.get(ctx, path, params, &resp); err != nil {
			return nil, err
		}

		for i := range resp.Friends.Items {
			item := &resp.Friends.Items[i]

			fid, err := models.ParseID(item.ID)
			if err != nil {
				return nil, fmt.Errorf("%w: friends of %s: %w", models.ErrSourceUnavailable, id, err)
			}

			out = append(out, models.Friend{
				ID:         fid,
				Attributes: map[string]any{models.AttrName: displayName(item, fid)},
			})
		}

		offset += len(resp.Friends.Items)

		if len(resp.Friends.Items) < c.pageSize || offset >= resp.Friends.Count {
			return out, nil
		}
	}
}

// displayName joins first and last name, falling back to the id.
func displayName(u *apiUser, id models.ID) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return id
	}

	return name
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %w", models.ErrSourceUnavailable, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", models.ErrSourceUnavailable, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", models.ErrSourceUnavailable, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("GET %s: %w", path, models.ErrNotFound)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: GET %s: status %d: %s",
			models.ErrSourceUnavailable, path, resp.StatusCode, truncate(body, 200))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	if err := dec.Decode(result); err != nil {
		return fmt.Errorf("%w: decode response: %w", models.ErrSourceUnavailable, err)
	}

	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}

	return string(b[:n]) + "..."
}
