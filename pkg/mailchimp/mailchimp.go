// Package mailchimp upserts audience members through the Marketing API.
package mailchimp

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrNotConfigured = errors.New("mailchimp: api key and list id are required")
	ErrBadAPIKey     = errors.New("mailchimp: api key has no datacenter suffix")
	ErrRequest       = errors.New("mailchimp: request failed")
)

type Config struct {
	APIKey string `env:"MAILCHIMP_API_KEY"`
	ListID string `env:"MAILCHIMP_LIST_ID"`
}

type Client struct {
	apiKey  string
	listID  string
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithBaseURL overrides the datacenter endpoint derived from the key.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New builds a client. Keys look like "<hex>-us6"; the suffix selects the
// datacenter host.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" || cfg.ListID == "" {
		return nil, ErrNotConfigured
	}
	c := &Client{
		apiKey: cfg.APIKey,
		listID: cfg.ListID,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
	if i := strings.LastIndexByte(cfg.APIKey, '-'); i > 0 && i < len(cfg.APIKey)-1 {
		c.baseURL = "https://" + cfg.APIKey[i+1:] + ".api.mailchimp.com"
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		return nil, ErrBadAPIKey
	}
	return c, nil
}

type member struct {
	Email       string            `json:"email_address"`
	StatusIfNew string            `json:"status_if_new"`
	MergeFields map[string]string `json:"merge_fields,omitempty"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Subscribe adds email to the list, or updates the existing member.
func (c *Client) Subscribe(ctx context.Context, email, name string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	sum := md5.Sum([]byte(email))

	m := member{Email: email, StatusIfNew: "subscribed"}
	if name != "" {
		m.MergeFields = map[string]string{"FNAME": name}
	}
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/3.0/lists/%s/members/%s", c.baseURL, url.PathEscape(c.listID), hex.EncodeToString(sum[:]))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Join(ErrRequest, err)
	}
	req.SetBasicAuth("pinspot", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Join(ErrRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var ae apiError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&ae)
		return fmt.Errorf("%w: %d %s: %s", ErrRequest, resp.StatusCode, ae.Title, ae.Detail)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
