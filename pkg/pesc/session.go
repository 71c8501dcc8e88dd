package pesc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/pescapi/pesc/pkg/common"
	"github.com/pescapi/pesc/pkg/log"
)

const (
	// DefaultBaseURL is the root of the personal account application API.
	DefaultBaseURL = "https://ikus.pesc.ru/application"

	// DefaultTimeout is used for the http client NewSession builds itself.
	DefaultTimeout = time.Minute

	jsonContentType = "application/json; charset=utf-8"
)

// Session is the transport shared by a Client and every Account and Meter it
// hands out. The login cookie lives in its jar, so all objects from one login
// must use the same Session. A Session is not safe for concurrent use.
type Session struct {
	client  *http.Client
	baseURL *url.URL
	now     func() time.Time
}

// NewSession creates a Session against baseURL. If client is nil a default one
// is built. A client without a cookie jar is copied and given one.
func NewSession(baseURL string, client *http.Client) (*Session, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url (%s): %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %s", baseURL)
	}

	if client == nil || client.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		if client == nil {
			client = common.HTTPClient(DefaultTimeout, jar)
		} else {
			c := *client
			c.Jar = jar
			client = &c
		}
	}

	return &Session{
		client:  client,
		baseURL: u,
		now:     time.Now,
	}, nil
}

// BaseURL returns the API root requests are made against.
func (s *Session) BaseURL() string {
	return s.baseURL.String()
}

// Cookies returns the cookies the session would send to the API root.
func (s *Session) Cookies() []*http.Cookie {
	return s.client.Jar.Cookies(s.baseURL)
}

// Get issues a GET to endpoint and decodes the JSON response into dest.
func (s *Session) Get(ctx context.Context, endpoint string, dest any) error {
	req, err := s.newGetRequest(ctx, endpoint)
	if err != nil {
		return err
	}
	return s.doRequest(req, dest)
}

// PostJSON issues a POST with body encoded as JSON and decodes the JSON
// response into dest.
func (s *Session) PostJSON(ctx context.Context, endpoint string, body, dest any) error {
	req, err := s.newPostJSONRequest(ctx, endpoint, body)
	if err != nil {
		return err
	}
	return s.doRequest(req, dest)
}

// PostForm issues a form-encoded POST and decodes the JSON response into dest.
func (s *Session) PostForm(ctx context.Context, endpoint string, data url.Values, dest any) error {
	req, err := s.newPostFormRequest(ctx, endpoint, data)
	if err != nil {
		return err
	}
	return s.doRequest(req, dest)
}

// GetRaw issues a GET to endpoint and returns the status code and body without
// interpreting either.
func (s *Session) GetRaw(ctx context.Context, endpoint string) (int, []byte, error) {
	req, err := s.newGetRequest(ctx, endpoint)
	if err != nil {
		return 0, nil, err
	}
	return s.roundTrip(req)
}

func (s *Session) endpointURL(endpoint string) *url.URL {
	return s.baseURL.JoinPath(strings.Split(endpoint, "/")...)
}

// resourcePath escapes each segment and joins them into an endpoint. Segments
// come from server data such as provider names, so one that would be dropped
// or collapsed when the path is cleaned is rejected.
func resourcePath(segments ...string) (string, error) {
	escaped := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".", "..":
			return "", fmt.Errorf("%w: %q", ErrInvalidPathSegment, seg)
		}
		escaped = append(escaped, url.PathEscape(seg))
	}
	return strings.Join(escaped, "/"), nil
}

func (s *Session) newGetRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, "GET", s.endpointURL(endpoint).String(), nil)
}

func (s *Session) newPostFormRequest(ctx context.Context, endpoint string, data url.Values) (*http.Request, error) {
	body := strings.NewReader(data.Encode())
	req, err := http.NewRequestWithContext(ctx, "POST", s.endpointURL(endpoint).String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func (s *Session) newPostJSONRequest(ctx context.Context, endpoint string, data any) (*http.Request, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", s.endpointURL(endpoint).String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", jsonContentType)
	return req, nil
}

func (s *Session) roundTrip(req *http.Request) (int, []byte, error) {
	ctx := req.Context()
	log.Ctx(ctx).DebugContext(ctx, "pesc request", slog.String("method", req.Method), slog.String("url", req.URL.String()))

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("pesc %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read pesc response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (s *Session) doRequest(req *http.Request, dest any) error {
	ctx := req.Context()
	status, body, err := s.roundTrip(req)
	if err != nil {
		return err
	}

	if err := errorEnvelope(req.URL.Path, body); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "pesc api error", slog.String("path", req.URL.Path), slog.Any("error", err))
		return err
	}

	if status < 200 || status >= 300 {
		log.Ctx(ctx).ErrorContext(ctx, "pesc unexpected status", slog.Int("status", status), slog.String("body", string(body)))
		return &StatusError{StatusCode: status, Body: string(body)}
	}

	if dest == nil {
		log.Ctx(ctx).DebugContext(ctx, "pesc request success (no destination)", slog.String("url", req.URL.String()))
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode pesc response", slog.Any("error", err), slog.String("body", string(body)))
		return fmt.Errorf("failed to decode pesc response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// errorEnvelope returns a *ResponseError if body is an object with an errors
// key and nil otherwise, including when body isn't JSON at all.
func errorEnvelope(path string, body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var env struct {
		Errors *[]APIError `json:"errors"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Errors == nil {
		return nil
	}
	return &ResponseError{Path: path, Errors: *env.Errors}
}
