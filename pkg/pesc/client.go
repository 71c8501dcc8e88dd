package pesc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/pescapi/pesc/pkg/log"
)

// ElectricityCategory is the key of the accounts response Accounts reads.
const ElectricityCategory = "ELECTRICITY"

// Client is the entry point to the API. It owns the login state; accounts and
// meters obtained through it share its Session.
type Client struct {
	sess     *Session
	username string
	password string
}

// NewClient returns a Client using sess. A nil sess gets a fresh Session
// against DefaultBaseURL.
func NewClient(sess *Session) (*Client, error) {
	if sess == nil {
		var err error
		sess, err = NewSession(DefaultBaseURL, nil)
		if err != nil {
			return nil, err
		}
	}
	return &Client{sess: sess}, nil
}

// Session returns the transport shared by the client and its accounts.
func (c *Client) Session() *Session {
	return c.sess
}

// Username returns the username last passed to Authenticate.
func (c *Client) Username() string {
	return c.username
}

// AuthResult is the successful answer to an authentication attempt.
type AuthResult struct {
	Success bool `json:"authenticationSuccess"`
}

// Authenticate logs in with the given credentials. The credentials are kept on
// the client even when the login fails. Rejected credentials come back as a
// *ResponseError.
func (c *Client) Authenticate(ctx context.Context, username, password string) (AuthResult, error) {
	c.username = username
	c.password = password

	data := url.Values{}
	data.Set("username", username)
	data.Set("password", password)

	var res AuthResult
	if err := c.sess.PostForm(ctx, "authentication", data, &res); err != nil {
		return AuthResult{}, fmt.Errorf("authentication failed: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "pesc authentication", slog.Bool("success", res.Success))
	return res, nil
}

// Reauthenticate logs in again with the credentials from the last Authenticate
// call, for when the server has dropped the session.
func (c *Client) Reauthenticate(ctx context.Context) (AuthResult, error) {
	if c.username == "" {
		return AuthResult{}, errors.New("no credentials to reauthenticate with")
	}
	return c.Authenticate(ctx, c.username, c.password)
}

// Profile is the answer to CheckAuthentication. Raw holds the full body,
// including fields not mapped here.
type Profile struct {
	Email           string `json:"email"`
	EmailConfirmed  bool   `json:"emailConfirmed"`
	PhoneConfirmed  bool   `json:"phoneConfirmed"`
	PhoneExists     bool   `json:"phoneExists"`
	SuperUserMode   bool   `json:"superUserMode"`
	GuideViewed     bool   `json:"guideViewed"`
	HasPersonalInfo bool   `json:"hasPersonalInfo"`

	Raw json.RawMessage `json:"-"`
}

// CheckAuthentication returns the profile of the logged in user. An expired or
// missing login comes back as a *ResponseError.
func (c *Client) CheckAuthentication(ctx context.Context) (Profile, error) {
	var raw json.RawMessage
	if err := c.sess.Get(ctx, "checkAuthentication", &raw); err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	p.Raw = raw
	return p, nil
}

type accountEntry struct {
	AccountNumber Identifier `json:"accountNumber"`
	ProviderName  string `json:"providerName"`
	ServiceName   string `json:"serviceName"`
}

// Accounts lists the electricity accounts of the logged in user. Accounts for
// other utility categories are ignored.
func (c *Client) Accounts(ctx context.Context) ([]*Account, error) {
	var categories map[string]json.RawMessage
	if err := c.sess.Get(ctx, "accounts", &categories); err != nil {
		return nil, err
	}

	raw, ok := categories[ElectricityCategory]
	if !ok {
		log.Ctx(ctx).DebugContext(ctx, "no electricity accounts in response")
		return []*Account{}, nil
	}
	var entries []accountEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode electricity accounts: %w", err)
	}

	accounts := make([]*Account, 0, len(entries))
	for i, e := range entries {
		if e.AccountNumber.IsZero() {
			return nil, fmt.Errorf("accountNumber of electricity account %d: %w", i, ErrMissingField)
		}
		accounts = append(accounts, &Account{
			sess:        c.sess,
			ID:          e.AccountNumber.String(),
			Provider:    e.ProviderName,
			ServiceType: e.ServiceName,
		})
	}
	return accounts, nil
}

// Notifications is the body of the notifications endpoint. The endpoint does
// not always answer with JSON; when it doesn't, Text holds the body as is.
type Notifications struct {
	JSON json.RawMessage
	Text string
}

// IsJSON reports whether the body was valid JSON.
func (n Notifications) IsJSON() bool {
	return n.JSON != nil
}

// Notifications fetches the user's notifications. The HTTP status is ignored
// so that an HTML error page still comes back as Text.
func (c *Client) Notifications(ctx context.Context) (Notifications, error) {
	_, body, err := c.sess.GetRaw(ctx, "notifications")
	if err != nil {
		return Notifications{}, err
	}
	if !json.Valid(body) {
		log.Ctx(ctx).DebugContext(ctx, "notifications response is not json", slog.Int("length", len(body)))
		return Notifications{Text: string(body)}, nil
	}
	if err := errorEnvelope("notifications", body); err != nil {
		return Notifications{}, err
	}
	return Notifications{JSON: json.RawMessage(bytes.TrimSpace(body))}, nil
}

// Logout ends the session on the server and reports whether it succeeded.
func (c *Client) Logout(ctx context.Context) (bool, error) {
	var res struct {
		Success bool `json:"logoutSuccess"`
	}
	if err := c.sess.Get(ctx, "logout", &res); err != nil {
		return false, err
	}
	return res.Success, nil
}
