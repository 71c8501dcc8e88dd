package pesc

import (
	"context"
	"encoding/json"
	"fmt"
)

// Account is one electricity billing account. Accounts are only created by
// Client.Accounts. Nothing is cached: every method makes a request.
type Account struct {
	sess *Session

	ID          string
	Provider    string
	ServiceType string
}

type accountRef struct {
	AccountNumber string `json:"accountNumber"`
}

type accountRequest struct {
	AccountNumber string `json:"accountNumber"`
	ServiceType   string `json:"serviceType"`
}

type billsRequest struct {
	DateFrom      string `json:"dateFrom"`
	DateTo        string `json:"dateTo"`
	AccountNumber string `json:"accountNumber"`
	ServiceType   string `json:"serviceType"`
}

type period struct {
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
}

type paymentsRequest struct {
	Account     accountRef `json:"account"`
	Period      period     `json:"period"`
	ServiceType string     `json:"serviceType"`
}

type meterEntry struct {
	MeterID     Identifier `json:"meterId"`
	MeterNumber Identifier `json:"meterNumber"`
}

// Session returns the transport shared with the client that listed the account.
func (a *Account) Session() *Session {
	return a.sess
}

func (a *Account) endpoint(resource string) (string, error) {
	return resourcePath("accounts", a.Provider, resource)
}

func (a *Account) identifiers() accountRequest {
	return accountRequest{AccountNumber: a.ID, ServiceType: a.ServiceType}
}

func (a *Account) post(ctx context.Context, resource string, body any) (json.RawMessage, error) {
	endpoint, err := a.endpoint(resource)
	if err != nil {
		return nil, err
	}
	var res json.RawMessage
	if err := a.sess.PostJSON(ctx, endpoint, body, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Bills returns the bills issued within r.
func (a *Account) Bills(ctx context.Context, r DateRange) (json.RawMessage, error) {
	from, to := r.resolve(a.sess.now())
	return a.post(ctx, "bills", billsRequest{
		DateFrom:      from,
		DateTo:        to,
		AccountNumber: a.ID,
		ServiceType:   a.ServiceType,
	})
}

// Payments returns the payments made within r.
func (a *Account) Payments(ctx context.Context, r DateRange) (json.RawMessage, error) {
	from, to := r.resolve(a.sess.now())
	return a.post(ctx, "payments", paymentsRequest{
		Account:     accountRef{AccountNumber: a.ID},
		Period:      period{DateFrom: from, DateTo: to},
		ServiceType: a.ServiceType,
	})
}

// Meters lists the meters attached to the account.
func (a *Account) Meters(ctx context.Context) ([]*Meter, error) {
	endpoint, err := a.endpoint("meters")
	if err != nil {
		return nil, err
	}
	var entries []meterEntry
	if err := a.sess.PostJSON(ctx, endpoint, a.identifiers(), &entries); err != nil {
		return nil, err
	}

	meters := make([]*Meter, 0, len(entries))
	for i, e := range entries {
		if e.MeterID.IsZero() {
			return nil, fmt.Errorf("meterId of meter %d of account %s: %w", i, a.ID, ErrMissingField)
		}
		meters = append(meters, &Meter{
			sess:        a.sess,
			AccountID:   a.ID,
			Provider:    a.Provider,
			ServiceType: a.ServiceType,
			ID:          e.MeterID,
			Number:      e.MeterNumber,
		})
	}
	return meters, nil
}

// Status returns the account status.
func (a *Account) Status(ctx context.Context) (json.RawMessage, error) {
	return a.post(ctx, "status", a.identifiers())
}

// Debt returns the outstanding balance of the account.
func (a *Account) Debt(ctx context.Context) (json.RawMessage, error) {
	return a.post(ctx, "debt", a.identifiers())
}

// ActivePayments returns payments that have been made but not yet settled.
func (a *Account) ActivePayments(ctx context.Context) (json.RawMessage, error) {
	return a.post(ctx, "activePayments", a.identifiers())
}

// Address returns the supply address of the account.
func (a *Account) Address(ctx context.Context) (string, error) {
	endpoint, err := a.endpoint("address")
	if err != nil {
		return "", err
	}
	var res struct {
		Address *string `json:"address"`
	}
	if err := a.sess.PostJSON(ctx, endpoint, a.identifiers(), &res); err != nil {
		return "", err
	}
	if res.Address == nil {
		return "", fmt.Errorf("address of account %s: %w", a.ID, ErrMissingField)
	}
	return *res.Address, nil
}

func (a *Account) String() string {
	return fmt.Sprintf("Account %s (%s)", a.ID, a.Provider)
}
