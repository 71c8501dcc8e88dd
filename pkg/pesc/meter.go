package pesc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Identifier is an id exactly as the API sent it, a JSON number or string. It
// is sent back unchanged in request bodies.
type Identifier json.RawMessage

// String returns the id without JSON quoting.
func (id Identifier) String() string {
	var s string
	if err := json.Unmarshal(id, &s); err == nil {
		return s
	}
	return string(id)
}

// IsZero reports whether the id was absent or null in the response.
func (id Identifier) IsZero() bool {
	return len(id) == 0 || string(id) == "null"
}

// MarshalJSON implements json.Marshaler.
func (id Identifier) MarshalJSON() ([]byte, error) {
	if len(id) == 0 {
		return []byte("null"), nil
	}
	return id, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *Identifier) UnmarshalJSON(b []byte) error {
	*id = append((*id)[0:0], bytes.TrimSpace(b)...)
	return nil
}

// Scale names a tariff zone of an indication.
type Scale string

const (
	ScaleDay   Scale = "DAY"
	ScaleNight Scale = "NIGHT"
)

// Indication is a meter reading split by tariff zone. A zone left at zero is
// sent as 0.
type Indication struct {
	Day   float64
	Night float64
}

type scaleValue struct {
	Scale Scale   `json:"scale"`
	Value float64 `json:"value"`
}

type newIndicationRequest struct {
	Account     accountRef   `json:"account"`
	ServiceType string       `json:"serviceType"`
	MeterID     Identifier   `json:"meterId"`
	Indication  []scaleValue `json:"indication"`
}

type indicationsRequest struct {
	MeterID  Identifier `json:"meterId"`
	DateFrom string     `json:"dateFrom"`
	DateTo   string     `json:"dateTo"`
}

// Meter is one electricity meter of an account. Meters are only created by
// Account.Meters and carry the identifiers of that account.
type Meter struct {
	sess *Session

	AccountID   string
	Provider    string
	ServiceType string
	ID          Identifier
	Number      Identifier
}

// Session returns the transport shared with the account the meter came from.
func (m *Meter) Session() *Session {
	return m.sess
}

func (m *Meter) endpoint(resource ...string) (string, error) {
	return resourcePath(append([]string{"accounts", m.Provider}, resource...)...)
}

// Info returns the meter's metadata.
func (m *Meter) Info(ctx context.Context) (json.RawMessage, error) {
	if m.ID.IsZero() {
		return nil, fmt.Errorf("meterId of meter %s: %w", m.Number, ErrMissingField)
	}
	endpoint, err := m.endpoint("meters", m.ID.String())
	if err != nil {
		return nil, err
	}
	var res json.RawMessage
	if err := m.sess.Get(ctx, endpoint, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Indications returns the readings recorded within r.
func (m *Meter) Indications(ctx context.Context, r DateRange) (json.RawMessage, error) {
	endpoint, err := m.endpoint("indications")
	if err != nil {
		return nil, err
	}
	from, to := r.resolve(m.sess.now())
	var res json.RawMessage
	err = m.sess.PostJSON(ctx, endpoint, indicationsRequest{
		MeterID:  m.ID,
		DateFrom: from,
		DateTo:   to,
	}, &res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// PostIndication submits a new reading and returns the acknowledgement.
func (m *Meter) PostIndication(ctx context.Context, ind Indication) (json.RawMessage, error) {
	endpoint, err := m.endpoint("indication", "new")
	if err != nil {
		return nil, err
	}
	var res json.RawMessage
	err = m.sess.PostJSON(ctx, endpoint, newIndicationRequest{
		Account:     accountRef{AccountNumber: m.AccountID},
		ServiceType: m.ServiceType,
		MeterID:     m.ID,
		Indication: []scaleValue{
			{Scale: ScaleDay, Value: ind.Day},
			{Scale: ScaleNight, Value: ind.Night},
		},
	}, &res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Meter) String() string {
	return fmt.Sprintf("Meter %s from account %s", m.Number, m.AccountID)
}
