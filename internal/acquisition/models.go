// Package acquisition holds the data acquisition request entity, its
// key-value persistence and the service used by the HTTP handlers, the
// worker and the operator CLI.
package acquisition

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Errors.
var (
	ErrRequestNotFound   = errors.New("acquisition request not found")
	ErrMalformedRecord   = errors.New("malformed acquisition request record")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrForbiddenOrg      = errors.New("caller does not belong to the organization")
	ErrInvalidState      = errors.New("invalid acquisition request state")
	ErrInvalidKey        = errors.New("organization and id must not contain ':'")
)

// State is the lifecycle state of a request.
type State string

// Request states.
const (
	StateValidated  State = "VALIDATED"
	StateDownloaded State = "DOWNLOADED"
	StateFinished   State = "FINISHED"
	StateError      State = "ERROR"
)

// States lists every state in lifecycle order.
var States = []State{StateValidated, StateDownloaded, StateFinished, StateError}

// Valid reports whether s is one of the defined states.
func (s State) Valid() bool {
	switch s {
	case StateValidated, StateDownloaded, StateFinished, StateError:
		return true
	}
	return false
}

// ParseState converts s into a State.
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
	return st, nil
}

// Request is a data set download request.
// No timestamps are recorded per state change.
type Request struct {
	ID            string `json:"id"`
	OrgUUID       string `json:"orgUUID"`
	Title         string `json:"title"`
	PublicRequest bool   `json:"publicRequest"`
	Source        string `json:"source"`
	Category      string `json:"category"`
	State         State  `json:"state"`
}

// IDGenerator produces identifiers for new requests.
type IDGenerator func() string

// NewUUID generates random (version 4) UUID strings.
var NewUUID IDGenerator = uuid.NewString

// NewRequestInput holds the required fields of a new request.
type NewRequestInput struct {
	Title         string
	OrgUUID       string
	PublicRequest bool
	Source        string
	Category      string
}

type requestOptions struct {
	id    string
	state State
	newID IDGenerator
}

// RequestOption customizes NewRequest.
type RequestOption func(*requestOptions)

// WithID reuses an existing identifier instead of generating one.
func WithID(id string) RequestOption {
	return func(o *requestOptions) { o.id = id }
}

// WithState sets the initial state. The value is not validated.
func WithState(s State) RequestOption {
	return func(o *requestOptions) { o.state = s }
}

// WithIDGenerator replaces the generator used when no id is supplied.
func WithIDGenerator(g IDGenerator) RequestOption {
	return func(o *requestOptions) { o.newID = g }
}

// NewRequest builds a request in state VALIDATED with a fresh id unless the
// options say otherwise.
func NewRequest(in NewRequestInput, opts ...RequestOption) *Request {
	o := requestOptions{state: StateValidated, newID: NewUUID}
	for _, opt := range opts {
		opt(&o)
	}
	if o.state == "" {
		o.state = StateValidated
	}
	id := o.id
	if id == "" {
		id = o.newID()
	}

	return &Request{
		ID:            id,
		OrgUUID:       in.OrgUUID,
		Title:         in.Title,
		PublicRequest: in.PublicRequest,
		Source:        in.Source,
		Category:      in.Category,
		State:         o.state,
	}
}

// Serialize returns the canonical JSON form of r.
func (r *Request) Serialize() string {
	// Marshal cannot fail for string and bool fields.
	b, _ := json.Marshal(r) //nolint:errchkjson // see above
	return string(b)
}

// requestRecord mirrors Request with pointers so missing fields can be detected.
type requestRecord struct {
	ID            *string `json:"id"`
	OrgUUID       *string `json:"orgUUID"`
	Title         *string `json:"title"`
	PublicRequest *bool   `json:"publicRequest"`
	Source        *string `json:"source"`
	Category      *string `json:"category"`
	State         *string `json:"state"`
}

// ParseRequest reconstructs a request from its canonical form.
// Anything but a complete record with a known state yields ErrMalformedRecord.
func ParseRequest(data string) (*Request, error) {
	var rec requestRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	missing := ""
	switch {
	case rec.ID == nil || *rec.ID == "":
		missing = "id"
	case rec.OrgUUID == nil:
		missing = "orgUUID"
	case rec.Title == nil:
		missing = "title"
	case rec.PublicRequest == nil:
		missing = "publicRequest"
	case rec.Source == nil:
		missing = "source"
	case rec.Category == nil:
		missing = "category"
	case rec.State == nil:
		missing = "state"
	}
	if missing != "" {
		return nil, fmt.Errorf("%w: missing field %q", ErrMalformedRecord, missing)
	}

	state, err := ParseState(*rec.State)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	return NewRequest(NewRequestInput{
		Title:         *rec.Title,
		OrgUUID:       *rec.OrgUUID,
		PublicRequest: *rec.PublicRequest,
		Source:        *rec.Source,
		Category:      *rec.Category,
	}, WithID(*rec.ID), WithState(state)), nil
}

// Equal reports whether every field of r and other is equal.
func (r *Request) Equal(other *Request) bool {
	if r == nil || other == nil {
		return r == other
	}
	return *r == *other
}

// GoString returns a debug representation with every field.
func (r *Request) GoString() string {
	return fmt.Sprintf(
		"acquisition.Request{ID:%q, OrgUUID:%q, Title:%q, PublicRequest:%t, Source:%q, Category:%q, State:%q}",
		r.ID, r.OrgUUID, r.Title, r.PublicRequest, r.Source, r.Category, r.State,
	)
}

// MarshalZerologObject adds the request fields to a log event.
func (r *Request) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", r.ID).
		Str("org_uuid", r.OrgUUID).
		Str("title", r.Title).
		Bool("public", r.PublicRequest).
		Str("source", r.Source).
		Str("category", r.Category).
		Str("state", string(r.State))
}
