package acquisition_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataacquisition/das/internal/acquisition"
)

func censusInput() acquisition.NewRequestInput {
	return acquisition.NewRequestInput{
		Title:         "Census 2020",
		OrgUUID:       "org-1",
		PublicRequest: true,
		Source:        "gov.data",
		Category:      "demographics",
	}
}

func TestNewRequest_Defaults(t *testing.T) {
	req := acquisition.NewRequest(censusInput())

	assert.Equal(t, acquisition.StateValidated, req.State)
	assert.Equal(t, "Census 2020", req.Title)
	assert.Equal(t, "org-1", req.OrgUUID)
	assert.True(t, req.PublicRequest)
	assert.Equal(t, "gov.data", req.Source)
	assert.Equal(t, "demographics", req.Category)

	parsed, err := uuid.Parse(req.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestNewRequest_ExplicitIDIsKept(t *testing.T) {
	req := acquisition.NewRequest(censusInput(), acquisition.WithID("fixed-id"))
	assert.Equal(t, "fixed-id", req.ID)
}

func TestNewRequest_StateIsNotValidated(t *testing.T) {
	req := acquisition.NewRequest(censusInput(), acquisition.WithState("BOGUS"))
	assert.Equal(t, acquisition.State("BOGUS"), req.State)
}

func TestNewRequest_UniqueIDs(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 10000; i++ {
		id := acquisition.NewRequest(censusInput()).ID
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewRequest_CustomGenerator(t *testing.T) {
	n := 0
	gen := func() string {
		n++
		return fmt.Sprintf("req-%d", n)
	}

	first := acquisition.NewRequest(censusInput(), acquisition.WithIDGenerator(gen))
	second := acquisition.NewRequest(censusInput(), acquisition.WithIDGenerator(gen))

	assert.Equal(t, "req-1", first.ID)
	assert.Equal(t, "req-2", second.ID)
}

func TestRequest_SerializeFieldNames(t *testing.T) {
	req := acquisition.NewRequest(censusInput(), acquisition.WithID("abc"))

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Serialize()), &fields))

	assert.Equal(t, map[string]any{
		"id":            "abc",
		"orgUUID":       "org-1",
		"title":         "Census 2020",
		"publicRequest": true,
		"source":        "gov.data",
		"category":      "demographics",
		"state":         "VALIDATED",
	}, fields)
	assert.Equal(t, req.Serialize(), req.Serialize(), "serialization must be stable")
}

func TestRequest_RoundTrip(t *testing.T) {
	for _, state := range acquisition.States {
		for _, public := range []bool{true, false} {
			t.Run(fmt.Sprintf("%s/%t", state, public), func(t *testing.T) {
				in := censusInput()
				in.PublicRequest = public
				in.Title = `quotes "and" unicode ✓`
				orig := acquisition.NewRequest(in, acquisition.WithState(state))

				parsed, err := acquisition.ParseRequest(orig.Serialize())
				require.NoError(t, err)
				assert.True(t, orig.Equal(parsed))
			})
		}
	}
}

func TestParseRequest_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{garbage"},
		{"empty", ""},
		{"truncated", `{"id":"a","orgUUID":"o"`},
		{"missing state", `{"id":"a","orgUUID":"o","title":"t","publicRequest":false,"source":"s","category":"c"}`},
		{"missing id", `{"orgUUID":"o","title":"t","publicRequest":false,"source":"s","category":"c","state":"VALIDATED"}`},
		{"unknown state", `{"id":"a","orgUUID":"o","title":"t","publicRequest":false,"source":"s","category":"c","state":"PENDING"}`},
		{"wrong type", `{"id":"a","orgUUID":"o","title":"t","publicRequest":"yes","source":"s","category":"c","state":"VALIDATED"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := acquisition.ParseRequest(tt.data)
			assert.Nil(t, req)
			assert.ErrorIs(t, err, acquisition.ErrMalformedRecord)
		})
	}
}

func TestRequest_Equal(t *testing.T) {
	a := acquisition.NewRequest(censusInput(), acquisition.WithID("x"))
	b := acquisition.NewRequest(censusInput(), acquisition.WithID("x"))

	assert.True(t, a.Equal(b))

	b.State = acquisition.StateError
	assert.False(t, a.Equal(b))

	var nilReq *acquisition.Request
	assert.False(t, a.Equal(nilReq))
	assert.True(t, nilReq.Equal(nil))
}

func TestRequest_GoString(t *testing.T) {
	req := acquisition.NewRequest(censusInput(), acquisition.WithID("x"))

	got := fmt.Sprintf("%#v", req)

	assert.Contains(t, got, "acquisition.Request{")
	assert.Contains(t, got, `ID:"x"`)
	assert.Contains(t, got, `Category:"demographics"`)
	assert.Contains(t, got, `State:"VALIDATED"`)
}

func TestParseState(t *testing.T) {
	for _, s := range acquisition.States {
		got, err := acquisition.ParseState(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := acquisition.ParseState("validated")
	assert.ErrorIs(t, err, acquisition.ErrInvalidState)
}
