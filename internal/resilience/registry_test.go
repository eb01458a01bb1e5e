package resilience_test

import (
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataacquisition/das/internal/resilience"
)

type fixedBreaker gobreaker.State

func (b fixedBreaker) CircuitBreakerState() gobreaker.State   { return gobreaker.State(b) }
func (b fixedBreaker) CircuitBreakerCounts() gobreaker.Counts { return gobreaker.Counts{} }

func TestRegistry_RegisterClient(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("uaa")
	cfg.Registry = registry

	_ = resilience.NewClient(cfg)

	assert.Equal(t, 1, registry.Len())
	health := registry.Health("uaa")
	require.NotNil(t, health)
	assert.Equal(t, "uaa", health.Name)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.True(t, health.IsHealthy())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("kv-redis", fixedBreaker(gobreaker.StateOpen))
	registry.RecordFailure("kv-redis", assert.AnError)

	registry.Register("kv-redis", fixedBreaker(gobreaker.StateClosed))

	assert.Equal(t, 1, registry.Len())
	health := registry.Health("kv-redis")
	require.NotNil(t, health)
	assert.True(t, health.IsHealthy())
	assert.Empty(t, health.LastError)
}

func TestRegistry_RecordSuccessAndFailure(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("kv-redis", fixedBreaker(gobreaker.StateClosed))

	registry.RecordSuccess("kv-redis")
	registry.RecordFailure("kv-redis", assert.AnError)

	health := registry.Health("kv-redis")
	require.NotNil(t, health)
	require.NotNil(t, health.LastSuccessAt)
	require.NotNil(t, health.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *health.LastFailureAt, time.Second)
	assert.Equal(t, assert.AnError.Error(), health.LastError)
}

func TestRegistry_UnknownNamesAreIgnored(t *testing.T) {
	registry := resilience.NewRegistry()

	registry.RecordSuccess("missing")
	registry.RecordFailure("missing", assert.AnError)

	assert.Nil(t, registry.Health("missing"))
}

func TestRegistry_AllSortedByName(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("uaa", fixedBreaker(gobreaker.StateClosed))
	registry.Register("kv-redis", fixedBreaker(gobreaker.StateOpen))
	registry.Register("user-management", fixedBreaker(gobreaker.StateHalfOpen))

	all := registry.All()
	require.Len(t, all, 3)
	assert.Equal(t, "kv-redis", all[0].Name)
	assert.Equal(t, "uaa", all[1].Name)
	assert.Equal(t, "user-management", all[2].Name)
	assert.True(t, all[0].IsUnhealthy())
	assert.True(t, all[2].IsDegraded())
}

func TestHealth_States(t *testing.T) {
	tests := []struct {
		state     gobreaker.State
		healthy   bool
		degraded  bool
		unhealthy bool
	}{
		{gobreaker.StateClosed, true, false, false},
		{gobreaker.StateHalfOpen, false, true, false},
		{gobreaker.StateOpen, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := &resilience.Health{CircuitState: tt.state}
			assert.Equal(t, tt.healthy, h.IsHealthy())
			assert.Equal(t, tt.degraded, h.IsDegraded())
			assert.Equal(t, tt.unhealthy, h.IsUnhealthy())
		})
	}
}
