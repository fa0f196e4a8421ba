package metrics

import (
	"testing"

	"github.com/arthur-debert/nanostate/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(Config{Registry: reg})
	require.NoError(t, err)

	var r Recorder = p
	r.CacheHit("full")
	r.CacheHit("full")
	r.CacheMiss("full")
	r.Invalidated(3)
	r.VersionBumped(OwnerEntity)
	r.EventEmitted(types.ActionMove)
	r.EventEmitted(types.ActionMove)
	r.LogFlushed(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.invalidations))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.versionBumps.WithLabelValues(OwnerEntity)))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.events.WithLabelValues(types.ActionMove.String())))

	count, err := testutil.GatherAndCount(reg, "nanostate_collection_flushed_log_size")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(Config{Registry: reg})
	require.NoError(t, err)

	_, err = NewPrometheus(Config{Registry: reg})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NotPanics(t, func() {
		r.CacheHit("x")
		r.Invalidated(1)
		r.EventEmitted(types.ActionReset)
		r.LogFlushed(0)
	})
}
