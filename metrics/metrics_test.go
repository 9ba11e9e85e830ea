package metrics

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type fakePool struct{ stats sql.DBStats }

func (f fakePool) Stats() sql.DBStats { return f.stats }

type fakeSessions struct {
	n   int
	err error
}

func (f fakeSessions) Count(context.Context) (int, error) { return f.n, f.err }

func TestObserveLogin(t *testing.T) {
	before := testutil.ToFloat64(LoginsTotal.WithLabelValues(LoginInvalid))
	ObserveLogin(LoginInvalid)
	assert.Equal(t, before+1, testutil.ToFloat64(LoginsTotal.WithLabelValues(LoginInvalid)))
}

func TestStatsCollector(t *testing.T) {
	c := NewStatsCollector(
		fakePool{stats: sql.DBStats{OpenConnections: 5, Idle: 3, InUse: 2}},
		fakeSessions{n: 4},
	)
	c.Start(time.Hour)
	c.Stop()

	assert.Equal(t, float64(5), testutil.ToFloat64(DBConnectionPoolSize.WithLabelValues("total")))
	assert.Equal(t, float64(3), testutil.ToFloat64(DBConnectionPoolSize.WithLabelValues("idle")))
	assert.Equal(t, float64(2), testutil.ToFloat64(DBConnectionPoolSize.WithLabelValues("in_use")))
	assert.Equal(t, float64(4), testutil.ToFloat64(SessionsActive))

	// Stop is idempotent.
	c.Stop()
}

func TestStatsCollector_KeepsLastValueOnError(t *testing.T) {
	SessionsActive.Set(9)
	c := NewStatsCollector(nil, fakeSessions{err: errors.New("redis down")})
	c.collect()
	assert.Equal(t, float64(9), testutil.ToFloat64(SessionsActive))
}
