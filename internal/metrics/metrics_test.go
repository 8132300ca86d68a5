package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()

	m.Observe(OpLogin, nil)
	m.Observe(OpLogin, errors.New("bad password"))
	m.Observe(OpLogin, errors.New("bad password"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthAttempts.WithLabelValues(OpLogin, OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthAttempts.WithLabelValues(OpLogin, OutcomeFailure)))
}

func TestObserve_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.Observe(OpSignup, nil) })
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observe(OpRefresh, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `user_management_auth_attempts_total{operation="refresh",outcome="success"} 1`)
}
