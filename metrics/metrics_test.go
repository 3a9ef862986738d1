package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}

func TestHandlerExposesPaymentCounters(t *testing.T) {
	Init()
	before := testutil.ToFloat64(PaymentsTotal.WithLabelValues("TimedOut"))
	PaymentsTotal.WithLabelValues("TimedOut").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PaymentsTotal.WithLabelValues("TimedOut")))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "momo_payments_total")
}
