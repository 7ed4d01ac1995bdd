package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveLedgerOp(t *testing.T) {
	before := testutil.ToFloat64(ledgerOps.WithLabelValues("pets", "feed", "ok"))

	ObserveLedgerOp("pets", "feed", "ok", 3*time.Millisecond)

	after := testutil.ToFloat64(ledgerOps.WithLabelValues("pets", "feed", "ok"))
	assert.Equal(t, before+1, after)
}

func TestObserveDecaySweep(t *testing.T) {
	beforeErr := testutil.ToFloat64(decaySweeps.WithLabelValues("error"))
	beforePets := testutil.ToFloat64(decayedPets)

	ObserveDecaySweep(4, errors.New("partial"))

	assert.Equal(t, beforeErr+1, testutil.ToFloat64(decaySweeps.WithLabelValues("error")))
	assert.Equal(t, beforePets+4, testutil.ToFloat64(decayedPets))
}

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/pets/{owner}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/pets/{owner}", "418"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pets/abc", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/pets/{owner}", "418")))
}

func TestHandlerServesRegistry(t *testing.T) {
	ObserveLedgerOp("goals", "deposit", "ok", time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stellarpets_ledger_operations_total")
}
