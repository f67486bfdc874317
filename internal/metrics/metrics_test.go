package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	before := testutil.ToFloat64(DedupListings.WithLabelValues("fallback"))
	DedupListings.WithLabelValues("fallback").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(DedupListings.WithLabelValues("fallback")))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "markport_dedup_listings_total")
}
