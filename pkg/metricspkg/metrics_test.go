package metricspkg

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveTransfer(t *testing.T) {
	before := testutil.ToFloat64(transfers.WithLabelValues("send", OutcomeCompleted))

	ObserveTransfer("send", OutcomeCompleted, 3*time.Millisecond)

	got := testutil.ToFloat64(transfers.WithLabelValues("send", OutcomeCompleted))
	require.Equal(t, before+1, got)
}

func TestCounters(t *testing.T) {
	comp := testutil.ToFloat64(compensationFailures)
	notif := testutil.ToFloat64(notificationFailures)

	IncCompensationFailures()
	IncNotificationFailures()
	IncNotificationFailures()

	require.Equal(t, comp+1, testutil.ToFloat64(compensationFailures))
	require.Equal(t, notif+2, testutil.ToFloat64(notificationFailures))

	SetUnresolvedCompensationFailures(7)
	require.Equal(t, float64(7), testutil.ToFloat64(unresolvedCompensationFailures))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/ping/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })
	router.GET("/metrics", gin.WrapH(Handler()))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping/42", nil)
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusTeapot, recorder.Code)

	require.Equal(t, float64(1), testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/ping/:id", "418")))

	recorder = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.True(t, strings.Contains(recorder.Body.String(), "wallet_http_requests_total"))
}
