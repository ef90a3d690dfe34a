package worker

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"authgate/config"
	"authgate/internal/delivery/worker/handler"
	"authgate/internal/domain/service"
	"authgate/internal/infra/metrics"
	"authgate/internal/usecase/impl"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func newTestWorker(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{Worker: &config.WorkerConfig{Port: 8090}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := metrics.NewRegistry()
	collector := metrics.NewCollector(registry)

	consumer := impl.NewAuditConsumer(impl.AuditConsumerParams{
		Metrics: metrics.NewAuditMetrics(collector),
		Logger:  logger,
	})
	pushHandler := handler.NewPushHandler(handler.PushHandlerParams{
		Config:   cfg,
		Logger:   logger,
		Consumer: consumer,
	})

	lc := fxtest.NewLifecycle(t)
	srv, err := NewServer(ServerParams{
		Lc:          lc,
		Cfg:         cfg,
		Logger:      logger,
		Registry:    registry,
		PushHandler: pushHandler,
	})
	require.NoError(t, err)

	return srv.(*workerServer).server
}

func encodePush(t *testing.T, event *service.AccountEvent) string {
	t.Helper()

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var msg handler.PubSubMessage
	msg.Message.Data = base64.StdEncoding.EncodeToString(data)
	body, err := json.Marshal(msg)
	require.NoError(t, err)

	return string(body)
}

func post(srv http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/push", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	return rec
}

func TestWorkerServer_RecordsEventsAndExposesMetrics(t *testing.T) {
	srv := newTestWorker(t)

	rec := post(srv, encodePush(t, &service.AccountEvent{
		Type:       service.AccountEventLinked,
		UserID:     uuid.NewString(),
		Provider:   "google",
		OccurredAt: time.Now().UTC(),
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = post(srv, encodePush(t, &service.AccountEvent{Type: "account.unknown"}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `authgate_account_events_total{result="recorded",type="account.linked"} 1`)
	assert.Contains(t, rec.Body.String(), `authgate_account_events_total{result="rejected",type="unknown"} 1`)
}

func TestWorkerServer_RejectsOversizedBodies(t *testing.T) {
	srv := newTestWorker(t)

	rec := post(srv, `{"message":{"data":"`+strings.Repeat("A", 70*1024)+`"}}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestWorkerServer_Health(t *testing.T) {
	srv := newTestWorker(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

