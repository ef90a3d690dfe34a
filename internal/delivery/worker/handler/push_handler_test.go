package handler

import (
	"context"
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
	deliverycontext "authgate/internal/delivery/context"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

type fakeConsumer struct {
	events     []*service.AccountEvent
	requestIDs []string
	err        error
}

func (f *fakeConsumer) Consume(ctx context.Context, event *service.AccountEvent) error {
	f.events = append(f.events, event)
	f.requestIDs = append(f.requestIDs, deliverycontext.GetRequestIDFromContext(ctx))

	return f.err
}

func newTestPushHandler(consumer *fakeConsumer, worker *config.WorkerConfig) *PushHandler {
	return NewPushHandler(PushHandlerParams{
		Config:   &config.Config{Worker: worker},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Consumer: consumer,
	})
}

func pushBody(t *testing.T, event *service.AccountEvent, attributes map[string]string) string {
	t.Helper()

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var msg PubSubMessage
	msg.Subscription = "projects/test/subscriptions/account-events-sub"
	msg.Message.Data = base64.StdEncoding.EncodeToString(data)
	msg.Message.MessageID = "1"
	msg.Message.Attributes = attributes

	body, err := json.Marshal(msg)
	require.NoError(t, err)

	return string(body)
}

func doPush(h *PushHandler, body string, header http.Header) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/push", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for key, values := range header {
		req.Header[key] = values
	}
	rec := httptest.NewRecorder()

	_ = h.HandlePush(e.NewContext(req, rec))

	return rec
}

func testEvent() *service.AccountEvent {
	return &service.AccountEvent{
		RequestID:  "event-request",
		Type:       service.AccountEventRegistered,
		UserID:     uuid.NewString(),
		Provider:   "local",
		OccurredAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestPushHandler_ConsumesEvent(t *testing.T) {
	consumer := &fakeConsumer{}
	h := newTestPushHandler(consumer, nil)
	event := testEvent()

	rec := doPush(h, pushBody(t, event, map[string]string{"request_id": "attr-request"}), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, consumer.events, 1)
	assert.Equal(t, event.UserID, consumer.events[0].UserID)
	assert.Equal(t, service.AccountEventRegistered, consumer.events[0].Type)
	assert.Equal(t, []string{"attr-request"}, consumer.requestIDs)
}

func TestPushHandler_RequestIDFallsBackToEvent(t *testing.T) {
	consumer := &fakeConsumer{}
	h := newTestPushHandler(consumer, nil)

	rec := doPush(h, pushBody(t, testEvent(), nil), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"event-request"}, consumer.requestIDs)
}

func TestPushHandler_MalformedPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "{"},
		{name: "data is not base64", body: `{"message":{"data":"%%%"}}`},
		{
			name: "data is not an event",
			body: `{"message":{"data":"` + base64.StdEncoding.EncodeToString([]byte("[1,2]")) + `"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			consumer := &fakeConsumer{}
			rec := doPush(newTestPushHandler(consumer, nil), tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, consumer.events)
		})
	}
}

func TestPushHandler_ConsumerErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "rejected events are acknowledged", err: domainerrors.ErrInvalidEvent.WithDetails("unknown event type"), wantCode: http.StatusOK},
		{name: "other failures ask for redelivery", err: errors.New("disk full"), wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestPushHandler(&fakeConsumer{err: tt.err}, nil)

			rec := doPush(h, pushBody(t, testEvent(), nil), nil)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestPushHandler_VerifiesPushToken(t *testing.T) {
	const (
		audience       = "https://worker.example/push"
		serviceAccount = "push@authgate.iam.gserviceaccount.com"
	)

	claims := func(email string, verified bool) map[string]any {
		return map[string]any{"email": email, "email_verified": verified}
	}
	stubValidate := func(_ context.Context, token, gotAudience string) (*idtoken.Payload, error) {
		if gotAudience != audience {
			return nil, errors.Errorf("unexpected audience %s", gotAudience)
		}
		switch token {
		case "good":
			return &idtoken.Payload{Issuer: "https://accounts.google.com", Claims: claims(serviceAccount, true)}, nil
		case "other-account":
			return &idtoken.Payload{Issuer: "https://accounts.google.com", Claims: claims("attacker@example.com", true)}, nil
		case "no-email":
			return &idtoken.Payload{Issuer: "https://accounts.google.com", Claims: map[string]any{"email_verified": true}}, nil
		case "other-issuer":
			return &idtoken.Payload{Issuer: "https://evil.example", Claims: claims(serviceAccount, true)}, nil
		case "unverified":
			return &idtoken.Payload{Issuer: "accounts.google.com", Claims: claims(serviceAccount, false)}, nil
		default:
			return nil, errors.New("bad signature")
		}
	}

	tests := []struct {
		name          string
		cfg           config.WorkerConfig
		authorization string
		wantCode      int
	}{
		{name: "valid token", authorization: "Bearer good", wantCode: http.StatusOK},
		{name: "missing header", wantCode: http.StatusUnauthorized},
		{name: "not a bearer token", authorization: "Basic Zm9vOmJhcg==", wantCode: http.StatusUnauthorized},
		{name: "invalid token", authorization: "Bearer forged", wantCode: http.StatusUnauthorized},
		{name: "wrong issuer", authorization: "Bearer other-issuer", wantCode: http.StatusUnauthorized},
		{name: "unverified email", authorization: "Bearer unverified", wantCode: http.StatusUnauthorized},
		{name: "token for another service account", authorization: "Bearer other-account", wantCode: http.StatusUnauthorized},
		{name: "token without email", authorization: "Bearer no-email", wantCode: http.StatusUnauthorized},
		{
			name:          "audience not configured",
			cfg:           config.WorkerConfig{VerifyPushAuth: true, PushServiceAccount: serviceAccount},
			authorization: "Bearer good",
			wantCode:      http.StatusUnauthorized,
		},
		{
			name:          "service account not configured",
			cfg:           config.WorkerConfig{VerifyPushAuth: true, PushAudience: audience},
			authorization: "Bearer good",
			wantCode:      http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if !cfg.VerifyPushAuth {
				cfg = config.WorkerConfig{VerifyPushAuth: true, PushAudience: audience, PushServiceAccount: serviceAccount}
			}
			consumer := &fakeConsumer{}
			h := newTestPushHandler(consumer, &cfg)
			h.validate = stubValidate

			header := http.Header{}
			if tt.authorization != "" {
				header.Set("Authorization", tt.authorization)
			}
			rec := doPush(h, pushBody(t, testEvent(), nil), header)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Len(t, consumer.events, 1)
			} else {
				assert.Empty(t, consumer.events)
			}
		})
	}
}
