package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"webhook-bot/internal/config"
	"webhook-bot/internal/model"
	"webhook-bot/internal/store"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testMessage() Message {
	return Message{
		WebhookID:      gofakeit.Int64(),
		PayloadID:      gofakeit.Int64(),
		URL:            "http://bot.invalid/post",
		BotKey:         gofakeit.UUID(),
		ContentType:    model.ContentText,
		Content:        gofakeit.Sentence(5),
		IdempotencyKey: gofakeit.UUID(),
	}
}

func TestBuildBody(t *testing.T) {
	body, err := BuildBody(model.ContentText, "hi <b>")
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi <b>"}`, string(body))

	body, err = BuildBody(model.ContentBlocks, `[{"type":"section","text":"x"}]`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"blocks":[{"type":"section","text":"x"}]}`, string(body))

	_, err = BuildBody(model.ContentBlocks, `not json`)
	assert.Error(t, err)
}

func TestHTTPSender_Send(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	msg := testMessage()
	msg.URL = srv.URL
	req, err := BuildRequest(msg)
	require.NoError(t, err)

	result := NewHTTPSender(time.Second).Send(context.Background(), req)
	require.True(t, result.OK(), "%+v", result)
	assert.Equal(t, http.StatusAccepted, result.StatusCode)
	assert.Equal(t, `{"ok":true}`, result.ResponseBody)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "Bearer "+msg.BotKey, got.Header.Get("Authorization"))
	assert.Equal(t, msg.IdempotencyKey, got.Header.Get("Idempotency-Key"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"text":`+mustJSON(t, msg.Content)+`}`, string(gotBody))
}

func TestHTTPSender_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	sender := NewHTTPSender(time.Second)
	result := sender.Send(context.Background(), Request{URL: srv.URL, Body: []byte(`{}`)})
	assert.False(t, result.OK())
	assert.Equal(t, "HTTP 502", result.Failure())

	srv.Close()
	result = sender.Send(context.Background(), Request{URL: srv.URL, Body: []byte(`{}`)})
	assert.False(t, result.OK())
	assert.Zero(t, result.StatusCode)
	assert.NotEmpty(t, result.Failure())
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func newTestService(st LogStore, sender Sender, opts Options) *Service {
	svc := NewService(st, sender, opts)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestService_Deliver(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		result      *Result
		wantStatus  string
		wantRetryIn time.Duration
	}{
		{name: "delivered", maxAttempts: 3, result: &Result{StatusCode: 200}, wantStatus: model.DeliveryDelivered},
		{name: "non-2xx schedules retry", maxAttempts: 3, result: &Result{StatusCode: 500}, wantStatus: model.DeliveryRetrying, wantRetryIn: 20 * time.Second},
		{name: "transport error schedules retry", maxAttempts: 3, result: &Result{Error: "dial tcp: refused"}, wantStatus: model.DeliveryRetrying, wantRetryIn: 20 * time.Second},
		{name: "single attempt fails outright", maxAttempts: 1, result: &Result{StatusCode: 404}, wantStatus: model.DeliveryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			st := NewMockLogStore(ctrl)
			sender := NewMockSender(ctrl)
			msg := testMessage()

			sender.EXPECT().Send(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, req Request) *Result {
					assert.Equal(t, msg.URL, req.URL)
					assert.Equal(t, msg.BotKey, req.BotKey)
					return tt.result
				})
			st.EXPECT().CreateDeliveryLog(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, d *model.DeliveryLog) error {
					d.ID = 7
					return nil
				})

			svc := newTestService(st, sender, Options{MaxAttempts: tt.maxAttempts, RetryInterval: 10 * time.Second})
			entry, err := svc.Deliver(context.Background(), msg)
			require.NoError(t, err)

			assert.Equal(t, int64(7), entry.ID)
			assert.Equal(t, tt.wantStatus, entry.Status)
			assert.Equal(t, 1, entry.Attempt)
			assert.Equal(t, msg.IdempotencyKey, entry.IdempotencyKey)
			if tt.wantRetryIn > 0 {
				require.NotNil(t, entry.NextRetryAt)
				assert.Equal(t, fixedNow.Add(tt.wantRetryIn), *entry.NextRetryAt)
			} else {
				assert.Nil(t, entry.NextRetryAt)
			}
		})
	}
}

func TestService_Deliver_LogError(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := NewMockLogStore(ctrl)
	sender := NewMockSender(ctrl)

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(&Result{StatusCode: 200})
	st.EXPECT().CreateDeliveryLog(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	_, err := newTestService(st, sender, Options{}).Deliver(context.Background(), testMessage())
	assert.ErrorContains(t, err, "disk full")
}

func TestService_Submit_QueueMode(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := NewMockLogStore(ctrl)
	sender := NewMockSender(ctrl)
	enq := NewMockEnqueuer(ctrl)
	msg := testMessage()

	enq.EXPECT().Enqueue(gomock.Any(), msg).Return(nil)
	svc := newTestService(st, sender, Options{Enqueuer: enq})
	require.NoError(t, svc.Submit(context.Background(), msg))

	enq.EXPECT().Enqueue(gomock.Any(), msg).Return(errors.New("redis down"))
	assert.ErrorContains(t, svc.Submit(context.Background(), msg), "redis down")
}

func TestService_Submit_Inline(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := NewMockLogStore(ctrl)
	sender := NewMockSender(ctrl)

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(&Result{StatusCode: 204})
	st.EXPECT().CreateDeliveryLog(gomock.Any(), gomock.Any()).Return(nil)

	svc := newTestService(st, sender, Options{})
	require.NoError(t, svc.Submit(context.Background(), testMessage()))
	svc.Wait()
}

func TestService_ProcessRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := NewMockLogStore(ctrl)
	sender := NewMockSender(ctrl)

	due := model.DeliveryLog{
		ID:          3,
		WebhookID:   11,
		URL:         "http://bot.invalid/post",
		RequestBody: `{"text":"hi"}`,
		Status:      model.DeliveryRetrying,
		Attempt:     1,
		MaxAttempts: 2,
	}

	st.EXPECT().DueRetries(gomock.Any(), fixedNow, 50).Return([]model.DeliveryLog{due}, nil)
	st.EXPECT().GetWebhook(gomock.Any(), int64(11)).Return(&model.Webhook{ID: 11, BotID: 5}, nil)
	st.EXPECT().GetBot(gomock.Any(), int64(5)).Return(&model.Bot{ID: 5, BotKey: "key-5"}, nil)
	sender.EXPECT().Send(gomock.Any(), Request{URL: due.URL, BotKey: "key-5", Body: []byte(due.RequestBody)}).
		Return(&Result{StatusCode: 503})
	st.EXPECT().UpdateDeliveryLog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, d *model.DeliveryLog) error {
			assert.Equal(t, int64(3), d.ID)
			assert.Equal(t, 2, d.Attempt)
			assert.Equal(t, model.DeliveryFailed, d.Status)
			assert.Nil(t, d.NextRetryAt)
			return nil
		})

	svc := newTestService(st, sender, Options{MaxAttempts: 2})
	require.NoError(t, svc.ProcessRetries(context.Background()))
}

func TestService_ProcessRetries_MissingWebhook(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := NewMockLogStore(ctrl)
	sender := NewMockSender(ctrl)

	st.EXPECT().DueRetries(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]model.DeliveryLog{{ID: 1, WebhookID: 9, Attempt: 1, MaxAttempts: 3}}, nil)
	st.EXPECT().GetWebhook(gomock.Any(), int64(9)).Return(nil, store.ErrNotFound)

	err := newTestService(st, sender, Options{}).ProcessRetries(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNewTask(t *testing.T) {
	msg := testMessage()
	task, opts, err := NewTask(msg)
	require.NoError(t, err)
	assert.Equal(t, TypeDeliverySend, task.Type())
	assert.NotEmpty(t, opts)

	var decoded Message
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, msg, decoded)
}

func TestTaskHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := NewMockLogStore(ctrl)
	sender := NewMockSender(ctrl)
	handler := NewTaskHandler(newTestService(st, sender, Options{}))

	err := handler(context.Background(), asynq.NewTask(TypeDeliverySend, []byte(`{broken`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = handler(context.Background(), asynq.NewTask(TypeDeliverySend, []byte(`{"webhook_id":1}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(&Result{StatusCode: 200})
	st.EXPECT().CreateDeliveryLog(gomock.Any(), gomock.Any()).Return(nil)
	task, _, err := NewTask(testMessage())
	require.NoError(t, err)
	assert.NoError(t, handler(context.Background(), task))
}

// Full path against a real SQLite store and HTTP target: a failing target
// leaves a retrying log that the next retry pass marks delivered.
func TestService_RetryAgainstStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.New(ctx, config.DatabaseConfig{Driver: "sqlite", Path: t.TempDir(), Name: "delivery"})
	require.NoError(t, err)
	t.Cleanup(st.Close)
	require.NoError(t, st.Bootstrap(ctx))

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "Bearer bot-key", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	admin, err := st.GetUserByEmail(ctx, store.AdminEmail)
	require.NoError(t, err)
	bot := &model.Bot{UserID: admin.ID, Name: "ops", BotKey: "bot-key"}
	require.NoError(t, st.CreateBot(ctx, bot))
	wh := &model.Webhook{UserID: admin.ID, BotID: bot.ID, Name: "deploys", TargetURL: srv.URL, Token: gofakeit.UUID()}
	require.NoError(t, st.CreateWebhook(ctx, wh))

	svc := NewService(st, NewHTTPSender(time.Second), Options{MaxAttempts: 3, RetryInterval: time.Millisecond})
	msg := Message{WebhookID: wh.ID, URL: srv.URL, BotKey: bot.BotKey, ContentType: model.ContentText, Content: "hi", IdempotencyKey: gofakeit.UUID()}

	entry, err := svc.Deliver(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryRetrying, entry.Status)

	// Stored retry times have second precision.
	svc.now = func() time.Time { return time.Now().Add(time.Minute) }
	require.NoError(t, svc.ProcessRetries(ctx))

	stored, err := st.GetDeliveryLog(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryDelivered, stored.Status)
	assert.Equal(t, 2, stored.Attempt)
	assert.Equal(t, int32(2), calls.Load())
}
