package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webhook-bot/internal/config"
	"webhook-bot/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := New(ctx, config.DatabaseConfig{Driver: "sqlite", Path: t.TempDir(), Name: "test"})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Bootstrap(ctx))
	return s
}

type fixture struct {
	user    int64
	bot     model.Bot
	webhook model.Webhook
}

func newFixture(t *testing.T, s *Store) fixture {
	t.Helper()
	ctx := context.Background()
	uid, err := s.CreateUser(ctx, gofakeit.Email(), "hash", []string{"user"})
	require.NoError(t, err)

	bot := model.Bot{UserID: uid, Name: gofakeit.Username(), BotKey: gofakeit.UUID()}
	require.NoError(t, s.CreateBot(ctx, &bot))

	wh := model.Webhook{
		UserID:    uid,
		BotID:     bot.ID,
		Name:      gofakeit.Word(),
		TargetURL: gofakeit.URL(),
		Token:     gofakeit.UUID(),
	}
	require.NoError(t, s.CreateWebhook(ctx, &wh))
	return fixture{user: uid, bot: bot, webhook: wh}
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "a = ?1 AND b = ?12", (&SQLiteDialect{}).Rebind("a = $1 AND b = $12"))
	assert.Equal(t, "a = $1", (&PostgresDialect{}).Rebind("a = $1"))
}

func TestBootstrap_SeedsAdminOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	admin, err := s.GetUserByEmail(ctx, AdminEmail)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, admin.Roles)
	assert.True(t, admin.Active)

	require.NoError(t, s.Bootstrap(ctx))
	row, err := s.QueryRow(ctx, s.DB, "SELECT COUNT(*) AS n FROM users")
	require.NoError(t, err)
	assert.Equal(t, int64(1), asInt64(row["n"]))
}

func TestUniqueViolation(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateUser(context.Background(), AdminEmail, "x", nil)
	assert.True(t, errors.Is(err, ErrUniqueViolation), "got %v", err)
}

func TestPayloadConditions_RoundTripPreservesOrderAndText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s)

	conds := []model.Condition{
		{Field: "payload->user->age", Operator: ">=", Value: "18"},
		{Field: "action", Operator: "==", Value: "opened"},
		{Field: "labels", Operator: "contains", Value: "needs review"},
		{Field: "zeta", Operator: "!=", Value: "0.50"},
	}
	p := model.Payload{
		WebhookID:   f.webhook.ID,
		ContentType: model.ContentText,
		Content:     "Hi {{ user.name }}",
		Params:      `{"user":{"name":"x"}}`,
		Conditions:  conds,
	}
	require.NoError(t, s.CreatePayload(ctx, &p))

	got, err := s.GetPayload(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Conditions, len(conds))
	for i, c := range got.Conditions {
		assert.Equal(t, conds[i].Field, c.Field)
		assert.Equal(t, conds[i].Operator, c.Operator)
		assert.Equal(t, conds[i].Value, c.Value)
		assert.Equal(t, p.ID, c.PayloadID)
		assert.Equal(t, i, c.Position)
	}
	assert.Equal(t, "Hi {{ user.name }}", got.Content)
	assert.Equal(t, `{"user":{"name":"x"}}`, got.Params)
}

func TestListPayloads_StoredOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s)

	for _, content := range []string{"first", "second", "third"} {
		p := model.Payload{WebhookID: f.webhook.ID, ContentType: model.ContentText, Content: content}
		require.NoError(t, s.CreatePayload(ctx, &p))
	}

	payloads, err := s.ListPayloads(ctx, f.webhook.ID)
	require.NoError(t, err)
	require.Len(t, payloads, 3)
	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, want, payloads[i].Content)
		assert.Equal(t, i, payloads[i].Position)
		assert.NotNil(t, payloads[i].Conditions)
	}
}

func TestUpdatePayload_ReconcilesConditions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s)

	p := model.Payload{
		WebhookID:   f.webhook.ID,
		ContentType: model.ContentText,
		Content:     "v1",
		Conditions: []model.Condition{
			{Field: "a", Operator: "==", Value: "1"},
			{Field: "b", Operator: "==", Value: "2"},
			{Field: "c", Operator: "==", Value: "3"},
		},
	}
	require.NoError(t, s.CreatePayload(ctx, &p))
	a, b, c := p.Conditions[0], p.Conditions[1], p.Conditions[2]

	other := model.Payload{WebhookID: f.webhook.ID, ContentType: model.ContentText, Content: "other",
		Conditions: []model.Condition{{Field: "x", Operator: "==", Value: "9"}}}
	require.NoError(t, s.CreatePayload(ctx, &other))

	// Keep a untouched, edit b, drop c, add d, and try to hijack other's condition.
	update := model.Payload{
		ID:          p.ID,
		WebhookID:   f.webhook.ID,
		ContentType: model.ContentText,
		Content:     "v2",
		Conditions: []model.Condition{
			{ID: b.ID, Field: "b", Operator: ">", Value: "20"},
			{Field: "d", Operator: "<", Value: "4"},
			{ID: other.Conditions[0].ID, Field: "x", Operator: "==", Value: "hijacked"},
		},
	}
	require.NoError(t, s.UpdatePayload(ctx, &update, []int64{a.ID}))

	assert.Equal(t, "v2", update.Content)
	require.Len(t, update.Conditions, 3)
	assert.Equal(t, a.ID, update.Conditions[0].ID)
	assert.Equal(t, b.ID, update.Conditions[1].ID)
	assert.Equal(t, model.Operator(">"), update.Conditions[1].Operator)
	assert.Equal(t, "20", update.Conditions[1].Value)
	assert.Equal(t, "d", update.Conditions[2].Field)
	for _, cond := range update.Conditions {
		assert.NotEqual(t, c.ID, cond.ID)
	}

	untouched, err := s.GetPayload(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, untouched.Conditions, 1)
	assert.Equal(t, "9", untouched.Conditions[0].Value)
}

func TestDeleteWebhook_CascadesToConditions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s)

	p := model.Payload{WebhookID: f.webhook.ID, ContentType: model.ContentText, Content: "x",
		Conditions: []model.Condition{{Field: "a", Operator: "==", Value: "1"}}}
	require.NoError(t, s.CreatePayload(ctx, &p))
	require.NoError(t, s.DeleteWebhook(ctx, f.webhook.ID))

	_, err := s.GetPayload(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	row, err := s.QueryRow(ctx, s.DB, "SELECT COUNT(*) AS n FROM conditions")
	require.NoError(t, err)
	assert.Equal(t, int64(0), asInt64(row["n"]))
}

func TestTemplates_VisibilityAndStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s)
	otherUser, err := s.CreateUser(ctx, gofakeit.Email(), "hash", nil)
	require.NoError(t, err)

	mine := model.Template{UserID: f.user, Name: "mine", ContentType: model.ContentText, Content: "a",
		Conditions: []model.Condition{{Field: "k", Operator: "==", Value: "v"}}}
	require.NoError(t, s.CreateTemplate(ctx, &mine))
	assert.Equal(t, model.StatusPrivate, mine.Status)

	theirs := model.Template{UserID: otherUser, Name: "theirs", ContentType: model.ContentText, Content: "b"}
	require.NoError(t, s.CreateTemplate(ctx, &theirs))

	visible, err := s.ListTemplates(ctx, TemplateFilter{VisibleTo: f.user})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "mine", visible[0].Name)
	require.Len(t, visible[0].Conditions, 1)

	require.NoError(t, s.SetTemplateStatus(ctx, theirs.ID, model.StatusPublic))
	visible, err = s.ListTemplates(ctx, TemplateFilter{VisibleTo: f.user})
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	reviewing, err := s.ListTemplates(ctx, TemplateFilter{Status: model.StatusReviewing})
	require.NoError(t, err)
	assert.Empty(t, reviewing)

	mine.Name = "renamed"
	mine.Conditions = nil
	require.NoError(t, s.UpdateTemplate(ctx, &mine, nil))
	assert.Equal(t, "renamed", mine.Name)
	assert.Empty(t, mine.Conditions)
}

func TestDeliveryLogs_DueRetries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s)

	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	due := model.DeliveryLog{WebhookID: f.webhook.ID, PayloadID: 1, URL: f.webhook.TargetURL,
		Status: model.DeliveryRetrying, Attempt: 1, MaxAttempts: 3, NextRetryAt: &past, IdempotencyKey: gofakeit.UUID()}
	later := due
	later.NextRetryAt = &future
	later.IdempotencyKey = gofakeit.UUID()
	done := due
	done.Status = model.DeliveryDelivered
	done.NextRetryAt = nil

	for _, d := range []*model.DeliveryLog{&due, &later, &done} {
		require.NoError(t, s.CreateDeliveryLog(ctx, d))
	}

	retries, err := s.DueRetries(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, retries, 1)
	assert.Equal(t, due.ID, retries[0].ID)
	require.NotNil(t, retries[0].NextRetryAt)
	assert.Equal(t, past.Unix(), retries[0].NextRetryAt.Unix())

	due.Status = model.DeliveryDelivered
	due.Attempt = 2
	due.NextRetryAt = nil
	require.NoError(t, s.UpdateDeliveryLog(ctx, &due))

	logs, err := s.ListDeliveryLogs(ctx, f.webhook.ID, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
	assert.Equal(t, done.ID, logs[0].ID)
}

func TestSeedTemplates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
templates:
  - name: Greeting
    content: "Hello {{ name }}"
    params: '{"name": "x"}'
    conditions:
      - field: name
        operator: "!="
        value: nobody
  - name: Broken
    content: ""
`), 0644))

	n, err := s.SeedTemplates(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.SeedTemplates(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	public, err := s.ListTemplates(ctx, TemplateFilter{Status: model.StatusPublic})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "Greeting", public[0].Name)
	assert.Equal(t, model.ContentText, public[0].ContentType)
	require.Len(t, public[0].Conditions, 1)
	assert.Equal(t, model.Operator("!="), public[0].Conditions[0].Operator)
}

func TestSeedFileInRepoParses(t *testing.T) {
	seed, err := LoadSeedFile("../../seed/templates.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, seed.Templates)
}

func TestDeleteBot_RefusedWhileWebhookUsesIt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s)

	inUse, err := s.BotInUse(ctx, f.bot.ID)
	require.NoError(t, err)
	assert.True(t, inUse)

	err = s.DeleteBot(ctx, f.bot.ID)
	assert.True(t, errors.Is(err, ErrForeignKeyViolation), "got %v", err)
	_, err = s.GetWebhook(ctx, f.webhook.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteWebhook(ctx, f.webhook.ID))
	inUse, err = s.BotInUse(ctx, f.bot.ID)
	require.NoError(t, err)
	assert.False(t, inUse)
	require.NoError(t, s.DeleteBot(ctx, f.bot.ID))
}

func TestBots_KeyUniquePerUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s)

	dup := model.Bot{UserID: f.user, Name: "other", BotKey: f.bot.BotKey}
	err := s.CreateBot(ctx, &dup)
	assert.True(t, errors.Is(err, ErrUniqueViolation), "got %v", err)

	other, err := s.CreateUser(ctx, gofakeit.Email(), "hash", []string{"user"})
	require.NoError(t, err)
	dup.UserID = other
	require.NoError(t, s.CreateBot(ctx, &dup))
}
