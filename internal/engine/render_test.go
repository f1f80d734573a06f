package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webhook-bot/internal/model"
)

func TestRender_TextHello(t *testing.T) {
	out, err := Render(model.ContentText, "Hello {{name}}", `{"name":""}`, mustEvent(t, `{"name":"Bo"}`))
	require.NoError(t, err)
	assert.Equal(t, "Hello Bo", out.Content)
	assert.Empty(t, out.Missing)
	assert.Empty(t, out.Undeclared)
}

func TestRender_MissingRendersEmpty(t *testing.T) {
	out, err := Render(model.ContentText, "Hi {{ user.name }}!{{user.name}}", "", mustEvent(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, "Hi !", out.Content)
	assert.Equal(t, []string{"user.name"}, out.Missing)
}

func TestRender_ValueForms(t *testing.T) {
	event := mustEvent(t, `{"n":1.50,"i":42,"b":false,"z":null,"list":[1,"a"],"obj":{"k":"<v>"}}`)
	out, err := Render(model.ContentText, "{{n}}|{{i}}|{{b}}|{{z}}|{{list}}|{{obj}}", "", event)
	require.NoError(t, err)
	assert.Equal(t, `1.5|42|false||[1,"a"]|{"k":"<v>"}`, out.Content)
}

func TestRender_AliasAndArrow(t *testing.T) {
	event := mustEvent(t, `{"user":{"name":"Ann"}}`)
	out, err := Render(model.ContentText, "{{ $payload->user->name }} / {{payload.user.name}}", `{"user":{"name":"x"}}`, event)
	require.NoError(t, err)
	assert.Equal(t, "Ann / Ann", out.Content)
	assert.Empty(t, out.Undeclared)
}

func TestRender_Undeclared(t *testing.T) {
	out, err := Render(model.ContentText, "{{name}} {{age}}", `{"name":"sample"}`, mustEvent(t, `{"name":"Bo","age":3}`))
	require.NoError(t, err)
	assert.Equal(t, "Bo 3", out.Content)
	assert.Equal(t, []string{"age"}, out.Undeclared)
}

func TestRender_InvalidTokenLeftAlone(t *testing.T) {
	out, err := Render(model.ContentText, "{{ a..b }} {{}}", "", mustEvent(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, "{{ a..b }} {{}}", out.Content)
}

func TestRender_Blocks(t *testing.T) {
	content := `[{"type":"section","text":{"type":"mrkdwn","text":"PR by *{{user.login}}*"},"count":2}]`
	out, err := Render(model.ContentBlocks, content, "", mustEvent(t, `{"user":{"login":"octo"}}`))
	require.NoError(t, err)
	assert.Equal(t, model.ContentBlocks, out.ContentType)
	assert.JSONEq(t, `[{"type":"section","text":{"type":"mrkdwn","text":"PR by *octo*"},"count":2}]`, out.Content)
}

func TestRender_BlocksMalformed(t *testing.T) {
	for _, content := range []string{`not json`, `"just a string"`, `42`, `{"a":1} {"b":2}`} {
		_, err := Render(model.ContentBlocks, content, "", mustEvent(t, `{}`))
		var rerr *RenderError
		require.True(t, errors.As(err, &rerr), "content %q", content)
		assert.Equal(t, MalformedTemplate, rerr.Kind)
	}
}

func TestRender_UnsupportedContentType(t *testing.T) {
	_, err := Render(model.ContentType("html"), "x", "", Null())
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, UnsupportedContentType, rerr.Kind)
}

func TestDeclaredParams(t *testing.T) {
	got := DeclaredParams(`{"user":{"name":"a"},"items":[{"id":1}]}`)
	for _, name := range []string{"user", "user.name", "items", "items.0", "items.0.id"} {
		assert.True(t, got[name], "expected %s declared", name)
	}
	assert.Empty(t, DeclaredParams(""))
	assert.Empty(t, DeclaredParams("{broken"))
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{{a}} {{ $payload->b }} {{a}} {{c.0}}")
	assert.Equal(t, []string{"a", "b", "c.0"}, got)
}
