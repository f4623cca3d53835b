package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mcp-tg/github-reader/internal/config"
)

func encodeEntry(t *testing.T, enc zapcore.Encoder, fields ...zap.Field) string {
	t.Helper()
	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "m"}, fields)
	require.NoError(t, err)
	return buf.String()
}

func newTestEncoder(t *testing.T) *RedactingEncoder {
	t.Helper()
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	enc, err := NewRedactingEncoder(base, NewDefaultConfig().Redaction)
	require.NoError(t, err)
	return enc
}

func TestRedactingEncoder_RedactsByFieldName(t *testing.T) {
	enc := newTestEncoder(t)

	out := encodeEntry(t, enc,
		zap.String("token", "ghp_supersecret"),
		zap.String("tool_name", "get_readme"),
	)

	assert.NotContains(t, out, "ghp_supersecret")
	assert.Contains(t, out, `"token":"[REDACTED]"`)
	assert.Contains(t, out, `"tool_name":"get_readme"`)
}

func TestRedactingEncoder_CaseInsensitive(t *testing.T) {
	enc := newTestEncoder(t)

	out := encodeEntry(t, enc, zap.String("Authorization", "Bearer ghp_supersecret"))

	assert.NotContains(t, out, "ghp_supersecret")
	assert.Contains(t, out, "[REDACTED]")
}

func TestRedactingEncoder_Disabled(t *testing.T) {
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	enc, err := NewRedactingEncoder(base, RedactionConfig{Enabled: false})
	require.NoError(t, err)

	out := encodeEntry(t, enc, zap.String("token", "visible"))
	assert.Contains(t, out, "visible")
}

func TestRedactingEncoder_CloneKeepsRules(t *testing.T) {
	enc := newTestEncoder(t)
	clone := enc.Clone()

	out := encodeEntry(t, clone, zap.String("password", "hunter2"))
	assert.NotContains(t, out, "hunter2")
}

func TestSecretField(t *testing.T) {
	enc := newTestEncoder(t)

	out := encodeEntry(t, enc, Secret("github_token", config.Secret("ghp_supersecret")))

	assert.NotContains(t, out, "ghp_supersecret")
	assert.Contains(t, out, "[REDACTED:15]")
}

func TestRedactedString(t *testing.T) {
	f := RedactedString("key", "value")
	assert.Equal(t, "[REDACTED:5]", f.String)
}
