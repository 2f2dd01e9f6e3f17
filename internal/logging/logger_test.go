package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(&bytes.Buffer{})
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestErrorIncludesErrorField(t *testing.T) {
	buf := capture(t, LevelInfo)

	Error("battle failed", errors.New("boom"), Fields{"battle_id": "b1"})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "battle failed", line["msg"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "b1", line["battle_id"])
}

func TestLevelFiltersDebug(t *testing.T) {
	buf := capture(t, LevelInfo)

	Debug("hidden", nil)
	Info("shown", nil)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestFatalExits(t *testing.T) {
	buf := capture(t, LevelInfo)
	code := 0
	prev := exit
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = prev })

	Fatal("dead", nil, nil)

	assert.Equal(t, 1, code)
	assert.True(t, strings.Contains(buf.String(), `"level":"fatal"`))
}

func TestCallerFieldsNotMutated(t *testing.T) {
	capture(t, LevelInfo)
	f := Fields{"a": 1}

	Warn("w", errors.New("x"), f)

	_, has := f["error"]
	assert.False(t, has)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}
