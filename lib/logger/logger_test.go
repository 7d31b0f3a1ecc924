package logger

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New("TEST", &buf, WARNING)

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warning("warning %d", 3)
	l.Error("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "[WARNING] [TEST] ")
	assert.Contains(t, out, "warning 3")
	assert.Contains(t, out, "[ERROR] [TEST] ")
}

func TestModuleSharesOutputAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("ROOT", &buf, INFO).Module("ENGINE")

	l.Debug("hidden")
	l.Info("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.True(t, strings.HasPrefix(buf.String(), "[INFO] [ENGINE] "))
	assert.True(t, strings.HasSuffix(buf.String(), " visible\n"))
}

func TestSetLevelReachesDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	root := New("ROOT", &buf, INFO)
	child := root.Module("STORE")

	root.SetLevel(DEBUG)
	child.Debug("now visible")

	assert.Contains(t, buf.String(), "[DEBUG] [STORE] ")
	assert.Contains(t, buf.String(), "now visible")
}

func TestWithTagsLines(t *testing.T) {
	var buf bytes.Buffer
	l := New("RUNNER", &buf, INFO).With("run=ab12cd34")

	l.Module("RECONCILE").Info("source %s done", "Moz")

	assert.Contains(t, buf.String(), "[INFO] [RECONCILE] ")
	assert.True(t, strings.HasSuffix(buf.String(), " run=ab12cd34 source Moz done\n"))
}

func TestDiscardDropsEverything(t *testing.T) {
	l := Discard()
	l.Error("nothing %d", 1)
}

func TestNewLoggerCreatesLogDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nested", "techup.log")

	l, err := NewLogger("TEST", path, 1, 1, 1, INFO)
	require.NoError(t, err)
	l.Info("hello")

	assert.FileExists(t, path)
}

func TestGetLogLevelFromString(t *testing.T) {
	assert.Equal(t, DEBUG, GetLogLevelFromString("DEBUG"))
	assert.Equal(t, WARNING, GetLogLevelFromString("WARNING"))
	assert.Equal(t, ERROR, GetLogLevelFromString("ERROR"))
	assert.Equal(t, WARNING, GetLogLevelFromString(" warn "))
	assert.Equal(t, DEBUG, GetLogLevelFromString("debug"))
	assert.Equal(t, INFO, GetLogLevelFromString("nonsense"))
	assert.Equal(t, "WARNING", WARNING.String())
}
