package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func setupLoggerTest() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)
	SetOutput(buf)
	return buf, func() {
		SetOutput(os.Stderr)
		SetVerbose(false)
	}
}

func TestSetVerbose(t *testing.T) {
	_, cleanup := setupLoggerTest()
	defer cleanup()

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_OnlyWhenVerbose(t *testing.T) {
	buf, cleanup := setupLoggerTest()
	defer cleanup()

	Debug("hidden %s", "message")
	assert.Empty(t, buf.String())

	SetVerbose(true)
	Debug("shown %s", "message")
	assert.Contains(t, buf.String(), "[DEBUG] shown message")
}

func TestInfoWarnError_AlwaysPrinted(t *testing.T) {
	buf, cleanup := setupLoggerTest()
	defer cleanup()

	Info("info %d", 1)
	Warn("warn %d", 2)
	Error("error %d", 3)

	out := buf.String()
	assert.Contains(t, out, "[INFO] info 1")
	assert.Contains(t, out, "[WARN] warn 2")
	assert.Contains(t, out, "[ERROR] error 3")
}
