package pmolog

import (
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	defer func() {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
	}()

	require.NoError(t, Setup("debug", false))
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	require.NoError(t, Setup("warn", true))
	assert.Equal(t, log.WarnLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	assert.Error(t, Setup("loud", false))
}

func TestPrettyXML(t *testing.T) {
	out := PrettyXML(`<a><b>1</b></a>`)
	assert.Contains(t, out, "\n  <b>1</b>")

	assert.Equal(t, "not xml", PrettyXML("not xml"))
	assert.True(t, strings.HasPrefix(XMLDetails("<a/>"), "<details>"))
}

func TestWebLoggerReplay(t *testing.T) {
	wl := NewWebLogger(2)

	logger := log.New()
	logger.AddHook(wl)
	logger.SetLevel(log.DebugLevel)

	logger.Info("one")
	logger.Info("two")
	logger.Warn("three")

	replay := wl.Replay()
	require.Len(t, replay, 2)
	assert.Contains(t, replay[0], `"content":"two"`)
	assert.Contains(t, replay[1], `"level":"warning"`)
}

func TestWebLoggerBroadcast(t *testing.T) {
	wl := NewWebLogger(4)
	ch := wl.attach()
	defer wl.detach(ch)

	logger := log.New()
	logger.AddHook(wl)
	logger.Info("hello")

	msg := <-ch
	assert.Contains(t, msg, `"content":"hello"`)
}
