package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug)

	log.Info().Str("backend", "10.0.0.1:11211").Log("connected")

	out := buf.String()
	assert.True(t, strings.Contains(out, `"backend":"10.0.0.1:11211"`))
	assert.True(t, strings.Contains(out, `"msg":"connected"`))
}

func TestLevelByName_KnownAndUnknown(t *testing.T) {
	assert.Equal(t, LevelDebug, LevelByName("debug"))
	assert.Equal(t, LevelError, LevelByName("error"))
	assert.Equal(t, LevelInformational, LevelByName("nonsense"))
	assert.Equal(t, LevelInformational, LevelByName(""))
}

func TestDiscard_ProducesNoOutput(t *testing.T) {
	log := Discard()
	// Should not panic even though nothing observes the output.
	log.Err().Log("should not appear anywhere")
}
