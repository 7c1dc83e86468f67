package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLToID_Deterministic(t *testing.T) {
	url := "https://github.com/example/agent-kit"

	first := URLToID(url)
	second := URLToID(url)

	assert.Equal(t, first, second)
	assert.Len(t, first, 16)
}

func TestURLToID_TrimsWhitespace(t *testing.T) {
	assert.Equal(t,
		URLToID("https://example.com/post"),
		URLToID("  https://example.com/post \n"))
}

func TestURLToID_DistinctURLs(t *testing.T) {
	assert.NotEqual(t,
		URLToID("https://example.com/a"),
		URLToID("https://example.com/b"))
}

func TestNewRunID(t *testing.T) {
	first := NewRunID()
	second := NewRunID()

	assert.True(t, strings.HasPrefix(first, "run_"))
	assert.NotEqual(t, first, second)
}
