package stt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	assert.ErrorIs(t, err, ErrNoModelPath)
}

func TestPCM_NotLoaded(t *testing.T) {
	var m *Model
	_, err := m.PCM(context.Background(), []float32{0.1}, Options{})
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.NoError(t, m.Close())
}

func TestJoinSegments(t *testing.T) {
	segs := []Segment{
		{Text: " I have had"},
		{Text: "   "},
		{Text: "a fever since Monday. "},
	}
	assert.Equal(t, "I have had a fever since Monday.", joinSegments(segs))
	assert.Equal(t, "", joinSegments(nil))
}
