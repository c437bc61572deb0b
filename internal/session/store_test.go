package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"media-studio/internal/studio"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestStore_OneStudioPerChat(t *testing.T) {
	built := 0
	s := NewStore(Options{NewStudio: func() *studio.Studio {
		built++
		return studio.New(studio.Options{})
	}})

	a := s.Studio(1, "ann")
	assert.Same(t, a, s.Studio(1, ""))
	assert.NotSame(t, a, s.Studio(2, "bo"))
	assert.Equal(t, 2, built)
	assert.Equal(t, 2, s.Len())

	s.Reset(1)
	assert.NotSame(t, a, s.Studio(1, ""))
	s.Reset(99)
	assert.Equal(t, 2, s.Len())
}

func TestStore_Prune(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	s := NewStore(Options{Now: c.now})

	s.Studio(1, "")
	c.t = c.t.Add(90 * time.Minute)
	s.Studio(2, "")
	c.t = c.t.Add(40 * time.Minute)

	assert.Equal(t, 1, s.Prune(time.Hour))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.Prune(time.Hour))
}
