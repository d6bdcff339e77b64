package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortID(t *testing.T) {
	assert.Equal(t, "17", ShortID("https://ris.example.org/oparl/v1/meeting/17"))
	assert.Equal(t, "17", ShortID("https://ris.example.org/oparl/v1/meeting/17/"))
	assert.Equal(t, "41", ShortID("http://ris.example.org/meeting/41"))
	assert.Equal(t, "abc", ShortID("abc"))
	assert.Equal(t, "a/b", ShortID("a/b"))
}

func TestEffectiveState(t *testing.T) {
	m := Meeting{State: StateInvited}
	assert.Equal(t, StateInvited, m.EffectiveState())
	m.Cancelled = true
	assert.Equal(t, StateCancelled, m.EffectiveState())
}
