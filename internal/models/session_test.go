package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendTrimsHistory(t *testing.T) {
	s := NewSession(1)

	for i := 0; i < MaxHistory+10; i++ {
		s.Append(RoleUser, "message")
	}

	assert.Len(t, s.Messages, MaxHistory)
}

func TestAppendTurnKeepsOrder(t *testing.T) {
	s := NewSession(1)
	s.AppendTurn("hola", "respuesta")

	assert.Len(t, s.Messages, 2)
	assert.Equal(t, RoleUser, s.Messages[0].Role)
	assert.Equal(t, "hola", s.Messages[0].Content)
	assert.Equal(t, RoleModel, s.Messages[1].Role)
	assert.Equal(t, "respuesta", s.Messages[1].Content)
}

func TestRecentMessages(t *testing.T) {
	s := NewSession(1)
	for i := 0; i < 8; i++ {
		s.Append(RoleUser, "message")
	}

	assert.Len(t, s.RecentMessages(5), 5)
	assert.Len(t, s.RecentMessages(20), 8)
}

func TestBumpProgressClampsAt100(t *testing.T) {
	s := NewSession(1)

	s.BumpProgress("Cinemática", 10)
	assert.Equal(t, 10, s.Topics["Cinemática"].Progress)
	assert.False(t, s.Topics["Cinemática"].Completed)

	for i := 0; i < 20; i++ {
		s.BumpProgress("Cinemática", 10)
	}
	assert.Equal(t, 100, s.Topics["Cinemática"].Progress)
	assert.True(t, s.Topics["Cinemática"].Completed)
}

func TestBumpProgressIgnoresNegative(t *testing.T) {
	s := NewSession(1)
	s.BumpProgress("Óptica", 30)
	s.BumpProgress("Óptica", -10)

	assert.Equal(t, 30, s.Topics["Óptica"].Progress)
}

func TestEnsureTopicIsIdempotent(t *testing.T) {
	s := NewSession(1)
	s.BumpProgress("Dinámica", 40)
	s.EnsureTopic("Dinámica")

	assert.Equal(t, 40, s.Topics["Dinámica"].Progress)
}
