package models

import "time"

// MaxHistory bounds the per-user chat history kept in the session.
const MaxHistory = 20

// Session holds the per-user conversation state that drives routing:
// chat history, current topic, topic progress and the pending quiz.
type Session struct {
	UserID       int64                     `json:"userId"`
	Messages     []Message                 `json:"messages"`
	CurrentTopic string                    `json:"currentTopic,omitempty"`
	Topics       map[string]*TopicProgress `json:"topics"`
	LastQuiz     *QuizData                 `json:"lastQuiz,omitempty"`
	LastActivity time.Time                 `json:"lastActivity"`
}

// NewSession returns an empty session for a user.
func NewSession(userID int64) *Session {
	return &Session{
		UserID:       userID,
		Topics:       make(map[string]*TopicProgress),
		LastActivity: time.Now(),
	}
}

// Clone returns a deep copy of the session. Mutations on the copy do
// not reach the original until it is saved back.
func (s *Session) Clone() *Session {
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Topics = make(map[string]*TopicProgress, len(s.Topics))
	for name, tp := range s.Topics {
		copied := *tp
		out.Topics[name] = &copied
	}
	if s.LastQuiz != nil {
		quiz := *s.LastQuiz
		quiz.Options = append([]string(nil), s.LastQuiz.Options...)
		out.LastQuiz = &quiz
	}
	return &out
}

// Append adds one turn to the history, evicting the oldest entries so
// the history never exceeds MaxHistory messages.
func (s *Session) Append(role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	if len(s.Messages) > MaxHistory {
		s.Messages = s.Messages[len(s.Messages)-MaxHistory:]
	}
	s.LastActivity = time.Now()
}

// AppendTurn records a user message and the model's reply as one exchange.
func (s *Session) AppendTurn(userContent, modelContent string) {
	s.Append(RoleUser, userContent)
	s.Append(RoleModel, modelContent)
}

// RecentMessages returns up to n of the most recent history entries,
// oldest first.
func (s *Session) RecentMessages(n int) []Message {
	if len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// EnsureTopic registers a topic with zero progress if it is unknown.
func (s *Session) EnsureTopic(name string) *TopicProgress {
	if tp, ok := s.Topics[name]; ok {
		return tp
	}
	tp := &TopicProgress{}
	s.Topics[name] = tp
	return tp
}

// BumpProgress advances a topic by delta, clamped to [0,100], and
// recomputes the completed flag. Progress never decreases.
func (s *Session) BumpProgress(name string, delta int) {
	if delta < 0 {
		return
	}
	tp := s.EnsureTopic(name)
	tp.Progress += delta
	if tp.Progress > 100 {
		tp.Progress = 100
	}
	tp.Completed = tp.Progress >= 100
}
