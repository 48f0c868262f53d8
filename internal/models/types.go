package models

import (
	"time"
)

// Message represents a single turn in a chat session.
type Message struct {
	Role      string    `json:"role"` // "user" or "model"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TopicProgress tracks how far a student has advanced on one topic.
type TopicProgress struct {
	Progress  int  `json:"progress"` // 0-100
	Completed bool `json:"completed"`
}

// QuizData is a generated multiple-choice question. CorrectAnswer is one
// of A-D and is never included in the payload sent to the student.
type QuizData struct {
	Question      string    `json:"question"`
	Options       []string  `json:"options"` // always 4 entries, A-D
	CorrectAnswer string    `json:"correctAnswer"`
	Explanation   string    `json:"explanation"`
	Timestamp     time.Time `json:"timestamp"`
}

// VideoData is a single video search result.
type VideoData struct {
	Provider     string `json:"provider"`
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// Student is the record kept by the external student store. XP is the
// only field this service ever mutates.
type Student struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	XP   int    `json:"xp"`
}

// Material is a study document uploaded by a teacher.
type Material struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mimeType"`
	CreatedAt time.Time `json:"createdAt"`
	URL       string    `json:"url"`
}

// Document is a material enriched with the topics extracted from it.
type Document struct {
	ID     int64    `json:"id"`
	Title  string   `json:"title"`
	Topics []string `json:"topics"`
	Type   string   `json:"type"`
	URL    string   `json:"url"`
}

// Concept is one key concept inside a topic explanation.
type Concept struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// WorkedExample is the problem/solution/conclusion triple of a worked example.
type WorkedExample struct {
	Problem    string `json:"problem"`
	Solution   string `json:"solution"`
	Conclusion string `json:"conclusion"`
}

// TopicContent is the structured form of a generated topic explanation.
type TopicContent struct {
	Title        string        `json:"title"`
	Definition   string        `json:"definition"`
	Concepts     []Concept     `json:"concepts"`
	Explanation  string        `json:"explanation"`
	Example      WorkedExample `json:"example"`
	Applications []string      `json:"applications"`
}

// Example is one parsed block from an additional-examples generation.
type Example struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Problem    string `json:"problem"`
	Solution   string `json:"solution"`
	Conclusion string `json:"conclusion"`
}

// TopicInfo is the per-topic entry of the welcome payload.
type TopicInfo struct {
	Name       string `json:"name"`
	Progress   int    `json:"progress"`
	Completed  bool   `json:"completed"`
	InProgress bool   `json:"inProgress"`
}

// Feature is one card of the static welcome screen.
type Feature struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// WelcomePayload is the static content of the session-start response.
type WelcomePayload struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Features    []Feature `json:"features"`
	CTA         string    `json:"cta"`
}

// StudentInfo is the student summary returned in the welcome payload.
type StudentInfo struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// QuizPrompt is the quiz payload visible to the student: no correct
// answer, no explanation.
type QuizPrompt struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// AnswerFeedback is the result of grading a quiz answer.
type AnswerFeedback struct {
	IsCorrect      bool   `json:"isCorrect"`
	SelectedAnswer string `json:"selectedAnswer"`
	CorrectAnswer  string `json:"correctAnswer"`
	Feedback       string `json:"feedback"`
}

// ChatRequest is the inbound request body.
type ChatRequest struct {
	Message     string `json:"message"`
	RequestType string `json:"requestType,omitempty"`
}

// ChatResponse is the outbound response body. The optional payloads
// belong to specific message types.
type ChatResponse struct {
	Text         string          `json:"text,omitempty"`
	MessageType  string          `json:"messageType"`
	RenderedHTML string          `json:"renderedHtml,omitempty"`
	Welcome      *WelcomePayload `json:"welcomeData,omitempty"`
	Student      *StudentInfo    `json:"student,omitempty"`
	XP           *int            `json:"xp,omitempty"`
	Topics       []TopicInfo     `json:"topics,omitempty"`
	Documents    []Document      `json:"documents,omitempty"`
	TopicData    *TopicContent   `json:"topicData,omitempty"`
	CurrentTopic string          `json:"currentTopic,omitempty"`
	RawContent   string          `json:"rawContent,omitempty"`
	Examples     []Example       `json:"examples,omitempty"`
	Quiz         *QuizPrompt     `json:"quiz,omitempty"`
	Feedback     *AnswerFeedback `json:"answerFeedback,omitempty"`
	Video        *VideoData      `json:"videoData,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// Message types used in ChatResponse.MessageType.
const (
	TypeWelcome      = "welcome"
	TypeTopic        = "topic"
	TypeExamples     = "examples"
	TypeQuiz         = "quiz"
	TypeQuizResponse = "quiz_response"
	TypeVideo        = "video"
	TypeResponse     = "response"
)

// Roles used in Message.Role.
const (
	RoleUser  = "user"
	RoleModel = "model"
)
