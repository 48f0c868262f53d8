package tutor

import (
	"regexp"
	"strings"
)

// Intent is the routed meaning of a student message.
type Intent int

const (
	IntentChat Intent = iota
	IntentWelcome
	IntentStudyTopic
	IntentExamples
	IntentQuizAnswer
	IntentVideo
	IntentQuiz
)

// String returns the intent label used in logs and metrics.
func (i Intent) String() string {
	switch i {
	case IntentWelcome:
		return "welcome"
	case IntentStudyTopic:
		return "study_topic"
	case IntentExamples:
		return "examples"
	case IntentQuizAnswer:
		return "quiz_answer"
	case IntentVideo:
		return "video"
	case IntentQuiz:
		return "quiz"
	default:
		return "chat"
	}
}

// studyTopicPrefix marks a structured topic selection sent by the client.
const studyTopicPrefix = "STUDY_TOPIC:"

var answerPattern = regexp.MustCompile(`^[A-D]$`)

// Classify resolves the intent of a message. Rules apply in priority
// order: an explicit topic selection wins over a keyword match inside
// the same text, and a bare option letter is always a quiz answer.
func Classify(message, requestType string) (Intent, string) {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)

	if requestType == "start" || lower == "inicio" {
		return IntentWelcome, ""
	}

	if strings.HasPrefix(trimmed, studyTopicPrefix) {
		topic := strings.TrimSpace(strings.TrimPrefix(trimmed, studyTopicPrefix))
		return IntentStudyTopic, topic
	}

	if requestType == "examples" ||
		strings.Contains(lower, "más ejemplos") || strings.Contains(lower, "mas ejemplos") ||
		strings.Contains(lower, "otro ejemplo") {
		return IntentExamples, ""
	}

	if answerPattern.MatchString(strings.ToUpper(trimmed)) {
		return IntentQuizAnswer, strings.ToUpper(trimmed)
	}

	if requestType == "video" ||
		strings.Contains(lower, "video") || strings.Contains(lower, "multimedia") ||
		strings.Contains(lower, "ver") {
		return IntentVideo, ""
	}

	if requestType == "quiz" ||
		strings.Contains(lower, "quiz") || strings.Contains(lower, "pregunta") ||
		strings.Contains(lower, "evalúa") || strings.Contains(lower, "evalua") ||
		strings.Contains(lower, "test") {
		return IntentQuiz, ""
	}

	return IntentChat, ""
}
