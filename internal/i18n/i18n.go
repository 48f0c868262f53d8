package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/aula-ai-tutor-go/internal/config"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Localizer manages internationalization. Spanish is the default
// language of the tutoring flows.
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer from the embedded catalogs.
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.Spanish)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, lang := range cfg.Languages {
		path := fmt.Sprintf("locales/%s.json", lang)
		data, err := localeFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read language file %s: %w", lang, err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, path); err != nil {
			return nil, fmt.Errorf("failed to parse language file %s: %w", lang, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns the localized message for the given language.
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Default returns the localized message in the default language.
func (l *Localizer) Default(messageID string, data map[string]interface{}) string {
	return l.Get(l.defaultLanguage, messageID, data)
}

// Message IDs
const (
	MsgWelcomeTitle        = "welcome_title"
	MsgWelcomeDescription  = "welcome_description"
	MsgWelcomeCTA          = "welcome_cta"
	MsgFeatureTopicsTitle  = "feature_topics_title"
	MsgFeatureTopicsDesc   = "feature_topics_description"
	MsgFeatureExamplesTitle = "feature_examples_title"
	MsgFeatureExamplesDesc = "feature_examples_description"
	MsgFeatureQuizTitle    = "feature_quiz_title"
	MsgFeatureQuizDesc     = "feature_quiz_description"
	MsgFeatureVideoTitle   = "feature_video_title"
	MsgFeatureVideoDesc    = "feature_video_description"
	MsgStudyPrompt         = "study_prompt"
	MsgNoTopicExamples     = "no_topic_examples"
	MsgNoTopicVideo        = "no_topic_video"
	MsgNoTopicQuiz         = "no_topic_quiz"
	MsgNoActiveQuiz        = "no_active_quiz"
	MsgAnswerCorrect       = "answer_correct"
	MsgAnswerIncorrect     = "answer_incorrect"
	MsgFeedbackCorrect     = "feedback_correct"
	MsgFeedbackIncorrect   = "feedback_incorrect"
	MsgQuizIntro           = "quiz_intro"
	MsgVideoIntro          = "video_intro"
	MsgVideoTurn           = "video_turn"
	MsgFallback            = "fallback"
	MsgFallbackTopic       = "fallback_topic"
	MsgFallbackExamples    = "fallback_examples"
	MsgFallbackQuiz        = "fallback_quiz"
	MsgFallbackVideo       = "fallback_video"
	MsgRateLimited         = "rate_limited"
	MsgStudentNotFound     = "student_not_found"
	MsgUnauthorized        = "unauthorized"
	MsgInvalidToken        = "invalid_token"
	MsgProviderUnavailable = "provider_unavailable"
	MsgInternalError       = "internal_error"
)
