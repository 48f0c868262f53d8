package tutor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/aula-ai-tutor-go/internal/apierr"
	"github.com/aula-ai-tutor-go/internal/i18n"
	"github.com/aula-ai-tutor-go/internal/middleware"
	"github.com/aula-ai-tutor-go/internal/models"
	"github.com/aula-ai-tutor-go/internal/services/cache"
	"github.com/aula-ai-tutor-go/internal/services/session"
	"github.com/aula-ai-tutor-go/internal/services/students"
	"github.com/aula-ai-tutor-go/pkg/markdown"
	"github.com/sirupsen/logrus"
)

// XP awards per interaction.
const (
	xpCorrectAnswer = 20
	xpWrongAnswer   = 5
	xpChatTurn      = 2
)

// Progress bumps per interaction.
const (
	progressTopic         = 10
	progressExamples      = 5
	progressVideo         = 5
	progressCorrectAnswer = 20
)

// chatContextTurns is how many recent history entries ground a free
// chat generation.
const chatContextTurns = 5

const videoCacheTTL = 24 * time.Hour

// VideoSearcher finds one educational video for a topic.
type VideoSearcher interface {
	Search(ctx context.Context, topic string) (*models.VideoData, error)
}

// Router resolves a student message to an intent and executes the
// corresponding tutoring flow. All session access for a user happens
// under the per-user lock, so one turn completes before the next starts.
type Router struct {
	sessions *session.Manager
	students students.Store
	gen      *Generators
	video    VideoSearcher
	limiter  middleware.RateLimiter
	cache    *cache.ResponseCache
	loc      *i18n.Localizer
	metrics  *middleware.Metrics
	logger   *logrus.Logger
}

// NewRouter creates the tutoring router.
func NewRouter(
	sessions *session.Manager,
	studentStore students.Store,
	gen *Generators,
	videoSearcher VideoSearcher,
	limiter middleware.RateLimiter,
	responseCache *cache.ResponseCache,
	loc *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *Router {
	return &Router{
		sessions: sessions,
		students: studentStore,
		gen:      gen,
		video:    videoSearcher,
		limiter:  limiter,
		cache:    responseCache,
		loc:      loc,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle routes one chat turn for an authenticated student.
func (r *Router) Handle(ctx context.Context, claims *middleware.Claims, req *models.ChatRequest) (*models.ChatResponse, error) {
	unlock := r.sessions.Lock(claims.UserID)
	defer unlock()

	student, err := r.students.GetStudent(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, students.ErrNotFound) {
			return nil, apierr.NotFound(r.loc.Default(i18n.MsgStudentNotFound, nil))
		}
		return nil, err
	}

	sess, err := r.sessions.GetOrCreate(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	intent, arg := Classify(req.Message, req.RequestType)

	r.logger.WithFields(logrus.Fields{
		"user_id": claims.UserID,
		"intent":  intent.String(),
	}).Info("Routing chat message")

	var resp *models.ChatResponse
	switch intent {
	case IntentWelcome:
		resp, err = r.handleWelcome(ctx, claims, student, sess)
	case IntentStudyTopic:
		resp, err = r.handleStudyTopic(ctx, student, sess, arg)
	case IntentExamples:
		resp, err = r.handleExamples(ctx, student, sess, req.Message)
	case IntentQuizAnswer:
		resp, err = r.handleQuizAnswer(ctx, student, sess, arg)
	case IntentVideo:
		resp, err = r.handleVideo(ctx, student, sess, req.Message)
	case IntentQuiz:
		resp, err = r.handleQuiz(ctx, student, sess, req.Message)
	default:
		resp, err = r.handleChat(ctx, student, sess, req.Message)
	}

	if err != nil {
		r.metrics.RecordMessage(intent.String(), "error")
		return nil, err
	}

	if saveErr := r.sessions.Save(ctx, sess); saveErr != nil {
		r.logger.WithError(saveErr).WithField("user_id", claims.UserID).Error("Failed to save session")
	}

	r.metrics.RecordMessage(intent.String(), "ok")
	return resp, nil
}

// admit checks the per-user window, returning the 429 error to surface
// when the student must wait.
func (r *Router) admit(userID int64) *apierr.Error {
	if r.limiter.Allow(userID, "") {
		return nil
	}

	r.metrics.RecordRateLimited()
	wait := r.limiter.WaitTime(userID)
	seconds := int(math.Ceil(wait.Seconds()))
	msg := r.loc.Default(i18n.MsgRateLimited, map[string]interface{}{"Seconds": seconds})
	return apierr.RateLimited(msg, wait)
}

// handleWelcome builds the session-start payload: feature cards, the
// student's materials with extracted topics, and topic progress.
func (r *Router) handleWelcome(ctx context.Context, claims *middleware.Claims, student *models.Student, sess *models.Session) (*models.ChatResponse, error) {
	materials, err := r.students.ListMaterials(ctx, claims.SubjectID)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to list materials")
		materials = nil
	}

	documents := make([]models.Document, len(materials))
	var wg sync.WaitGroup
	for i := range materials {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := &materials[i]
			documents[i] = models.Document{
				ID:     m.ID,
				Title:  m.Name,
				Topics: r.gen.ExtractTopics(ctx, m),
				Type:   shortType(m.MimeType),
				URL:    m.URL,
			}
		}(i)
	}
	wg.Wait()

	topics := sessionTopics(sess)
	if len(topics) == 0 {
		// Seed progress tracking from the extracted topics.
		for _, doc := range documents {
			for _, name := range doc.Topics {
				if _, ok := sess.Topics[name]; ok {
					continue
				}
				sess.EnsureTopic(name)
				topics = append(topics, models.TopicInfo{Name: name})
			}
		}
	}

	xp := student.XP
	return &models.ChatResponse{
		MessageType: models.TypeWelcome,
		Welcome: &models.WelcomePayload{
			Title:       r.loc.Default(i18n.MsgWelcomeTitle, nil),
			Description: r.loc.Default(i18n.MsgWelcomeDescription, nil),
			Features: []models.Feature{
				{Icon: "book", Title: r.loc.Default(i18n.MsgFeatureTopicsTitle, nil), Description: r.loc.Default(i18n.MsgFeatureTopicsDesc, nil)},
				{Icon: "example", Title: r.loc.Default(i18n.MsgFeatureExamplesTitle, nil), Description: r.loc.Default(i18n.MsgFeatureExamplesDesc, nil)},
				{Icon: "quiz", Title: r.loc.Default(i18n.MsgFeatureQuizTitle, nil), Description: r.loc.Default(i18n.MsgFeatureQuizDesc, nil)},
				{Icon: "video", Title: r.loc.Default(i18n.MsgFeatureVideoTitle, nil), Description: r.loc.Default(i18n.MsgFeatureVideoDesc, nil)},
			},
			CTA: r.loc.Default(i18n.MsgWelcomeCTA, nil),
		},
		Student: &models.StudentInfo{
			Name:  student.Name,
			Level: level(student.XP),
		},
		XP:        &xp,
		Topics:    topics,
		Documents: documents,
	}, nil
}

// handleStudyTopic generates the structured explanation of a selected
// topic and queues a quiz in the background so it is ready when asked.
func (r *Router) handleStudyTopic(ctx context.Context, student *models.Student, sess *models.Session, topic string) (*models.ChatResponse, error) {
	sess.CurrentTopic = topic
	sess.EnsureTopic(topic)

	if rlErr := r.admit(student.ID); rlErr != nil {
		// The topic selection is registered before admission and
		// survives the throttled turn.
		if saveErr := r.sessions.Save(ctx, sess); saveErr != nil {
			r.logger.WithError(saveErr).WithField("user_id", student.ID).Error("Failed to save session")
		}
		return nil, rlErr
	}

	studyPrompt := r.loc.Default(i18n.MsgStudyPrompt, map[string]interface{}{"Topic": topic})

	text, err := r.gen.TopicContent(ctx, topic)
	if err != nil {
		fallback := r.loc.Default(i18n.MsgFallbackTopic, map[string]interface{}{"Topic": topic})
		sess.AppendTurn(studyPrompt, fallback)
		return &models.ChatResponse{
			Text:        fallback,
			MessageType: models.TypeResponse,
			Error:       err.Error(),
		}, nil
	}

	sess.AppendTurn(studyPrompt, text)
	sess.BumpProgress(topic, progressTopic)

	r.pregenerateQuiz(student.ID, topic)

	content := ParseTopicContent(text)
	if content.Title == "" {
		content.Title = topic
	}

	return &models.ChatResponse{
		Text:         text,
		MessageType:  models.TypeTopic,
		RenderedHTML: markdown.ToSafeHTML(text),
		TopicData:    content,
		CurrentTopic: topic,
		RawContent:   text,
	}, nil
}

// pregenerateQuiz generates a quiz for the topic in the background and
// stores it as the student's pending quiz.
func (r *Router) pregenerateQuiz(userID int64, topic string) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.WithField("panic", rec).Error("Quiz pregeneration panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		quiz, err := r.gen.Quiz(ctx, topic)
		if err != nil {
			r.logger.WithError(err).WithField("topic", topic).Warn("Quiz pregeneration failed")
			return
		}

		unlock := r.sessions.Lock(userID)
		defer unlock()

		sess, err := r.sessions.GetOrCreate(ctx, userID)
		if err != nil {
			return
		}
		sess.LastQuiz = quiz
		if err := r.sessions.Save(ctx, sess); err != nil {
			r.logger.WithError(err).WithField("user_id", userID).Warn("Failed to save pregenerated quiz")
		}
	}()
}

// handleExamples generates additional worked examples for the current
// topic.
func (r *Router) handleExamples(ctx context.Context, student *models.Student, sess *models.Session, message string) (*models.ChatResponse, error) {
	if sess.CurrentTopic == "" {
		return &models.ChatResponse{
			Text:        r.loc.Default(i18n.MsgNoTopicExamples, nil),
			MessageType: models.TypeResponse,
		}, nil
	}
	topic := sess.CurrentTopic

	if rlErr := r.admit(student.ID); rlErr != nil {
		return nil, rlErr
	}

	text, err := r.gen.AdditionalExamples(ctx, topic)
	if err != nil {
		fallback := r.loc.Default(i18n.MsgFallbackExamples, map[string]interface{}{"Topic": topic})
		sess.AppendTurn(message, fallback)
		return &models.ChatResponse{
			Text:        fallback,
			MessageType: models.TypeResponse,
			Error:       err.Error(),
		}, nil
	}

	sess.AppendTurn(message, text)
	sess.BumpProgress(topic, progressExamples)

	return &models.ChatResponse{
		Text:         text,
		MessageType:  models.TypeExamples,
		RenderedHTML: markdown.ToSafeHTML(text),
		CurrentTopic: topic,
		Examples:     ParseExamples(text),
		RawContent:   text,
	}, nil
}

// handleQuizAnswer grades an option letter against the pending quiz
// and awards XP.
func (r *Router) handleQuizAnswer(ctx context.Context, student *models.Student, sess *models.Session, answer string) (*models.ChatResponse, error) {
	quiz := sess.LastQuiz
	if quiz == nil {
		return &models.ChatResponse{
			Text:        r.loc.Default(i18n.MsgNoActiveQuiz, nil),
			MessageType: models.TypeResponse,
		}, nil
	}

	isCorrect := answer == quiz.CorrectAnswer
	gained := xpWrongAnswer
	if isCorrect {
		gained = xpCorrectAnswer
	}

	newXP, err := r.students.AddXP(ctx, student.ID, gained)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", student.ID).Error("Failed to award XP")
		newXP = student.XP
	} else {
		r.metrics.RecordXPAwarded(gained)
	}

	if isCorrect && sess.CurrentTopic != "" {
		sess.BumpProgress(sess.CurrentTopic, progressCorrectAnswer)
	}

	feedbackID := i18n.MsgFeedbackIncorrect
	textID := i18n.MsgAnswerIncorrect
	if isCorrect {
		feedbackID = i18n.MsgFeedbackCorrect
		textID = i18n.MsgAnswerCorrect
	}
	feedbackData := map[string]interface{}{
		"Answer":      quiz.CorrectAnswer,
		"Explanation": quiz.Explanation,
	}
	sess.AppendTurn(answer, r.loc.Default(feedbackID, feedbackData))

	return &models.ChatResponse{
		Text:        r.loc.Default(textID, map[string]interface{}{"Answer": quiz.CorrectAnswer}),
		MessageType: models.TypeQuizResponse,
		Feedback: &models.AnswerFeedback{
			IsCorrect:      isCorrect,
			SelectedAnswer: answer,
			CorrectAnswer:  quiz.CorrectAnswer,
			Feedback:       quiz.Explanation,
		},
		XP: &newXP,
	}, nil
}

// handleVideo looks up an educational video for the current topic.
func (r *Router) handleVideo(ctx context.Context, student *models.Student, sess *models.Session, message string) (*models.ChatResponse, error) {
	if sess.CurrentTopic == "" {
		return &models.ChatResponse{
			Text:        r.loc.Default(i18n.MsgNoTopicVideo, nil),
			MessageType: models.TypeResponse,
		}, nil
	}
	topic := sess.CurrentTopic

	if rlErr := r.admit(student.ID); rlErr != nil {
		return nil, rlErr
	}

	videoData, err := r.lookupVideo(ctx, topic)
	if err != nil {
		fallback := r.loc.Default(i18n.MsgFallbackVideo, map[string]interface{}{"Topic": topic})
		sess.AppendTurn(message, fallback)
		return &models.ChatResponse{
			Text:        fallback,
			MessageType: models.TypeResponse,
			Error:       err.Error(),
		}, nil
	}

	sess.AppendTurn(message, r.loc.Default(i18n.MsgVideoTurn, map[string]interface{}{
		"Topic":   topic,
		"Title":   videoData.Title,
		"VideoID": videoData.VideoID,
	}))
	sess.BumpProgress(topic, progressVideo)

	return &models.ChatResponse{
		Text:        r.loc.Default(i18n.MsgVideoIntro, map[string]interface{}{"Topic": topic}),
		MessageType: models.TypeVideo,
		Video:       videoData,
	}, nil
}

// lookupVideo caches successful searches per topic for a day.
func (r *Router) lookupVideo(ctx context.Context, topic string) (*models.VideoData, error) {
	key := cache.Key("video", topic)
	if cached, found := r.cache.Get(key); found {
		if videoData, ok := cached.(*models.VideoData); ok {
			return videoData, nil
		}
	}

	videoData, err := r.video.Search(ctx, topic)
	if err != nil {
		return nil, err
	}

	r.cache.SetWithTTL(key, videoData, videoCacheTTL)
	return videoData, nil
}

// handleQuiz generates a multiple-choice question for the current topic
// and records it as the pending quiz for grading.
func (r *Router) handleQuiz(ctx context.Context, student *models.Student, sess *models.Session, message string) (*models.ChatResponse, error) {
	if sess.CurrentTopic == "" {
		return &models.ChatResponse{
			Text:        r.loc.Default(i18n.MsgNoTopicQuiz, nil),
			MessageType: models.TypeResponse,
		}, nil
	}
	topic := sess.CurrentTopic

	if rlErr := r.admit(student.ID); rlErr != nil {
		return nil, rlErr
	}

	quiz, err := r.gen.Quiz(ctx, topic)
	if err != nil {
		fallback := r.loc.Default(i18n.MsgFallbackQuiz, map[string]interface{}{"Topic": topic})
		sess.AppendTurn(message, fallback)
		return &models.ChatResponse{
			Text:        fallback,
			MessageType: models.TypeResponse,
			Error:       err.Error(),
		}, nil
	}

	sess.LastQuiz = quiz

	// The history keeps only the visible part of the question.
	sess.AppendTurn(message, renderQuizTurn(quiz))

	return &models.ChatResponse{
		Text:        r.loc.Default(i18n.MsgQuizIntro, nil),
		MessageType: models.TypeQuiz,
		Quiz: &models.QuizPrompt{
			Question: quiz.Question,
			Options:  quiz.Options,
		},
	}, nil
}

// handleChat generates a free conversation turn grounded on the student
// profile and recent history. Generation failures degrade to a static
// reply instead of erroring the turn.
func (r *Router) handleChat(ctx context.Context, student *models.Student, sess *models.Session, message string) (*models.ChatResponse, error) {
	if rlErr := r.admit(student.ID); rlErr != nil {
		return nil, rlErr
	}

	history := sess.RecentMessages(chatContextTurns)
	text, err := r.gen.ChatReply(ctx, student, level(student.XP), sess.CurrentTopic, message, history)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", student.ID).Warn("Chat generation failed, using fallback")
		text = r.loc.Default(i18n.MsgFallback, nil)
	}

	sess.AppendTurn(message, text)

	newXP, err := r.students.AddXP(ctx, student.ID, xpChatTurn)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", student.ID).Error("Failed to award XP")
		newXP = student.XP
	} else {
		r.metrics.RecordXPAwarded(xpChatTurn)
	}

	return &models.ChatResponse{
		Text:         text,
		MessageType:  models.TypeResponse,
		RenderedHTML: markdown.ToSafeHTML(text),
		XP:           &newXP,
	}, nil
}

// level derives the student level from accumulated XP.
func level(xp int) int {
	return xp/100 + 1
}

// sessionTopics flattens the session's progress map for the welcome
// payload.
func sessionTopics(sess *models.Session) []models.TopicInfo {
	topics := make([]models.TopicInfo, 0, len(sess.Topics))
	for name, tp := range sess.Topics {
		topics = append(topics, models.TopicInfo{
			Name:       name,
			Progress:   tp.Progress,
			Completed:  tp.Completed,
			InProgress: tp.Progress > 0 && !tp.Completed,
		})
	}
	return topics
}

// renderQuizTurn is the history representation of a quiz: question and
// options only, never the answer.
func renderQuizTurn(quiz *models.QuizData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pregunta: %s\n\nOpciones:\n", quiz.Question)
	labels := []string{"A", "B", "C", "D"}
	for i, opt := range quiz.Options {
		if i >= len(labels) {
			break
		}
		fmt.Fprintf(&b, "%s) %s\n", labels[i], opt)
	}
	return strings.TrimRight(b.String(), "\n")
}

// shortType is the trailing segment of a mime type.
func shortType(mimeType string) string {
	if idx := strings.LastIndex(mimeType, "/"); idx >= 0 && idx < len(mimeType)-1 {
		return mimeType[idx+1:]
	}
	return "document"
}
