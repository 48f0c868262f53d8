package tutor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aula-ai-tutor-go/internal/middleware"
	"github.com/aula-ai-tutor-go/internal/models"
	"github.com/aula-ai-tutor-go/internal/services/ai"
	"github.com/aula-ai-tutor-go/internal/services/cache"
	"github.com/sirupsen/logrus"
)

// chatKeyPrefixLen bounds how much of the message participates in the
// chat cache key, so near-identical questions share an entry.
const chatKeyPrefixLen = 50

// Generators produces tutoring content through the provider, with a
// cache in front of every generation so repeated requests are free.
type Generators struct {
	provider ai.Service
	cache    *cache.ResponseCache
	limiter  middleware.RateLimiter
	logger   *logrus.Logger
}

// NewGenerators creates the content generators.
func NewGenerators(provider ai.Service, responseCache *cache.ResponseCache, limiter middleware.RateLimiter, logger *logrus.Logger) *Generators {
	return &Generators{
		provider: provider,
		cache:    responseCache,
		limiter:  limiter,
		logger:   logger,
	}
}

// acquire picks a working model and charges the chosen credential
// against its window.
func (g *Generators) acquire(ctx context.Context) (*ai.ModelHandle, error) {
	handle, err := g.provider.AcquireModel(ctx, "")
	if err != nil {
		return nil, err
	}
	if !g.limiter.AllowCredential(handle.Credential) {
		return nil, ai.ErrQuota
	}
	return handle, nil
}

// ExtractTopics asks the provider for the 3-5 main topics a study
// document likely covers. On any failure the document name without its
// extension serves as the single topic.
func (g *Generators) ExtractTopics(ctx context.Context, material *models.Material) []string {
	key := cache.Key("doc_topics", material.Name, material.MimeType)
	if cached, found := g.cache.Get(key); found {
		if topics, ok := cached.([]string); ok {
			return topics
		}
	}

	fallback := []string{strings.SplitN(material.Name, ".", 2)[0]}

	prompt := fmt.Sprintf(`Analiza este material educativo: "%s" (%s)
URL: %s

Extrae 3-5 temas principales que probablemente cubre.
Responde SOLO con los nombres de los temas separados por comas.
Ejemplo: "Cinemática, Leyes de Newton, Conservación de Energía"`,
		material.Name, materialTypeDesc(material.MimeType), material.URL)

	handle, err := g.acquire(ctx)
	if err != nil {
		g.logger.WithError(err).WithField("material", material.Name).Warn("Topic extraction unavailable")
		return fallback
	}

	text, err := g.provider.Generate(ctx, handle, []ai.Content{ai.UserText(prompt)}, ai.GenerateOptions{
		MaxOutputTokens: 256,
		Temperature:     0.1,
	})
	if err != nil {
		g.logger.WithError(err).WithField("material", material.Name).Warn("Topic extraction failed")
		return fallback
	}

	topics := ParseTopicList(text)
	if len(topics) == 0 {
		g.cache.Set(key, fallback)
		return fallback
	}

	g.cache.Set(key, topics)
	return topics
}

// TopicContent generates the structured explanation of a topic.
func (g *Generators) TopicContent(ctx context.Context, topic string) (string, error) {
	key := cache.Key("topic_content", topic)
	if cached, found := g.cache.Get(key); found {
		if text, ok := cached.(string); ok {
			return text, nil
		}
	}

	prompt := fmt.Sprintf(`Actúa como un tutor experto en %s.
Proporciona una explicación estructurada con este formato:

# %s

## Definición
[Definición concisa]

## Conceptos Clave
- **[Concepto 1]**: [Explicación breve]
- **[Concepto 2]**: [Explicación breve]
- **[Concepto 3]**: [Explicación breve]

## Explicación Detallada
[Explicación en párrafos]

## Ejemplo Resuelto
Problema: [Problema práctico]

Solución:
1. [Primer paso]
2. [Segundo paso]
3. [Tercer paso]

Conclusión: [Resultado]

## Aplicaciones Prácticas
1. [Primera aplicación]
2. [Segunda aplicación]
3. [Tercera aplicación]`, topic, topic)

	handle, err := g.acquire(ctx)
	if err != nil {
		return "", err
	}

	text, err := g.provider.GenerateWithRetry(ctx, handle, []ai.Content{ai.UserText(prompt)}, ai.GenerateOptions{
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}

	g.cache.SetContent(key, text)
	return text, nil
}

// AdditionalExamples generates two worked examples about a topic.
func (g *Generators) AdditionalExamples(ctx context.Context, topic string) (string, error) {
	key := cache.Key("examples", topic)
	if cached, found := g.cache.Get(key); found {
		if text, ok := cached.(string); ok {
			return text, nil
		}
	}

	prompt := fmt.Sprintf(`Genera dos ejemplos sobre %s con este formato:

# Ejemplo 1: [Título]

## Problema
[Descripción del problema]

## Solución Paso a Paso
1. [Primer paso]
   * **Explicación**: [Explicación]

2. [Segundo paso]
   * **Explicación**: [Explicación]

3. [Tercer paso]
   * **Explicación**: [Explicación]

## Conclusión
[Resumen del resultado]

# Ejemplo 2: [Título]
[Mismo formato]`, topic)

	handle, err := g.acquire(ctx)
	if err != nil {
		return "", err
	}

	text, err := g.provider.GenerateWithRetry(ctx, handle, []ai.Content{ai.UserText(prompt)}, ai.GenerateOptions{
		Temperature: 0.4,
	})
	if err != nil {
		return "", err
	}

	g.cache.SetContent(key, text)
	return text, nil
}

// Quiz generates and parses one multiple-choice question about a topic.
func (g *Generators) Quiz(ctx context.Context, topic string) (*models.QuizData, error) {
	key := cache.Key("quiz", topic)
	if cached, found := g.cache.Get(key); found {
		if quiz, ok := cached.(*models.QuizData); ok {
			return quiz, nil
		}
	}

	prompt := fmt.Sprintf(`Genera una pregunta de evaluación sobre %s con este formato:

PREGUNTA
[Texto de la pregunta]

OPCIONES
A) [Opción A]
B) [Opción B]
C) [Opción C]
D) [Opción D]

RESPUESTA_CORRECTA
[Letra de la respuesta correcta]

EXPLICACION
[Explicación detallada]`, topic)

	handle, err := g.acquire(ctx)
	if err != nil {
		return nil, err
	}

	text, err := g.provider.GenerateWithRetry(ctx, handle, []ai.Content{ai.UserText(prompt)}, ai.GenerateOptions{
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}

	quiz := ParseQuiz(text)
	if quiz == nil {
		return nil, fmt.Errorf("malformed quiz for topic %s", topic)
	}

	g.cache.SetContent(key, quiz)
	return quiz, nil
}

// ChatReply generates a free conversation turn, grounding the model
// with the student profile and the recent history.
func (g *Generators) ChatReply(ctx context.Context, student *models.Student, level int, currentTopic, message string, history []models.Message) (string, error) {
	key := cache.Key("chat", strconv.FormatInt(student.ID, 10), truncateRunes(message, chatKeyPrefixLen))
	if cached, found := g.cache.Get(key); found {
		if text, ok := cached.(string); ok {
			return text, nil
		}
	}

	topicLine := ""
	if currentTopic != "" {
		topicLine = fmt.Sprintf("- Tema actual de estudio: %s\n", currentTopic)
	}

	systemPrompt := fmt.Sprintf(`Eres un tutor educativo especializado en ayudar a estudiantes.

Información del estudiante:
- Nombre: %s
- Nivel: %d
%s
Tu objetivo es:
1. Proporcionar explicaciones claras y concisas
2. Adaptar tus respuestas al nivel del estudiante
3. Fomentar el pensamiento crítico
4. Ser amigable y motivador

Responde de manera conversacional y natural.
Estructura tus respuestas con secciones claras y ejemplos paso a paso.`,
		student.Name, level, topicLine)

	contents := make([]ai.Content, 0, len(history)+2)
	contents = append(contents, ai.UserText(systemPrompt))
	for _, msg := range history {
		contents = append(contents, ai.Content{
			Role:  msg.Role,
			Parts: []ai.Part{{Text: msg.Content}},
		})
	}
	contents = append(contents, ai.UserText(message))

	handle, err := g.acquire(ctx)
	if err != nil {
		return "", err
	}

	text, err := g.provider.Generate(ctx, handle, contents, ai.GenerateOptions{
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}

	g.cache.Set(key, text)
	return text, nil
}

// materialTypeDesc maps a mime type to its Spanish description.
func materialTypeDesc(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "pdf"):
		return "PDF"
	case strings.Contains(mimeType, "word"):
		return "documento Word"
	case strings.Contains(mimeType, "spreadsheet"):
		return "hoja de cálculo Excel"
	case strings.Contains(mimeType, "presentation"):
		return "presentación PowerPoint"
	default:
		return "documento"
	}
}

// truncateRunes bounds a string to n runes without splitting one.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
