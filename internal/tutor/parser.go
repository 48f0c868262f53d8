package tutor

import (
	"strings"
	"time"

	"github.com/aula-ai-tutor-go/internal/models"
)

// Section headers of a generated topic explanation.
const (
	sectionDefinition   = "## Definición"
	sectionConcepts     = "## Conceptos Clave"
	sectionExplanation  = "## Explicación Detallada"
	sectionExample      = "## Ejemplo Resuelto"
	sectionApplications = "## Aplicaciones Prácticas"
)

// Quiz field markers.
const (
	markerQuestion    = "PREGUNTA"
	markerOptions     = "OPCIONES"
	markerAnswer      = "RESPUESTA_CORRECTA"
	markerExplanation = "EXPLICACION"
)

// splitSections walks the text line by line and collects the body of
// each "## " section. Unknown sections are kept too, keyed by header.
func splitSections(text string) map[string]string {
	sections := make(map[string]string)
	var current string
	var body []string

	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = body[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "## ") {
			flush()
			current = strings.TrimSpace(line)
			continue
		}
		body = append(body, line)
	}
	flush()

	return sections
}

// ParseTopicContent extracts the structured explanation from generated
// text. Missing sections come back empty rather than failing, so a
// partially formatted response still renders.
func ParseTopicContent(text string) *models.TopicContent {
	content := &models.TopicContent{}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		content.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		break
	}

	sections := splitSections(text)
	content.Definition = sections[sectionDefinition]
	content.Explanation = sections[sectionExplanation]
	content.Concepts = parseConcepts(sections[sectionConcepts])
	content.Example = parseWorkedExample(sections[sectionExample])
	content.Applications = parseApplications(sections[sectionApplications])

	return content
}

// parseConcepts reads "- **Name**: description" bullet lines.
func parseConcepts(text string) []models.Concept {
	var concepts []models.Concept

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "-") {
			continue
		}

		item := strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
		title, description, found := strings.Cut(item, ":")
		if !found {
			concepts = append(concepts, models.Concept{
				Title:       "Concepto",
				Description: item,
			})
			continue
		}

		concepts = append(concepts, models.Concept{
			Title:       strings.TrimSpace(strings.ReplaceAll(title, "**", "")),
			Description: strings.TrimSpace(strings.ReplaceAll(description, "**", "")),
		})
	}

	return concepts
}

// parseWorkedExample splits the example section at its Problema,
// Solución and Conclusión labels.
func parseWorkedExample(text string) models.WorkedExample {
	example := models.WorkedExample{}
	var target *string

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Problema:"):
			target = &example.Problem
			trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "Problema:"))
		case strings.HasPrefix(trimmed, "Solución:"):
			target = &example.Solution
			trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "Solución:"))
		case strings.HasPrefix(trimmed, "Conclusión:"):
			target = &example.Conclusion
			trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "Conclusión:"))
		}

		if target == nil || trimmed == "" {
			continue
		}
		if *target != "" {
			*target += "\n"
		}
		*target += trimmed
	}

	return example
}

// parseApplications reads "1. application" numbered lines.
func parseApplications(text string) []string {
	var applications []string

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) < 3 || trimmed[0] < '0' || trimmed[0] > '9' {
			continue
		}
		if _, rest, found := strings.Cut(trimmed, "."); found {
			if app := strings.TrimSpace(rest); app != "" {
				applications = append(applications, app)
			}
		}
	}

	return applications
}

// ParseExamples extracts the "# Ejemplo N: Title" blocks from an
// additional-examples generation.
func ParseExamples(text string) []models.Example {
	var examples []models.Example
	var current *models.Example
	var target *string

	flushLine := func(line string) {
		if current == nil || target == nil {
			return
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return
		}
		if *target != "" {
			*target += "\n"
		}
		*target += trimmed
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "# Ejemplo") {
			if current != nil {
				examples = append(examples, *current)
			}
			title := ""
			if _, rest, found := strings.Cut(trimmed, ":"); found {
				title = strings.TrimSpace(rest)
			}
			current = &models.Example{
				ID:    len(examples) + 1,
				Title: title,
			}
			target = nil
			continue
		}

		switch trimmed {
		case "## Problema":
			if current != nil {
				target = &current.Problem
			}
			continue
		case "## Solución Paso a Paso":
			if current != nil {
				target = &current.Solution
			}
			continue
		case "## Conclusión":
			if current != nil {
				target = &current.Conclusion
			}
			continue
		}

		flushLine(line)
	}

	if current != nil {
		examples = append(examples, *current)
	}

	return examples
}

// ParseQuiz extracts a multiple-choice question from generated text.
// Returns nil when the question or answer marker is missing.
func ParseQuiz(text string) *models.QuizData {
	quiz := &models.QuizData{Timestamp: time.Now()}
	var target *string
	var optionLines []string

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		switch trimmed {
		case markerQuestion:
			target = &quiz.Question
			continue
		case markerOptions:
			target = nil
			optionLines = optionLines[:0]
			continue
		case markerAnswer:
			target = &quiz.CorrectAnswer
			continue
		case markerExplanation:
			target = &quiz.Explanation
			continue
		}

		if target == &quiz.CorrectAnswer {
			if trimmed != "" {
				quiz.CorrectAnswer = strings.ToUpper(trimmed[:1])
				target = nil
			}
			continue
		}

		if target != nil {
			if trimmed == "" {
				continue
			}
			if *target != "" {
				*target += "\n"
			}
			*target += trimmed
			continue
		}

		if trimmed != "" {
			optionLines = append(optionLines, trimmed)
		}
	}

	quiz.Options = parseOptions(optionLines)

	if quiz.Question == "" || quiz.CorrectAnswer == "" {
		return nil
	}
	return quiz
}

// parseOptions pulls the A) through D) option texts in order.
func parseOptions(lines []string) []string {
	options := make([]string, 4)
	labels := []string{"A)", "B)", "C)", "D)"}

	for _, line := range lines {
		for i, label := range labels {
			if strings.HasPrefix(line, label) {
				options[i] = strings.TrimSpace(strings.TrimPrefix(line, label))
				break
			}
		}
	}

	return options
}

// ParseTopicList splits a comma-separated topic listing.
func ParseTopicList(text string) []string {
	var topics []string
	for _, part := range strings.Split(text, ",") {
		topic := strings.TrimSpace(part)
		if topic != "" {
			topics = append(topics, topic)
		}
	}
	return topics
}
