package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"taskPlanner/internal/logger"

	"go.uber.org/zap"
)

type Service struct {
	generator Generator
}

func NewService(generator Generator) *Service {
	return &Service{generator: generator}
}

// SubtasksForTitle просит модель разбить задачу на 3-5 подзадач
func (s *Service) SubtasksForTitle(ctx context.Context, title string) ([]string, error) {
	prompt := buildPrompt(title)

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Error("Suggest: Генерация не удалась", err, zap.String("title", title))
		return nil, fmt.Errorf("генерация подзадач: %w", err)
	}

	suggestions, err := parseSuggestions(raw)
	if err != nil {
		logger.Error("Suggest: Ответ модели не разобран", err, zap.String("raw", raw))
		return nil, fmt.Errorf("разбор ответа модели: %w", err)
	}

	logger.Info("Suggest: Подзадачи получены",
		zap.String("title", title),
		zap.Int("count", len(suggestions)))
	return suggestions, nil
}

func buildPrompt(title string) string {
	return fmt.Sprintf(`Break down the following task into 3-5 concrete subtasks.
Task: %q

Rules:
- each subtask is a short imperative sentence;
- respond in the same language as the task title;
- output ONLY a JSON array of strings, no other text.`, title)
}

// модели любят оборачивать JSON в ограждение ```json ... ```
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseSuggestions терпимо относится к форме ответа: принимает и голый
// массив, и массив внутри ограждения
func parseSuggestions(raw string) ([]string, error) {
	text := strings.TrimSpace(raw)
	if match := fencedJSON.FindStringSubmatch(text); match != nil {
		text = strings.TrimSpace(match[1])
	}

	var suggestions []string
	if err := json.Unmarshal([]byte(text), &suggestions); err != nil {
		return nil, fmt.Errorf("не JSON-массив строк: %w", err)
	}

	cleaned := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		s = strings.TrimSpace(s)
		if s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("пустой список подзадач")
	}
	return cleaned, nil
}
