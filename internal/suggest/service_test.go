package suggest

import (
	"context"
	"errors"
	"testing"

	"taskPlanner/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init(true)
	defer logger.Sync()
	m.Run()
}

// stubGenerator подменяет модель фиксированным ответом
type stubGenerator struct {
	response string
	err      error
	prompt   string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.response, g.err
}

func (g *stubGenerator) Close() error { return nil }

// TestParseSuggestions проверяет терпимость к форме ответа модели
func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{
			name: "bare array",
			raw:  `["первая", "вторая", "третья"]`,
			want: []string{"первая", "вторая", "третья"},
		},
		{
			name: "json fence",
			raw:  "```json\n[\"одна\", \"две\"]\n```",
			want: []string{"одна", "две"},
		},
		{
			name: "plain fence",
			raw:  "```\n[\"одна\"]\n```",
			want: []string{"одна"},
		},
		{
			name: "prose around fence",
			raw:  "Вот подзадачи:\n```json\n[\"шаг 1\", \"шаг 2\"]\n```\nУдачи!",
			want: []string{"шаг 1", "шаг 2"},
		},
		{
			name: "blank entries dropped",
			raw:  `["  дело  ", "", "   "]`,
			want: []string{"дело"},
		},
		{
			name:    "not json",
			raw:     "1. первая\n2. вторая",
			wantErr: true,
		},
		{
			name:    "empty array",
			raw:     `[]`,
			wantErr: true,
		},
		{
			name:    "array of objects",
			raw:     `[{"title":"первая"}]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSuggestions(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestService_SubtasksForTitle: промпт несёт название, ошибки модели
// заворачиваются
func TestService_SubtasksForTitle(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		gen := &stubGenerator{response: "```json\n[\"купить билеты\", \"собрать вещи\", \"заказать такси\"]\n```"}
		svc := NewService(gen)

		got, err := svc.SubtasksForTitle(context.Background(), "подготовить поездку")
		require.NoError(t, err)
		assert.Len(t, got, 3)
		assert.Contains(t, gen.prompt, "подготовить поездку")
	})

	t.Run("generator failure", func(t *testing.T) {
		gen := &stubGenerator{err: errors.New("quota exceeded")}
		svc := NewService(gen)

		_, err := svc.SubtasksForTitle(context.Background(), "задача")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "генерация подзадач")
	})

	t.Run("unparseable response", func(t *testing.T) {
		gen := &stubGenerator{response: "извините, не могу помочь"}
		svc := NewService(gen)

		_, err := svc.SubtasksForTitle(context.Background(), "задача")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "разбор ответа модели")
	})
}
