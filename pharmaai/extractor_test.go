package pharmaai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"pharma-deck/config"
)

type fakeModel struct {
	replies []string
	err     error
	calls   int
}

func (m *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	reply := m.replies[min(m.calls-1, len(m.replies)-1)]
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestExtractPharmacokinetics_ParsesFencedJSON(t *testing.T) {
	model := &fakeModel{replies: []string{"```json\n{\"half_life_hours\": 6.2, \"half_life_note\": null, \"cmax\": \"1.2 ug/mL\", \"other\": {\"vss\": \"654 L\"}}\n```"}}
	e := NewExtractor(model, zap.NewNop())

	pk, err := e.ExtractPharmacokinetics(context.Background(), "The half-life is 6.2 hours.")
	require.NoError(t, err)
	require.NotNil(t, pk.HalfLifeHours)
	assert.InDelta(t, 6.2, *pk.HalfLifeHours, 0.001)
	assert.Nil(t, pk.HalfLifeNote)
	require.NotNil(t, pk.Cmax)
	assert.Equal(t, "1.2 ug/mL", *pk.Cmax)
	assert.Equal(t, map[string]any{"vss": "654 L"}, pk.Other)
	assert.Equal(t, 1, model.calls)
}

func TestExtractPharmacokinetics_RetriesMalformed(t *testing.T) {
	model := &fakeModel{replies: []string{"not json", `{"metabolism": "hepatic"}`}}
	e := NewExtractor(model, zap.NewNop())

	pk, err := e.ExtractPharmacokinetics(context.Background(), "text")
	require.NoError(t, err)
	require.NotNil(t, pk.Metabolism)
	assert.Equal(t, "hepatic", *pk.Metabolism)
	assert.Equal(t, 2, model.calls)
}

func TestExtractPharmacokinetics_GivesUpAfterThreeAttempts(t *testing.T) {
	model := &fakeModel{replies: []string{"{broken"}}
	e := NewExtractor(model, zap.NewNop())

	_, err := e.ExtractPharmacokinetics(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, maxAttempts, model.calls)
}

func TestExtractPharmacokinetics_ModelError(t *testing.T) {
	boom := errors.New("rate limited")
	model := &fakeModel{err: boom}
	e := NewExtractor(model, zap.NewNop())

	_, err := e.ExtractPharmacokinetics(context.Background(), "text")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, model.calls)
}

func TestExtractPharmacokinetics_EmptyTextSkipsModel(t *testing.T) {
	model := &fakeModel{}
	e := NewExtractor(model, zap.NewNop())

	pk, err := e.ExtractPharmacokinetics(context.Background(), "   ")
	require.NoError(t, err)
	assert.True(t, pk.IsEmpty())
	assert.Zero(t, model.calls)
}

func TestNewOpenAIExtractor_DisabledWithoutKey(t *testing.T) {
	_, err := NewOpenAIExtractor(&config.Config{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrDisabled)
}
