// Package pharmaai überträgt die Extraktion "Label-Text -> strukturierte Pharmakokinetik" an ein
// OpenAI-kompatibles Sprachmodell (langchaingo). Ohne API-Key bleibt es bei der Regex-Heuristik.
package pharmaai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"pharma-deck/config"
	"pharma-deck/extract"
)

const (
	maxInputRunes = 24000
	maxAttempts   = 3
	maxTokens     = 1024
)

// ErrDisabled wird zurückgegeben, wenn kein OPENAI_API_KEY gesetzt ist.
var ErrDisabled = errors.New("pharmaai: no OpenAI API key configured")

// Extractor liefert ein strukturiertes PK-Profil aus Freitext.
type Extractor interface {
	ExtractPharmacokinetics(ctx context.Context, text string) (extract.Pharmacokinetics, error)
}

const systemPrompt = `You are a pharmaceutical data extractor. Given text from an FDA label or approval document (e.g. Clinical Pharmacology section), extract pharmacokinetic parameters as a single JSON object with exactly these keys:
half_life_hours (number), half_life_note (string, e.g. "terminal" or "effective"), bioavailability_percent (number), cmax (string), tmax_hours (number), auc (string), volume_of_distribution (string), clearance (string), metabolism (string), route_of_elimination (string), protein_binding_percent (number), blood_brain_barrier (string: yes/no/minimal/unknown), food_effect (string), other (object with any further PK parameters).
Use numbers only where a number is asked for. For string fields use the exact phrasing from the text when possible. If a value is not found, use null. Do not invent values. Respond with JSON only.`

// OpenAIExtractor implementiert Extractor über ein langchaingo-Modell.
type OpenAIExtractor struct {
	model  llms.Model
	logger *zap.Logger
}

// NewOpenAIExtractor erstellt den Extractor aus der Konfiguration. Ohne API-Key: ErrDisabled.
func NewOpenAIExtractor(cfg *config.Config, logger *zap.Logger) (*OpenAIExtractor, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, ErrDisabled
	}
	opts := []openai.Option{
		openai.WithToken(cfg.OpenAIAPIKey),
		openai.WithModel(cfg.OpenAIModel),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}
	return NewExtractor(client, logger), nil
}

// NewExtractor verpackt ein beliebiges llms.Model.
func NewExtractor(model llms.Model, logger *zap.Logger) *OpenAIExtractor {
	return &OpenAIExtractor{model: model, logger: logger.With(zap.String("component", "pharmaai"))}
}

// ExtractPharmacokinetics fragt das Modell im JSON-Modus und versucht es bei unlesbarer
// Antwort bis zu dreimal. Transportfehler des Modells werden sofort zurückgegeben.
func (e *OpenAIExtractor) ExtractPharmacokinetics(ctx context.Context, text string) (extract.Pharmacokinetics, error) {
	trimmed := strings.TrimSpace(extract.Truncate(text, maxInputRunes))
	if trimmed == "" {
		return extract.Pharmacokinetics{}, nil
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman,
			"Extract pharmacokinetic parameters from this FDA/clinical pharmacology text.\n\n---\n"+trimmed+"\n---"),
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := e.model.GenerateContent(ctx, content,
			llms.WithTemperature(0.0), llms.WithJSONMode(), llms.WithMaxTokens(maxTokens))
		if err != nil {
			return extract.Pharmacokinetics{}, fmt.Errorf("generate content: %w", err)
		}
		if len(resp.Choices) == 0 {
			return extract.Pharmacokinetics{}, errors.New("pharmaai: model returned no choices")
		}

		var pk extract.Pharmacokinetics
		if err := json.Unmarshal([]byte(stripFences(resp.Choices[0].Content)), &pk); err != nil {
			lastErr = err
			e.logger.Warn("KI-Antwort nicht lesbar", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		return pk, nil
	}
	return extract.Pharmacokinetics{}, fmt.Errorf("pharmaai: unparsable response after %d attempts: %w", maxAttempts, lastErr)
}

// stripFences entfernt Markdown-Codeblöcke um die JSON-Antwort.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
