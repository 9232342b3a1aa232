package outreach

import (
	"context"
	"errors"
	"log/slog"

	"github.com/FranksOps/scout/internal/apperr"
	"github.com/FranksOps/scout/internal/llm"
)

const (
	StageExtract = "extract"
	StageDraft   = "draft"

	DefaultExtractMaxTokens = 300
	DefaultDraftMaxTokens   = 150
)

// StructurerConfig configures a Structurer.
type StructurerConfig struct {
	// MaxTokens is the output budget; 0 selects 300.
	MaxTokens int
	// JSONMode asks the API for a JSON object response.
	JSONMode bool
}

// Structurer asks the model to pull profile fields out of a bio snippet.
type Structurer struct {
	model  llm.Completer
	cfg    StructurerConfig
	logger *slog.Logger
}

// NewStructurer returns a Structurer that sends prompts through model.
func NewStructurer(model llm.Completer, cfg StructurerConfig, logger *slog.Logger) *Structurer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultExtractMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Structurer{model: model, cfg: cfg, logger: logger}
}

// Extract returns the model's first-choice text for the snippet, unmodified.
// Use ParseRecord to turn it into a Record.
func (s *Structurer) Extract(ctx context.Context, profileURL, bio string) (string, error) {
	prompt, err := render(extractTmpl, extractVars{ProfileURL: profileURL, Bio: bio})
	if err != nil {
		return "", apperr.New(apperr.KindConfig, "outreach.extract", err)
	}

	s.logger.Debug("extracting profile", "profile_url", profileURL)
	text, err := s.model.Complete(ctx, llm.Request{
		Stage:     StageExtract,
		Prompt:    prompt,
		MaxTokens: s.cfg.MaxTokens,
		JSON:      s.cfg.JSONMode,
	})
	if err != nil {
		return "", wrapStage("outreach.extract", err)
	}
	return text, nil
}

// wrapStage renames the failing operation to the stage while keeping the
// kind, status and cause of a classified error.
func wrapStage(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return &apperr.Error{Kind: ae.Kind, Op: op, StatusCode: ae.StatusCode, Err: ae.Err}
	}
	return apperr.New(apperr.KindModel, op, err)
}
