package outreach

import (
	"context"
	"log/slog"

	"github.com/FranksOps/scout/internal/apperr"
	"github.com/FranksOps/scout/internal/llm"
)

// Placeholders used when a record lacks a field.
const (
	FallbackName      = "there"
	FallbackJobTitle  = "a professional"
	FallbackCompany   = "your company"
	FallbackInterests = "marketing and branding"
	FallbackActivity  = "a recent LinkedIn post"
)

// DrafterConfig configures a Drafter.
type DrafterConfig struct {
	// MaxTokens is the output budget; 0 selects 150.
	MaxTokens int
}

// Drafter asks the model for a short networking message to a profile.
type Drafter struct {
	model  llm.Completer
	cfg    DrafterConfig
	logger *slog.Logger
}

// NewDrafter returns a Drafter that sends prompts through model.
func NewDrafter(model llm.Completer, cfg DrafterConfig, logger *slog.Logger) *Drafter {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultDraftMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Drafter{model: model, cfg: cfg, logger: logger}
}

// DraftPrompt renders the drafting prompt for rec with placeholders
// substituted for missing fields.
func DraftPrompt(rec Record) (string, error) {
	return render(draftTmpl, draftVars{
		Name:      rec.Get(FieldFullName, FallbackName),
		JobTitle:  rec.Get(FieldJobTitle, FallbackJobTitle),
		Company:   rec.Get(FieldCompany, FallbackCompany),
		Interests: rec.Get(FieldSkills, FallbackInterests),
		Activity:  rec.Get(FieldRecentActivity, FallbackActivity),
	})
}

// Draft returns the model's message for rec as raw text. It makes exactly
// one model request.
func (d *Drafter) Draft(ctx context.Context, rec Record) (string, error) {
	prompt, err := DraftPrompt(rec)
	if err != nil {
		return "", apperr.New(apperr.KindConfig, "outreach.draft", err)
	}

	d.logger.Debug("drafting message", "name", rec.Get(FieldFullName, ""))
	text, err := d.model.Complete(ctx, llm.Request{
		Stage:     StageDraft,
		Prompt:    prompt,
		MaxTokens: d.cfg.MaxTokens,
	})
	if err != nil {
		return "", wrapStage("outreach.draft", err)
	}
	return text, nil
}
