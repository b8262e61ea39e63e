// Package moderation screens user-authored bounty text before it goes live.
package moderation

import (
	"context"
	"strings"

	"github.com/artfundry/bounty-server/internal/config"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Verdict is the outcome of screening a piece of text.
type Verdict struct {
	Flagged bool
	// Nsfw is set when the flag is for sexual content only. Such content is
	// allowed but must be marked, matching how listings treat it.
	Nsfw     bool
	Category string
}

type Service struct {
	client *openai.Client
	logger *zap.Logger
}

// NewService returns nil when no API key is configured. A nil Service screens
// nothing and approves everything.
func NewService(cfg *config.Config, logger *zap.Logger) *Service {
	if cfg == nil || cfg.OpenAI == nil || cfg.OpenAI.APIKey == "" {
		return nil
	}

	return &Service{
		client: openai.NewClient(cfg.OpenAI.APIKey),
		logger: logger,
	}
}

// ScreenText runs the given fragments through the moderation endpoint.
// Failures are logged and reported as a clean verdict so that a moderation
// outage never blocks bounty writes.
func (s *Service) ScreenText(ctx context.Context, fragments ...string) Verdict {
	if s == nil || s.client == nil {
		return Verdict{}
	}

	input := strings.TrimSpace(strings.Join(fragments, "\n"))
	if input == "" {
		return Verdict{}
	}

	response, err := s.client.Moderations(ctx, openai.ModerationRequest{
		Model: openai.ModerationTextLatest,
		Input: input,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("moderation request failed", zap.Error(err))
		}
		return Verdict{}
	}

	for _, result := range response.Results {
		if !result.Flagged {
			continue
		}

		verdict := Verdict{Flagged: true, Category: flaggedCategory(result.Categories)}
		verdict.Nsfw = sexualOnly(result.Categories)
		return verdict
	}

	return Verdict{}
}

func flaggedCategory(c openai.ResultCategories) string {
	switch {
	case c.SexualMinors:
		return "sexual/minors"
	case c.Sexual:
		return "sexual"
	case c.HateThreatening:
		return "hate/threatening"
	case c.Hate:
		return "hate"
	case c.SelfHarm:
		return "self-harm"
	case c.ViolenceGraphic:
		return "violence/graphic"
	case c.Violence:
		return "violence"
	default:
		return "flagged"
	}
}

func sexualOnly(c openai.ResultCategories) bool {
	return c.Sexual && !c.SexualMinors && !c.Hate && !c.HateThreatening &&
		!c.SelfHarm && !c.Violence && !c.ViolenceGraphic
}
