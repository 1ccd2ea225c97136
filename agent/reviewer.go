package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"sublet-scraper/models"
	"sublet-scraper/utils"
)

// reviewPrompt casts the model as a QA reviewer over one extracted record.
// It must answer with a corrected JSON object in the same shape.
const reviewPrompt = `You are a quality assurance reviewer for structured
housing-listing data. You receive one extracted listing record as JSON and
must check for completeness, correct formatting and plausibility:
- date_scraped and start_date use YYYY-MM-DD
- price is a whole number of dollars, or null if unknown
- rooms is an integer count, or null if unknown
- separate_bath, separate_kitchen, furnished and has_watermark are booleans
- neighborhood, description, housing_type, rent_period and parking are free
  text, empty when unknown
- amenities is a list of short tags
Correct any field that is malformed or implausible and respond with the
cleaned JSON object only, no commentary.`

// Reviewer is an opaque record-review collaborator backed by an
// OpenAI-compatible chat endpoint. It is not part of the deterministic
// pipeline: callers use the corrected record when review succeeds and keep
// the original otherwise.
type Reviewer struct {
	client *openai.Client
	model  string
	logger *utils.Logger
}

// NewReviewer builds a reviewer for the given credentials. baseURL may be
// empty for the default OpenAI endpoint.
func NewReviewer(apiKey, baseURL, model string, logger *utils.Logger) *Reviewer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Reviewer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// Review submits one record for correction. On any failure the input record
// is returned unchanged alongside the error. The record's identity fields
// (link, date_scraped) are never taken from the model.
func (r *Reviewer) Review(ctx context.Context, rec *models.ListingRecord) (*models.ListingRecord, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return rec, fmt.Errorf("agent: marshal record: %w", err)
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: reviewPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err != nil {
		return rec, fmt.Errorf("agent: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return rec, fmt.Errorf("agent: empty completion")
	}

	corrected := *rec
	content := stripCodeFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &corrected); err != nil {
		return rec, fmt.Errorf("agent: parse corrected record: %w", err)
	}

	corrected.Link = rec.Link
	corrected.DateScraped = rec.DateScraped
	return &corrected, nil
}

// ReviewAll runs every record through Review, keeping originals on failure.
func (r *Reviewer) ReviewAll(ctx context.Context, records []*models.ListingRecord) []*models.ListingRecord {
	out := make([]*models.ListingRecord, 0, len(records))
	for _, rec := range records {
		reviewed, err := r.Review(ctx, rec)
		if err != nil {
			r.logger.Warn("[agent] Review failed for %s: %v", rec.Link, err)
		}
		out = append(out, reviewed)
	}
	return out
}

// stripCodeFences unwraps a ```json ... ``` block if the model added one.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
