// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/ragprep/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxAttempts bounds how often a malformed model response is retried.
const maxAttempts = 3

// EntityTagger implements ai.EntityTagger using an OpenAI-compatible chat model.
// The model returns whole entity spans, so every span is reported as a
// single B- token.
type EntityTagger struct {
	client llms.Model
	errors *llms.ErrorMapper
	logger *slog.Logger
}

// entity is an internal type used for JSON unmarshaling.
// It matches the structure expected by the LLM.
type entity struct {
	Text  string  `json:"text"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// entityList is the wrapper structure for the LLM's JSON response.
type entityList struct {
	Entities []entity `json:"entities"`
}

// newEntityTagger is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEntityTagger(config *ai.Config) (*EntityTagger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.TaggerHost),
		openai.WithToken(token(config.APIKey)),
		openai.WithModel(config.TaggerModel),
	)
	if err != nil {
		return nil, err
	}

	return &EntityTagger{
		client: client,
		errors: errorMapper(),
		logger: slog.Default().With("component", "openai-tagger"),
	}, nil
}

// NewEntityTagger creates a chat-model entity tagger using the provided configuration.
//
// Returns ai.EntityTagger interface to enforce abstraction.
func NewEntityTagger(config *ai.Config) (ai.EntityTagger, error) {
	return newEntityTagger(config)
}

// Tag asks the model for the entities in text and locates each one in the input.
// Entities the model reports but which do not occur in text are dropped.
func (t *EntityTagger) Tag(ctx context.Context, text string) ([]ai.TaggedToken, error) {
	if strings.TrimSpace(text) == "" {
		return []ai.TaggedToken{}, nil
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, buildSystemPrompt()),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}

	var result entityList
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		response, err := t.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			err = t.errors.WrapError(err)
			t.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			t.logger.Debug("no choices returned from model")
			return []ai.TaggedToken{}, nil
		}

		responseText := repairJSON(stripCodeFence(response.Choices[0].Content))
		result = entityList{}
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			t.logger.Warn("error parsing tagger response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		t.logger.Error("failed to parse tagger response after retries", "err", lastErr)
		return nil, lastErr
	}

	return locate(text, result.Entities), nil
}

// locate converts model entities into tokens with byte offsets.
// Occurrences are searched from the end of the previous match so that
// repeated entities map to successive positions. An entity listed out of
// order takes its first occurrence not already claimed.
func locate(text string, entities []entity) []ai.TaggedToken {
	tokens := make([]ai.TaggedToken, 0, len(entities))
	claimed := make(map[int]bool)
	cursor := 0
	for _, e := range entities {
		label := strings.ToUpper(strings.TrimSpace(e.Label))
		if e.Text == "" || label == "" || label == ai.OutsideTag {
			continue
		}

		start := indexFrom(text, e.Text, cursor)
		for from := 0; start < 0 || claimed[start]; {
			start = indexFrom(text, e.Text, from)
			if start < 0 {
				break
			}
			if !claimed[start] {
				break
			}
			from = start + 1
		}
		if start < 0 {
			continue
		}
		end := start + len(e.Text)
		claimed[start] = true
		cursor = end

		tokens = append(tokens, ai.TaggedToken{
			Entity: "B-" + label,
			Score:  e.Score,
			Word:   e.Text,
			Start:  start,
			End:    end,
		})
	}

	slices.SortStableFunc(tokens, func(a, b ai.TaggedToken) int { return a.Start - b.Start })
	return tokens
}

func indexFrom(s, substr string, from int) int {
	if from > len(s) {
		return -1
	}
	idx := strings.Index(s[from:], substr)
	if idx < 0 {
		return -1
	}
	return from + idx
}
