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


// Package huggingface implements ai.EntityTagger against the Hugging Face
// Inference API token-classification task.
//
// The tagger requests raw word-piece results (aggregation_strategy "none"),
// so callers receive BERT tokens such as "B-ORG", "I-ORG" and "##rsity"
// pieces and are expected to merge them into whole-word spans.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/ragprep/ai"
	"github.com/tmc/langchaingo/llms"
)

const defaultTimeout = 60 * time.Second

// Tagger calls a hosted token-classification model such as dslim/bert-base-NER.
type Tagger struct {
	url    string
	token  string
	client *http.Client
	errors *llms.ErrorMapper
	logger *slog.Logger
}

// Option configures a Tagger.
type Option func(*Tagger)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Tagger) {
		t.client = client
	}
}

type request struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
	Options    options    `json:"options"`
}

type parameters struct {
	AggregationStrategy string `json:"aggregation_strategy"`
}

type options struct {
	WaitForModel bool `json:"wait_for_model"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewTagger creates a tagger for config.TaggerModel hosted under config.TaggerHost.
//
// Returns ai.EntityTagger interface to enforce abstraction.
func NewTagger(config *ai.Config, opts ...Option) (ai.EntityTagger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	t := &Tagger{
		url:    config.TaggerHost + "/" + strings.TrimPrefix(config.TaggerModel, "/"),
		token:  config.TaggerToken,
		client: &http.Client{Timeout: defaultTimeout},
		errors: llms.NewErrorMapper("huggingface"),
		logger: slog.Default().With("component", "hf-tagger"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Tag returns the model's word-piece tags for text. Tokens tagged "O" are
// included when the model reports them.
func (t *Tagger) Tag(ctx context.Context, text string) ([]ai.TaggedToken, error) {
	if strings.TrimSpace(text) == "" {
		return []ai.TaggedToken{}, nil
	}

	body, err := json.Marshal(request{
		Inputs:     text,
		Parameters: parameters{AggregationStrategy: "none"},
		Options:    options{WaitForModel: true},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	t.logger.Debug("tagging text", "length", len(text), "url", t.url)
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, t.errors.WrapError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, t.errors.WrapError(err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("tagging service returned status %d", resp.StatusCode)
		var e errorResponse
		if json.Unmarshal(payload, &e) == nil && e.Error != "" {
			msg += ": " + e.Error
		}
		err := t.errors.WrapError(errors.New(msg))
		t.logger.Error("tagging request failed", "status", resp.StatusCode, "err", err)
		return nil, err
	}

	var tokens []ai.TaggedToken
	if err := json.Unmarshal(payload, &tokens); err != nil {
		return nil, fmt.Errorf("decode tagging response: %w", err)
	}
	if tokens == nil {
		tokens = []ai.TaggedToken{}
	}
	return toByteOffsets(text, tokens), nil
}

// toByteOffsets rewrites the service's code point offsets as byte offsets
// into text. Offsets past the end of text map to len(text)+1 so that
// callers drop them.
func toByteOffsets(text string, tokens []ai.TaggedToken) []ai.TaggedToken {
	index := make([]int, 0, len(text)+1)
	for i := range text {
		index = append(index, i)
	}
	index = append(index, len(text))

	byteOffset := func(cp int) int {
		if cp < 0 {
			return cp
		}
		if cp >= len(index) {
			return len(text) + 1
		}
		return index[cp]
	}
	for i := range tokens {
		tokens[i].Start = byteOffset(tokens[i].Start)
		tokens[i].End = byteOffset(tokens[i].End)
	}
	return tokens
}
