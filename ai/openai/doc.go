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


// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// The package implements ai.Embedder and ai.EntityTagger on top of the
// langchaingo OpenAI client, so it works against OpenAI itself or any
// OpenAI-compatible server (Ollama, LocalAI, vLLM). Provider additionally
// wires the Hugging Face token classifier when Config.TaggerBackend asks for it.
//
// Service failures are returned as *llms.Error values classified by
// langchaingo's OpenAI error mapper; use ai.IsPermanent to decide whether
// a call is worth retrying.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    ai.WithTagger(ai.TaggerOpenAI, "http://localhost:11434", "qwen2.5:3b"), // /v1 added automatically
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "sample text")
//	tokens, err := provider.EntityTagger().Tag(ctx, "John Smith lives in Paris")
package openai
