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


// Package ai provides abstractions for the embedding services used by pdfingest.
//
// The pipeline depends only on the Embedder interface; concrete providers
// live in sub-packages:
//
//   - ai/googleai: Gemini embeddings through the Google AI API (default)
//   - ai/openai: OpenAI or any OpenAI-compatible server (Ollama, vLLM, LocalAI)
//   - ai/mock: deterministic test doubles
//
// Public constructors in the provider packages return interfaces:
//
//	provider, err := googleai.NewProvider(ctx, cfg)  // returns ai.Provider
//
// Mock constructors return concrete types so tests can inject behavior and
// count calls:
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("quota exceeded")
//	}
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithAPIKey(os.Getenv("GOOGLE_API_KEY")))
//	provider, err := googleai.NewProvider(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Embedder().EmbedTexts(ctx, []string{"first chunk", "second chunk"})
package ai
