package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"vogue-studio-backend/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerationServer returns an httptest server that answers every
// generateContent call with the given candidate text.
func fakeGenerationServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"parts": []map[string]interface{}{
							{"text": text},
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func testStylist(serverURL string) *StylistService {
	return NewStylistService(
		StylistWithAPIKey("test-key"),
		StylistWithBaseURL(serverURL),
		StylistWithInitialBackoff(0),
	)
}

func TestMatchScore(t *testing.T) {
	prefs := models.UserPreferences{
		PreferredStyle:  "Streetwear",
		PreferredColors: []string{"#000000"},
		BudgetRange:     models.BudgetRange{500, 2500},
	}
	settings := models.DesignSettings{Creativity: 80, TrendAlignment: 90, Minimalism: 40}

	t.Run("parses prose-wrapped JSON", func(t *testing.T) {
		server := fakeGenerationServer(t, `Here is my analysis: {"score": 73, "reasoning": "good fit"} hope that helps`)
		defer server.Close()

		result := testStylist(server.URL).MatchScore(context.Background(), "red jacket", prefs, settings)
		assert.Equal(t, 73, result.Score)
		assert.Equal(t, "good fit", result.Reasoning)
	})

	t.Run("clamps score into range", func(t *testing.T) {
		server := fakeGenerationServer(t, `{"score": 140, "reasoning": "over"}`)
		defer server.Close()

		result := testStylist(server.URL).MatchScore(context.Background(), "red jacket", prefs, settings)
		assert.Equal(t, 100, result.Score)
	})

	t.Run("unparsable response falls back", func(t *testing.T) {
		server := fakeGenerationServer(t, "I cannot produce structured output today")
		defer server.Close()

		result := testStylist(server.URL).MatchScore(context.Background(), "red jacket", prefs, settings)
		assert.Equal(t, 0, result.Score)
		assert.Equal(t, scoreFallbackReasoning, result.Reasoning)
	})

	t.Run("API failure falls back", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": {"code": 400, "message": "bad request"}}`, http.StatusBadRequest)
		}))
		defer server.Close()

		result := testStylist(server.URL).MatchScore(context.Background(), "red jacket", prefs, settings)
		assert.Equal(t, 0, result.Score)
		assert.Equal(t, scoreFailureReasoning, result.Reasoning)
	})

	t.Run("missing reasoning gets fallback text", func(t *testing.T) {
		server := fakeGenerationServer(t, `{"score": 55}`)
		defer server.Close()

		result := testStylist(server.URL).MatchScore(context.Background(), "red jacket", prefs, settings)
		assert.Equal(t, 55, result.Score)
		assert.Equal(t, scoreFallbackReasoning, result.Reasoning)
	})
}

func TestSearchSimilarProducts(t *testing.T) {
	t.Run("parses product array", func(t *testing.T) {
		server := fakeGenerationServer(t, `[{"id": "p1", "title": "Jacket", "price": 1999, "image": "https://img.example/1.jpg", "link": "https://shop.example.in/1"}]`)
		defer server.Close()

		products := testStylist(server.URL).SearchSimilarProducts(context.Background(), "red jacket")
		require.Len(t, products, 1)
		assert.Equal(t, "p1", products[0].ID)
		assert.Equal(t, "Jacket", products[0].Title)
		assert.Equal(t, 1999.0, products[0].Price)
	})

	t.Run("no array yields empty slice", func(t *testing.T) {
		server := fakeGenerationServer(t, "sorry, I could not find anything")
		defer server.Close()

		products := testStylist(server.URL).SearchSimilarProducts(context.Background(), "red jacket")
		assert.NotNil(t, products)
		assert.Empty(t, products)
	})

	t.Run("malformed array yields empty slice", func(t *testing.T) {
		server := fakeGenerationServer(t, `[{"id": "p1", "price": "not-a-number"}]`)
		defer server.Close()

		products := testStylist(server.URL).SearchSimilarProducts(context.Background(), "red jacket")
		assert.Empty(t, products)
	})

	t.Run("API failure yields empty slice", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}))
		defer server.Close()

		products := testStylist(server.URL).SearchSimilarProducts(context.Background(), "red jacket")
		assert.Empty(t, products)
	})
}

func TestCallGenerationAPI(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		s := NewStylistService()
		_, err := s.callGenerationAPI(context.Background(), generationRequest{prompt: "hi"})
		assert.Error(t, err)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, `{"candidates": [{"content": {"parts": [{"text": "ok"}]}}]}`)
		}))
		defer server.Close()

		text, err := testStylist(server.URL).callGenerationAPI(context.Background(), generationRequest{prompt: "hi"})
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("does not retry on 400", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			http.Error(w, "bad request", http.StatusBadRequest)
		}))
		defer server.Close()

		_, err := testStylist(server.URL).callGenerationAPI(context.Background(), generationRequest{prompt: "hi"})
		assert.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := testStylist(server.URL).callGenerationAPI(context.Background(), generationRequest{prompt: "hi"})
		assert.Error(t, err)
		assert.Equal(t, int32(maxRetries), atomic.LoadInt32(&calls))
	})

	t.Run("sends search tool and schema when requested", func(t *testing.T) {
		var captured map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&captured)
			fmt.Fprint(w, `{"candidates": [{"content": {"parts": [{"text": "[]"}]}}]}`)
		}))
		defer server.Close()

		_, err := testStylist(server.URL).callGenerationAPI(context.Background(), generationRequest{
			prompt:         "hi",
			useSearch:      true,
			responseSchema: map[string]interface{}{"type": "ARRAY"},
		})
		require.NoError(t, err)

		require.Contains(t, captured, "tools")
		cfg, ok := captured["generationConfig"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "application/json", cfg["responseMimeType"])
		assert.Contains(t, cfg, "responseSchema")
	})
}

func TestDecodeGenerationResponse(t *testing.T) {
	t.Run("concatenates candidate parts", func(t *testing.T) {
		body := []byte(`{"candidates": [{"content": {"parts": [{"text": "hello "}, {"text": "world"}]}}]}`)
		text, err := decodeGenerationResponse(body)
		require.NoError(t, err)
		assert.Equal(t, "hello world", text)
	})

	t.Run("surfaces embedded API error", func(t *testing.T) {
		body := []byte(`{"error": {"code": 429, "message": "quota exceeded"}}`)
		_, err := decodeGenerationResponse(body)
		assert.ErrorContains(t, err, "quota exceeded")
	})

	t.Run("surfaces blocked prompt", func(t *testing.T) {
		body := []byte(`{"promptFeedback": {"blockReason": "SAFETY"}}`)
		_, err := decodeGenerationResponse(body)
		assert.ErrorContains(t, err, "SAFETY")
	})

	t.Run("no candidates is an error", func(t *testing.T) {
		_, err := decodeGenerationResponse([]byte(`{}`))
		assert.Error(t, err)
	})

	t.Run("empty content is an error", func(t *testing.T) {
		body := []byte(`{"candidates": [{"content": {"parts": []}}]}`)
		_, err := decodeGenerationResponse(body)
		assert.Error(t, err)
	})
}

func TestBuildTryOnParts(t *testing.T) {
	t.Run("no reference photo uses ghost mannequin branch", func(t *testing.T) {
		parts := buildTryOnParts("", "red jacket")
		require.Len(t, parts, 1)
		text := partText(t, parts[0])
		assert.Contains(t, text, "ghost mannequin")
		assert.Contains(t, text, "red jacket")
	})

	t.Run("reference photo uses identity preservation branch", func(t *testing.T) {
		uri := EncodeDataURI("image/png", []byte{1, 2, 3})
		parts := buildTryOnParts(uri, "red jacket")
		require.Len(t, parts, 2)
		text := partText(t, parts[1])
		assert.Contains(t, text, "facial features")
		assert.Contains(t, text, "red jacket")
	})

	t.Run("undecodable reference falls back to mannequin branch", func(t *testing.T) {
		parts := buildTryOnParts("https://example.com/photo.png", "red jacket")
		require.Len(t, parts, 1)
		assert.Contains(t, partText(t, parts[0]), "ghost mannequin")
	})
}

func partText(t *testing.T, part genai.Part) string {
	t.Helper()
	text, ok := part.(genai.Text)
	require.True(t, ok)
	return string(text)
}
