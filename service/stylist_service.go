package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"vogue-studio-backend/models"

	"github.com/google/generative-ai-go/genai"
)

const (
	chatModel  = "gemini-3-flash-preview"
	imageModel = "gemini-2.5-flash-image"

	defaultGenerationBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	maxRetries            = 3
	defaultInitialBackoff = time.Second
)

// Fixed sentinel texts for failed gateway calls. Callers display these
// as-is instead of handling errors.
const (
	apologyText            = "Sorry, an error occurred."
	scoreFallbackReasoning = "Could not be determined."
	scoreFailureReasoning  = "An error occurred during analysis."
)

const stylistSystemInstruction = `You are an expert fashion stylist. Your goal is to help a user design a piece of clothing.
1. Ask clarifying questions about style, material, color, and fit (one at a time).
2. Maintain a friendly, professional tone.
3. After every response, internally keep track of the "Current Refined Design Prompt".
4. If the user seems ready or you have enough info, suggest a final design.

IMPORTANT: At the end of every response, include a hidden block with the current best design prompt in this format: [PROMPT: your detailed design prompt here]`

// StylistService is the gateway to the hosted generative service. It
// shapes prompts from studio state, calls the model, and parses the
// loosely structured responses back into typed results.
//
// Every operation is fail-soft: failures are logged and collapsed into
// sentinel values (empty string, empty slice, zero score), never
// returned as errors.
type StylistService struct {
	client         *genai.Client
	apiKey         string
	baseURL        string
	httpClient     *http.Client
	initialBackoff time.Duration

	// The conversational session is created once per process lifetime
	// and reused. It is not safe for interleaved use, so the lock is
	// held across each exchange.
	mu      sync.Mutex
	session *genai.ChatSession
}

// StylistServiceOption is a functional option for StylistService.
type StylistServiceOption func(*StylistService)

// StylistWithGeminiClient sets the Gemini SDK client used for the chat
// session and image synthesis.
func StylistWithGeminiClient(client *genai.Client) StylistServiceOption {
	return func(s *StylistService) {
		s.client = client
	}
}

// StylistWithAPIKey sets the key for direct REST generation calls.
func StylistWithAPIKey(key string) StylistServiceOption {
	return func(s *StylistService) {
		s.apiKey = key
	}
}

// StylistWithBaseURL overrides the REST endpoint base URL.
func StylistWithBaseURL(url string) StylistServiceOption {
	return func(s *StylistService) {
		s.baseURL = strings.TrimSuffix(url, "/")
	}
}

// StylistWithHTTPClient overrides the HTTP client for REST calls.
func StylistWithHTTPClient(client *http.Client) StylistServiceOption {
	return func(s *StylistService) {
		s.httpClient = client
	}
}

// StylistWithInitialBackoff overrides the first retry delay.
func StylistWithInitialBackoff(d time.Duration) StylistServiceOption {
	return func(s *StylistService) {
		s.initialBackoff = d
	}
}

// NewStylistService creates a new stylist gateway.
func NewStylistService(opts ...StylistServiceOption) *StylistService {
	s := &StylistService{
		baseURL:        defaultGenerationBaseURL,
		httpClient:     &http.Client{Timeout: 120 * time.Second},
		initialBackoff: defaultInitialBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefineResult is the parsed outcome of one conversational exchange.
// RefinedPrompt is empty until the stylist has converged on a design.
type RefineResult struct {
	Text          string `json:"text"`
	RefinedPrompt string `json:"refinedPrompt,omitempty"`
}

// Refine sends one user message (optionally with an attached image) to
// the stylist session, extracts the tagged design prompt if present,
// and strips the tag from the display text.
func (s *StylistService) Refine(ctx context.Context, message, attachedImageDataURI string) RefineResult {
	if s.client == nil {
		log.Printf("Warning: Stylist chat called without a Gemini client")
		return RefineResult{Text: apologyText}
	}

	parts := []genai.Part{genai.Text(message)}
	if attachedImageDataURI != "" {
		data, mimeType, err := DecodeDataURI(attachedImageDataURI)
		if err != nil {
			log.Printf("Warning: Ignoring undecodable chat attachment: %v", err)
		} else {
			parts = append(parts, genai.Blob{MIMEType: mimeType, Data: data})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		model := s.client.GenerativeModel(chatModel)
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(stylistSystemInstruction)},
		}
		s.session = model.StartChat()
	}

	resp, err := s.session.SendMessage(ctx, parts...)
	if err != nil {
		log.Printf("Error getting stylist response: %v", err)
		return RefineResult{Text: apologyText}
	}

	raw := responseText(resp)
	if raw == "" {
		return RefineResult{Text: "Sorry, I am unable to respond."}
	}

	prompt, display := extractTaggedPrompt(raw)
	return RefineResult{Text: display, RefinedPrompt: prompt}
}

// MatchResult is the parsed outcome of a match scoring call.
type MatchResult struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// MatchScore asks the model to rate how well a design prompt aligns
// with the user's preferences and tuning. Unparsable responses default
// to score 0 and a fixed reasoning string.
func (s *StylistService) MatchScore(ctx context.Context, prompt string, prefs models.UserPreferences, settings models.DesignSettings) MatchResult {
	analysisPrompt := fmt.Sprintf(`Analyze the following fashion design prompt and user preferences, then return a match score and reasoning.
- User's Prompt: "%s"
- User's Preferences:
  - Style: %s
  - Colors: %s
  - Budget: $%.0f - $%.0f
- Design Settings:
  - Creativity: %d%%
  - Minimalism: %d%%
  - Trend Alignment: %d%%

Based on this, provide a percentage score of how well the described design matches the user's preferences and current general fashion trends.
Also provide a brief reasoning for your score.

Return ONLY a JSON object in the format: {"score": <number>, "reasoning": "<string>"}`,
		prompt,
		prefs.PreferredStyle,
		strings.Join(prefs.PreferredColors, ", "),
		prefs.BudgetRange.Min(),
		prefs.BudgetRange.Max(),
		settings.Creativity,
		settings.Minimalism,
		settings.TrendAlignment,
	)

	raw, err := s.callGenerationAPI(ctx, generationRequest{prompt: analysisPrompt, temperature: 0.2})
	if err != nil {
		log.Printf("Error getting match score: %v", err)
		return MatchResult{Score: 0, Reasoning: scoreFailureReasoning}
	}

	jsonStr, found := extractJSONObject(raw)
	if !found {
		log.Printf("Warning: Match score response contained no JSON object")
		return MatchResult{Score: 0, Reasoning: scoreFallbackReasoning}
	}

	var parsed struct {
		Score     float64 `json:"score"`
		Reasoning string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		log.Printf("Warning: Match score response had invalid JSON: %v", err)
		return MatchResult{Score: 0, Reasoning: scoreFallbackReasoning}
	}

	result := MatchResult{Score: int(parsed.Score), Reasoning: parsed.Reasoning}
	if result.Reasoning == "" {
		result.Reasoning = scoreFallbackReasoning
	}
	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 100 {
		result.Score = 100
	}
	return result
}

// SearchSimilarProducts asks the model, with live web search, for four
// real products matching the design prompt from the Indian retail
// market. Any failure yields an empty slice.
func (s *StylistService) SearchSimilarProducts(ctx context.Context, clothingPrompt string) []models.Product {
	searchPrompt := fmt.Sprintf(`Find 4 real, available online store links from the INDIAN market (e.g., Myntra, Ajio, Flipkart, Amazon.in, Tata CLiQ) for clothing that matches this description: %s.

CRITICAL REQUIREMENTS:
1. Return a JSON array of objects.
2. Each object MUST have: id, title, price (number in Indian Rupees - INR), image (URL), and link (URL).
3. The 'image' URL MUST be a direct, high-quality public image URL.
4. Ensure the links are from Indian e-commerce domains (.in or specific Indian retailers).
5. If no exact match is found, suggest similar items available in India.`, clothingPrompt)

	raw, err := s.callGenerationAPI(ctx, generationRequest{
		prompt:    searchPrompt,
		useSearch: true,
		responseSchema: map[string]interface{}{
			"type": "ARRAY",
			"items": map[string]interface{}{
				"type": "OBJECT",
				"properties": map[string]interface{}{
					"id":    map[string]interface{}{"type": "STRING"},
					"title": map[string]interface{}{"type": "STRING"},
					"price": map[string]interface{}{"type": "NUMBER"},
					"image": map[string]interface{}{"type": "STRING"},
					"link":  map[string]interface{}{"type": "STRING"},
				},
				"required": []string{"id", "title", "price", "image", "link"},
			},
		},
	})
	if err != nil {
		log.Printf("Error searching products: %v", err)
		return []models.Product{}
	}

	jsonStr, found := extractJSONArray(raw)
	if !found {
		log.Printf("Warning: Product search response contained no JSON array")
		return []models.Product{}
	}

	var products []models.Product
	if err := json.Unmarshal([]byte(jsonStr), &products); err != nil {
		log.Printf("Warning: Product search response had invalid JSON: %v", err)
		return []models.Product{}
	}

	return products
}

// GenerateTryOnImage synthesizes a try-on photograph. With a reference
// photo the model dresses the pictured person in the design; without
// one it produces ghost-mannequin product photography. Returns the
// image as a data URI, or empty on failure.
func (s *StylistService) GenerateTryOnImage(ctx context.Context, referenceImageDataURI, clothingPrompt string) string {
	if s.client == nil {
		log.Printf("Warning: Image generation called without a Gemini client")
		return ""
	}

	parts := buildTryOnParts(referenceImageDataURI, clothingPrompt)

	model := s.client.GenerativeModel(imageModel)
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		log.Printf("Error generating try-on image: %v", err)
		return ""
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if blob, ok := part.(genai.Blob); ok {
				return EncodeDataURI(blob.MIMEType, blob.Data)
			}
		}
	}

	log.Printf("Warning: Image generation response contained no inline image part")
	return ""
}

// buildTryOnParts assembles the content parts for image synthesis. The
// instruction branch depends on whether a usable reference photo is
// supplied.
func buildTryOnParts(referenceImageDataURI, clothingPrompt string) []genai.Part {
	if referenceImageDataURI != "" {
		data, mimeType, err := DecodeDataURI(referenceImageDataURI)
		if err != nil {
			log.Printf("Warning: Ignoring undecodable reference photo: %v", err)
		} else {
			return []genai.Part{
				genai.Blob{MIMEType: mimeType, Data: data},
				genai.Text(fmt.Sprintf(`Professional E-commerce Virtual Try-on:
Generate a high-resolution, professional fashion photograph of the person in the provided photo wearing the following design: %s.

Key Requirements:
1. Background: Clean, solid white studio background.
2. Lighting: Natural, soft studio lighting with subtle shadows to define form.
3. Fabric Texture: Highly detailed and realistic fabric textures.
4. Fit & Proportions: The clothing must perfectly follow the person's body contours, pose, and perspective.
5. Consistency: Maintain the person's facial features, hair, skin tone, and original pose exactly.
6. Quality: Sharp resolution, professional color grading.`, clothingPrompt)),
			}
		}
	}

	return []genai.Part{
		genai.Text(fmt.Sprintf(`Professional E-commerce Product Photography:
Generate a high-resolution, professional fashion photograph of the following clothing design: %s.

Key Requirements:
1. Presentation: The clothing should be displayed on a high-end invisible mannequin (ghost mannequin) or as a perfectly styled flat lay.
2. Background: Clean, solid white studio background.
3. Lighting: Natural, soft studio lighting with subtle shadows to define form and depth.
4. Fabric Texture: Highly detailed and realistic fabric textures (e.g., matte cotton, silk sheen, denim grain).
5. Quality: Sharp resolution, professional color grading, and e-commerce catalog quality.`, clothingPrompt)),
	}
}

// responseText concatenates the text parts of an SDK response.
func responseText(resp *genai.GenerateContentResponse) string {
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				builder.WriteString(string(text))
			}
		}
	}
	return builder.String()
}

// generationRequest describes one direct REST generateContent call.
type generationRequest struct {
	prompt         string
	temperature    float64
	useSearch      bool
	responseSchema map[string]interface{}
}

// callGenerationAPI calls the Gemini generation endpoint directly via
// HTTP with bounded retry. 400 and 401 responses are never retried.
func (s *StylistService) callGenerationAPI(ctx context.Context, genReq generationRequest) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY not set")
	}

	generationConfig := map[string]interface{}{
		"temperature": genReq.temperature,
	}
	if genReq.responseSchema != nil {
		generationConfig["responseMimeType"] = "application/json"
		generationConfig["responseSchema"] = genReq.responseSchema
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": genReq.prompt},
				},
			},
		},
		"generationConfig": generationConfig,
	}
	if genReq.useSearch {
		reqBody["tools"] = []map[string]interface{}{
			{"google_search": map[string]interface{}{}},
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", s.baseURL, chatModel)

	var lastErr error
	backoff := s.initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", s.apiKey)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to send request: %w", err)
			continue
		}

		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			// Don't retry on 400 or 401 errors
			if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
				return "", fmt.Errorf("API error: %d - %s", resp.StatusCode, string(bodyBytes))
			}
			lastErr = fmt.Errorf("API error: %d - %s", resp.StatusCode, string(bodyBytes))
			continue
		}

		text, err := decodeGenerationResponse(bodyBytes)
		if err != nil {
			lastErr = err
			continue
		}
		return text, nil
	}

	return "", fmt.Errorf("API call failed after %d attempts: %w", maxRetries, lastErr)
}

// decodeGenerationResponse extracts the concatenated candidate text
// from a raw generateContent response body.
func decodeGenerationResponse(bodyBytes []byte) (string, error) {
	var apiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason,omitempty"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason,omitempty"`
		} `json:"promptFeedback,omitempty"`
		Error struct {
			Code    int    `json:"code,omitempty"`
			Message string `json:"message,omitempty"`
		} `json:"error,omitempty"`
	}

	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResp.Error.Message != "" {
		return "", fmt.Errorf("API error: %s (code: %d)", apiResp.Error.Message, apiResp.Error.Code)
	}
	if apiResp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("API blocked prompt: %s", apiResp.PromptFeedback.BlockReason)
	}
	if len(apiResp.Candidates) == 0 {
		return "", fmt.Errorf("API returned no candidates")
	}

	var responseText strings.Builder
	for i, candidate := range apiResp.Candidates {
		if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
			log.Printf("Warning: Candidate %d finished with reason: %s", i, candidate.FinishReason)
		}
		for _, part := range candidate.Content.Parts {
			responseText.WriteString(part.Text)
		}
	}

	result := responseText.String()
	if result == "" {
		return "", fmt.Errorf("API returned empty content")
	}

	return result, nil
}
