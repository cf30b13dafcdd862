package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"vogue-studio-backend/models"
)

const (
	defaultCatalogURL = "https://fakestoreapi.com/products"

	similarityCutoff = 50
	maxMatches       = 4
)

// ShoppingService matches a design prompt against a fixed retail
// catalog by asking the model to score each item's similarity. It is
// the catalog counterpart to the stylist's live web search.
type ShoppingService struct {
	stylist    *StylistService
	catalogURL string
	httpClient *http.Client
}

// ShoppingServiceOption is a functional option for ShoppingService.
type ShoppingServiceOption func(*ShoppingService)

// ShoppingWithStylist sets the AI gateway used for similarity scoring.
func ShoppingWithStylist(stylist *StylistService) ShoppingServiceOption {
	return func(s *ShoppingService) {
		s.stylist = stylist
	}
}

// ShoppingWithCatalogURL overrides the catalog endpoint.
func ShoppingWithCatalogURL(url string) ShoppingServiceOption {
	return func(s *ShoppingService) {
		s.catalogURL = url
	}
}

// ShoppingWithHTTPClient overrides the HTTP client for catalog fetches.
func ShoppingWithHTTPClient(client *http.Client) ShoppingServiceOption {
	return func(s *ShoppingService) {
		s.httpClient = client
	}
}

// NewShoppingService creates a new shopping service.
func NewShoppingService(opts ...ShoppingServiceOption) *ShoppingService {
	s := &ShoppingService{
		catalogURL: defaultCatalogURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// catalogProduct is the catalog API's product shape.
type catalogProduct struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Price       float64     `json:"price"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Image       string      `json:"image"`
}

// CatalogMatches fetches the retail catalog, scores each clothing item
// against the design prompt, and returns the top four with similarity
// above 50, most similar first. Any failure yields an empty slice.
func (s *ShoppingService) CatalogMatches(ctx context.Context, prompt string) []models.Product {
	clothing, err := s.fetchClothing(ctx)
	if err != nil {
		log.Printf("Error getting similar products with scores: %v", err)
		return []models.Product{}
	}
	if len(clothing) == 0 {
		return []models.Product{}
	}

	scores := s.scoreSimilarity(ctx, prompt, clothing)

	matched := make([]models.Product, 0, len(clothing))
	for _, p := range clothing {
		id := p.ID.String()
		matched = append(matched, models.Product{
			ID:         id,
			Title:      p.Title,
			Price:      p.Price,
			Image:      p.Image,
			Link:       fmt.Sprintf("https://example.com/products/%s", id),
			Similarity: scores[id],
		})
	}

	filtered := matched[:0]
	for _, p := range matched {
		if p.Similarity > similarityCutoff {
			filtered = append(filtered, p)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Similarity > filtered[j].Similarity
	})

	if len(filtered) > maxMatches {
		filtered = filtered[:maxMatches]
	}
	return filtered
}

// fetchClothing downloads the catalog and keeps only the two clothing
// categories.
func (s *ShoppingService) fetchClothing(ctx context.Context) ([]catalogProduct, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.catalogURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog API error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}

	var all []catalogProduct
	if err := json.Unmarshal(body, &all); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	clothing := make([]catalogProduct, 0, len(all))
	for _, p := range all {
		if p.Category == "men's clothing" || p.Category == "women's clothing" {
			clothing = append(clothing, p)
		}
	}
	return clothing, nil
}

// scoreSimilarity asks the model for a productID -> similarity map.
// Missing or unparsable scores default to zero, which the cutoff then
// filters out.
func (s *ShoppingService) scoreSimilarity(ctx context.Context, prompt string, clothing []catalogProduct) map[string]float64 {
	if s.stylist == nil {
		log.Printf("Warning: Catalog matching called without a stylist service")
		return map[string]float64{}
	}

	type productSummary struct {
		ID          json.Number `json:"id"`
		Title       string      `json:"title"`
		Description string      `json:"description"`
	}
	summaries := make([]productSummary, 0, len(clothing))
	for _, p := range clothing {
		summaries = append(summaries, productSummary{ID: p.ID, Title: p.Title, Description: p.Description})
	}
	summaryJSON, err := json.Marshal(summaries)
	if err != nil {
		log.Printf("Warning: Failed to encode product list: %v", err)
		return map[string]float64{}
	}

	analysisPrompt := fmt.Sprintf(`Analyze the following list of products and determine how similar each one is to the user's design prompt.
- User's Design Prompt: "%s"
- Product List: %s

Return ONLY a JSON object with product IDs as keys and their similarity score (0-100) as values, like this:
{"<product_id>": <similarity_score>, "<product_id>": <similarity_score>, ...}`, prompt, summaryJSON)

	raw, err := s.stylist.callGenerationAPI(ctx, generationRequest{prompt: analysisPrompt, temperature: 0.2})
	if err != nil {
		log.Printf("Error scoring catalog similarity: %v", err)
		return map[string]float64{}
	}

	jsonStr, found := extractJSONObject(raw)
	if !found {
		log.Printf("Warning: Similarity response contained no JSON object")
		return map[string]float64{}
	}

	var scores map[string]float64
	if err := json.Unmarshal([]byte(jsonStr), &scores); err != nil {
		log.Printf("Warning: Similarity response had invalid JSON: %v", err)
		return map[string]float64{}
	}
	return scores
}
