package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vogue-studio-backend/models"
	"vogue-studio-backend/store"

	"github.com/google/uuid"
)

var (
	ErrChatInProgress        = errors.New("a chat exchange is already in progress")
	ErrGenerationInProgress  = errors.New("a generation is already in progress")
	ErrReferenceImageMissing = errors.New("reference model is enabled but no photo is uploaded")
	ErrNoGeneratedImage      = errors.New("no generated design to save")
)

const (
	fallbackDesignPrompt = "a stylish outfit"
	fallbackDesignTitle  = "AI Try-on Design"

	generatedChatMessage  = "I've generated your design! You can see it in the main preview. What do you think?"
	generateFailMessage   = "I encountered an error while generating the try-on image."
	attachmentPlaceholder = "[Attached Image]"
)

// StudioService orchestrates the panel intents: the stylist chat, the
// compound generate flow, and gallery saves. It owns the in-flight
// gating so duplicate submissions become no-ops.
type StudioService struct {
	store   *store.Store
	stylist *StylistService

	mu       sync.Mutex
	chatting bool
}

// StudioServiceOption is a functional option for StudioService.
type StudioServiceOption func(*StudioService)

// StudioWithStore sets the studio state store.
func StudioWithStore(st *store.Store) StudioServiceOption {
	return func(s *StudioService) {
		s.store = st
	}
}

// StudioWithStylist sets the AI gateway.
func StudioWithStylist(stylist *StylistService) StudioServiceOption {
	return func(s *StudioService) {
		s.stylist = stylist
	}
}

// NewStudioService creates a new studio service.
func NewStudioService(opts ...StudioServiceOption) *StudioService {
	s := &StudioService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChatRequest represents one user message to the stylist.
type ChatRequest struct {
	Message       string
	AttachedImage string // optional data URI
}

// ChatResult represents the stylist's reply.
type ChatResult struct {
	Reply         models.ChatMessage `json:"reply"`
	RefinedPrompt string             `json:"refinedPrompt,omitempty"`
}

// Chat runs one conversational exchange. The user message and the
// reply are appended to the chat history; a non-empty refined prompt is
// stored. Only one exchange may be in flight at a time.
func (s *StudioService) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if s.store == nil {
		return nil, errors.New("store not set")
	}
	if s.stylist == nil {
		return nil, errors.New("stylist service not set")
	}

	s.mu.Lock()
	if s.chatting {
		s.mu.Unlock()
		return nil, ErrChatInProgress
	}
	s.chatting = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.chatting = false
		s.mu.Unlock()
	}()

	message := req.Message
	if message == "" && req.AttachedImage != "" {
		message = attachmentPlaceholder
	}

	s.store.AddChatMessage(models.ChatMessage{Sender: models.SenderUser, Text: message})

	refined := s.stylist.Refine(ctx, message, req.AttachedImage)

	reply := models.ChatMessage{Sender: models.SenderAI, Text: refined.Text}
	s.store.AddChatMessage(reply)
	if refined.RefinedPrompt != "" {
		s.store.SetRefinedPrompt(refined.RefinedPrompt)
	}

	return &ChatResult{Reply: reply, RefinedPrompt: refined.RefinedPrompt}, nil
}

// GenerateResult represents the outcome of the compound generate flow.
type GenerateResult struct {
	Image          string           `json:"image,omitempty"`
	MatchScore     int              `json:"matchScore"`
	MatchReasoning string           `json:"matchReasoning"`
	Products       []models.Product `json:"products"`
	ImageGenerated bool             `json:"imageGenerated"`
}

// Generate runs the full design flow: compose the final prompt, render
// the try-on image, score the match, and search similar products. It
// is a no-op while a generation is already running, and refuses to run
// in reference-model mode without an uploaded photo.
func (s *StudioService) Generate(ctx context.Context) (*GenerateResult, error) {
	if s.store == nil {
		return nil, errors.New("store not set")
	}
	if s.stylist == nil {
		return nil, errors.New("stylist service not set")
	}

	if !s.store.BeginGenerate() {
		return nil, ErrGenerationInProgress
	}
	defer s.store.EndGenerate()

	state := s.store.Snapshot()
	if state.UseReferenceModel && state.UploadedUserImage == "" {
		return nil, ErrReferenceImageMissing
	}

	finalPrompt := composeFinalPrompt(state)

	referenceImage := ""
	if state.UseReferenceModel {
		referenceImage = state.UploadedUserImage
	}

	image := s.stylist.GenerateTryOnImage(ctx, referenceImage, finalPrompt)
	if image == "" {
		s.store.AddChatMessage(models.ChatMessage{Sender: models.SenderAI, Text: generateFailMessage})
		return &GenerateResult{Products: []models.Product{}}, nil
	}

	s.store.SetGeneratedTryOnImage(image)

	match := s.stylist.MatchScore(ctx, finalPrompt, state.Preferences, state.DesignSettings)
	score := match.Score
	s.store.SetMatchScore(&score)
	s.store.SetMatchReasoning(match.Reasoning)

	s.store.SetSearching(true)
	products := s.stylist.SearchSimilarProducts(ctx, finalPrompt)
	s.store.SetShoppingResults(products)
	s.store.SetSearching(false)

	s.store.AddChatMessage(models.ChatMessage{Sender: models.SenderAI, Text: generatedChatMessage})

	return &GenerateResult{
		Image:          image,
		MatchScore:     match.Score,
		MatchReasoning: match.Reasoning,
		Products:       products,
		ImageGenerated: true,
	}, nil
}

// SaveToGallery snapshots the current design into a new gallery entry.
func (s *StudioService) SaveToGallery() (*models.Design, error) {
	if s.store == nil {
		return nil, errors.New("store not set")
	}

	state := s.store.Snapshot()
	if state.GeneratedTryOnImage == "" {
		return nil, ErrNoGeneratedImage
	}

	prompt := state.RefinedPrompt
	if prompt == "" {
		prompt = fallbackDesignTitle
	}
	score := 0
	if state.MatchScore != nil {
		score = *state.MatchScore
	}

	design := models.Design{
		ID:             uuid.NewString(),
		Prompt:         prompt,
		ImageURL:       state.GeneratedTryOnImage,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
		MatchScore:     score,
		Preferences:    state.Preferences,
		DesignSettings: state.DesignSettings,
	}

	s.store.AddToGallery(design)
	return &design, nil
}

// composeFinalPrompt combines the refined prompt, selected color, style
// preference, and tuning percentages into the synthesis prompt.
func composeFinalPrompt(state models.StudioState) string {
	base := state.RefinedPrompt
	if base == "" {
		base = fallbackDesignPrompt
	}

	colorPart := ""
	if state.SelectedColor != "" {
		colorPart = fmt.Sprintf(" in %s color", state.SelectedColor)
	}

	tuning := fmt.Sprintf("Creativity: %d%%, Trend: %d%%, Minimalism: %d%%",
		state.DesignSettings.Creativity,
		state.DesignSettings.TrendAlignment,
		state.DesignSettings.Minimalism,
	)

	return fmt.Sprintf("%s%s, in a %s style. Optimization: %s. Professional studio photography, white background.",
		base, colorPart, state.Preferences.PreferredStyle, tuning)
}
