package store

import (
	"log"
	"sync"

	"vogue-studio-backend/models"
)

// Store is the single source of truth for studio state. All mutation is
// whole-slice replacement; after every mutation the durable subset is
// handed to the configured Persister. The store guards itself with a
// lock because the HTTP host serves requests concurrently.
type Store struct {
	mu        sync.RWMutex
	state     models.StudioState
	persister Persister
}

// Option is a functional option for Store.
type Option func(*Store)

// WithPersister sets the durability backend. Without one the store is
// memory-only.
func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

// New creates a store initialized to the compiled-in defaults.
func New(opts ...Option) *Store {
	s := &Store{state: models.DefaultState()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads the persisted snapshot and merges it over the defaults.
// A missing, unreadable, or corrupt snapshot leaves the defaults in
// place; the failure is logged, never returned. Volatile slices always
// keep their default value.
func (s *Store) Hydrate() {
	if s.persister == nil {
		return
	}

	saved, err := s.persister.Load()
	if err != nil {
		log.Printf("Warning: Failed to load persisted state, using defaults: %v", err)
		return
	}
	if saved == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if saved.Preferences != nil {
		s.state.Preferences = *saved.Preferences
	}
	if saved.DesignSettings != nil {
		s.state.DesignSettings = *saved.DesignSettings
	}
	if saved.Gallery != nil {
		s.state.Gallery = saved.Gallery
	}
	if saved.ChatHistory != nil {
		s.state.ChatHistory = saved.ChatHistory
	}
	if saved.MatchScore.Set {
		if saved.MatchScore.Value == nil {
			s.state.MatchScore = nil
		} else {
			score := *saved.MatchScore.Value
			s.state.MatchScore = &score
		}
	}
	if saved.MatchReasoning != nil {
		s.state.MatchReasoning = *saved.MatchReasoning
	}
	if saved.UploadedUserImage != nil {
		s.state.UploadedUserImage = *saved.UploadedUserImage
	}
	if saved.RefinedPrompt != nil {
		s.state.RefinedPrompt = *saved.RefinedPrompt
	}
	if saved.UseReferenceModel != nil {
		s.state.UseReferenceModel = *saved.UseReferenceModel
	}
}

// Snapshot returns a copy of the whole state. Slices are copied so the
// caller cannot alias the store's internals.
func (s *Store) Snapshot() models.StudioState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyState(s.state)
}

// SetUploadedUserImage replaces the reference photo. Empty clears it.
func (s *Store) SetUploadedUserImage(img string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UploadedUserImage = img
	s.persistLocked()
}

// SetGeneratedTryOnImage replaces the generated try-on result.
func (s *Store) SetGeneratedTryOnImage(img string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.GeneratedTryOnImage = img
	s.persistLocked()
}

// BeginGenerate sets the in-flight generation flag. It returns false if
// a generation is already running, so duplicate submissions are no-ops.
func (s *Store) BeginGenerate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsGenerating {
		return false
	}
	s.state.IsGenerating = true
	return true
}

// EndGenerate clears the in-flight generation flag.
func (s *Store) EndGenerate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsGenerating = false
}

// SetPreferences merges a partial update over the current preferences.
// Fields not present in the patch keep their prior value.
func (s *Store) SetPreferences(patch models.PreferencesPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch.PreferredStyle != nil {
		s.state.Preferences.PreferredStyle = *patch.PreferredStyle
	}
	if patch.PreferredColors != nil {
		s.state.Preferences.PreferredColors = append([]string(nil), patch.PreferredColors...)
	}
	if patch.BudgetRange != nil {
		s.state.Preferences.BudgetRange = *patch.BudgetRange
	}
	s.persistLocked()
}

// SetDesignSettings merges a partial update over the current settings.
func (s *Store) SetDesignSettings(patch models.SettingsPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch.Creativity != nil {
		s.state.DesignSettings.Creativity = *patch.Creativity
	}
	if patch.TrendAlignment != nil {
		s.state.DesignSettings.TrendAlignment = *patch.TrendAlignment
	}
	if patch.Minimalism != nil {
		s.state.DesignSettings.Minimalism = *patch.Minimalism
	}
	s.persistLocked()
}

// SetMatchScore replaces the match score. Nil clears it.
func (s *Store) SetMatchScore(score *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if score == nil {
		s.state.MatchScore = nil
	} else {
		v := *score
		s.state.MatchScore = &v
	}
	s.persistLocked()
}

// SetMatchReasoning replaces the match reasoning text.
func (s *Store) SetMatchReasoning(reasoning string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MatchReasoning = reasoning
	s.persistLocked()
}

// SetRefinedPrompt replaces the refined design prompt. Empty clears it.
func (s *Store) SetRefinedPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.RefinedPrompt = prompt
	s.persistLocked()
}

// SetSelectedColor replaces the selected color. Empty clears it.
func (s *Store) SetSelectedColor(color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectedColor = color
	s.persistLocked()
}

// SetUseReferenceModel toggles reference-model mode.
func (s *Store) SetUseReferenceModel(val bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UseReferenceModel = val
	s.persistLocked()
}

// SetShoppingResults replaces the transient shopping results.
func (s *Store) SetShoppingResults(results []models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if results == nil {
		results = []models.Product{}
	}
	s.state.ShoppingResults = results
	s.persistLocked()
}

// SetSearching sets the in-flight product search flag.
func (s *Store) SetSearching(val bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsSearching = val
}

// AddToGallery prepends a design so the gallery stays most-recent-first.
func (s *Store) AddToGallery(design models.Design) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Gallery = append([]models.Design{design}, s.state.Gallery...)
	s.persistLocked()
}

// RemoveFromGallery deletes the design with the given id, if present.
func (s *Store) RemoveFromGallery(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]models.Design, 0, len(s.state.Gallery))
	for _, d := range s.state.Gallery {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	s.state.Gallery = kept
	s.persistLocked()
}

// DesignByID looks up a gallery entry by id.
func (s *Store) DesignByID(id string) (models.Design, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.state.Gallery {
		if d.ID == id {
			return d, true
		}
	}
	return models.Design{}, false
}

// AddChatMessage appends a message to the conversation.
func (s *Store) AddChatMessage(msg models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ChatHistory = append(s.state.ChatHistory, msg)
	s.persistLocked()
}

// ClearChat resets the conversation to empty.
func (s *Store) ClearChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ChatHistory = []models.ChatMessage{}
	s.persistLocked()
}

// LoadDesign restores a saved design for further editing. It replaces
// the generated image, refined prompt, preferences, settings, and match
// score from the snapshot and leaves the chat history and the uploaded
// reference photo untouched.
func (s *Store) LoadDesign(design models.Design) {
	s.mu.Lock()
	defer s.mu.Unlock()
	score := design.MatchScore
	s.state.GeneratedTryOnImage = design.ImageURL
	s.state.RefinedPrompt = design.Prompt
	s.state.Preferences = design.Preferences
	s.state.DesignSettings = design.DesignSettings
	s.state.MatchScore = &score
	s.persistLocked()
}

// persistLocked writes the durable subset through the persister. Write
// failures are logged and dropped; the in-memory state stays the truth.
// Callers must hold the write lock.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}

	snapshot := copyState(s.state)
	persisted := &models.PersistedState{
		Preferences:       &snapshot.Preferences,
		DesignSettings:    &snapshot.DesignSettings,
		Gallery:           snapshot.Gallery,
		ChatHistory:       snapshot.ChatHistory,
		MatchScore:        models.OptionalInt{Set: true, Value: snapshot.MatchScore},
		MatchReasoning:    &snapshot.MatchReasoning,
		UploadedUserImage: &snapshot.UploadedUserImage,
		RefinedPrompt:     &snapshot.RefinedPrompt,
		UseReferenceModel: &snapshot.UseReferenceModel,
	}

	if err := s.persister.Save(persisted); err != nil {
		log.Printf("Warning: Failed to persist studio state: %v", err)
	}
}

// copyState deep-copies the slice-valued fields of the state. Empty
// slices stay non-nil so they serialize as [] rather than null.
func copyState(in models.StudioState) models.StudioState {
	out := in
	out.Preferences.PreferredColors = copySlice(in.Preferences.PreferredColors)
	out.ShoppingResults = copySlice(in.ShoppingResults)
	out.Gallery = copySlice(in.Gallery)
	out.ChatHistory = copySlice(in.ChatHistory)
	if in.MatchScore != nil {
		score := *in.MatchScore
		out.MatchScore = &score
	}
	return out
}

func copySlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
