package models

import "encoding/json"

// StudioState is the whole cross-page UI state. Empty strings stand in
// for "no value" on the nullable image/prompt/color slices.
type StudioState struct {
	UploadedUserImage   string          `json:"uploadedUserImage"`
	GeneratedTryOnImage string          `json:"generatedTryOnImage"`
	IsGenerating        bool            `json:"isGenerating"`
	Preferences         UserPreferences `json:"preferences"`
	DesignSettings      DesignSettings  `json:"designSettings"`
	MatchScore          *int            `json:"matchScore"`
	MatchReasoning      string          `json:"matchReasoning"`
	RefinedPrompt       string          `json:"refinedPrompt"`
	SelectedColor       string          `json:"selectedColor"`
	UseReferenceModel   bool            `json:"useReferenceModel"`
	ShoppingResults     []Product       `json:"shoppingResults"`
	IsSearching         bool            `json:"isSearching"`
	Gallery             []Design        `json:"gallery"`
	ChatHistory         []ChatMessage   `json:"chatHistory"`
}

// PersistedState is the durable subset of StudioState. Pointer fields
// distinguish "absent from the snapshot" (keep the default) from an
// explicit stored value; gallery, chat history, and match score are
// always written so a cleared value survives a restart instead of
// resurrecting the default. Volatile slices (generated image, in-flight
// flags, shopping results, selected color) are intentionally excluded
// and always reset on a fresh load.
type PersistedState struct {
	Preferences       *UserPreferences `json:"preferences,omitempty"`
	DesignSettings    *DesignSettings  `json:"designSettings,omitempty"`
	Gallery           []Design         `json:"gallery"`
	ChatHistory       []ChatMessage    `json:"chatHistory"`
	MatchScore        OptionalInt      `json:"matchScore"`
	MatchReasoning    *string          `json:"matchReasoning,omitempty"`
	UploadedUserImage *string          `json:"uploadedUserImage,omitempty"`
	RefinedPrompt     *string          `json:"refinedPrompt,omitempty"`
	UseReferenceModel *bool            `json:"useReferenceModel,omitempty"`
}

// OptionalInt is a nullable int that also remembers whether its key was
// present at all, so a stored null is not confused with a missing key.
type OptionalInt struct {
	Set   bool
	Value *int
}

func (o OptionalInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}

func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

const (
	defaultUploadedUserImage = "https://images.unsplash.com/photo-1539109136881-3be0616acf4b?q=80&w=1000&auto=format&fit=crop"
	defaultMatchScore        = 88
	defaultMatchReasoning    = "Matches your streetwear style and color palette"
	defaultGreeting          = "Hello! Let's design your perfect outfit. What style are you thinking? Casual, streetwear, formal, or something else?"
)

// DefaultState returns the compiled-in defaults for a fresh studio.
func DefaultState() StudioState {
	score := defaultMatchScore
	return StudioState{
		UploadedUserImage: defaultUploadedUserImage,
		Preferences: UserPreferences{
			PreferredStyle:  "Streetwear",
			PreferredColors: []string{"#000000", "#333333", "#666666", "#999999"},
			BudgetRange:     BudgetRange{500, 2500},
		},
		DesignSettings: DesignSettings{
			Creativity:     80,
			TrendAlignment: 90,
			Minimalism:     40,
		},
		MatchScore:        &score,
		MatchReasoning:    defaultMatchReasoning,
		UseReferenceModel: true,
		ShoppingResults:   []Product{},
		Gallery:           []Design{},
		ChatHistory: []ChatMessage{
			{Sender: SenderAI, Text: defaultGreeting},
		},
	}
}
