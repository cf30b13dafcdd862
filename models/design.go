package models

// Design is a saved gallery entry. It snapshots the preferences and
// settings that were active when the design was generated, and is never
// mutated in place.
type Design struct {
	ID             string          `json:"id"`
	Prompt         string          `json:"prompt"`
	ImageURL       string          `json:"imageUrl"`
	CreatedAt      string          `json:"createdAt"`
	MatchScore     int             `json:"matchScore"`
	Preferences    UserPreferences `json:"preferences"`
	DesignSettings DesignSettings  `json:"designSettings"`
}
