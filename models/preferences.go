package models

// BudgetRange is an ordered (min, max) pair of prices. Min must not
// exceed max.
type BudgetRange [2]float64

// Min returns the lower bound of the range.
func (b BudgetRange) Min() float64 { return b[0] }

// Max returns the upper bound of the range.
func (b BudgetRange) Max() float64 { return b[1] }

// Valid reports whether the range is ordered.
func (b BudgetRange) Valid() bool { return b[0] <= b[1] }

// UserPreferences holds the user's stated style preferences.
type UserPreferences struct {
	PreferredStyle  string      `json:"preferredStyle"`
	PreferredColors []string    `json:"preferredColors"`
	BudgetRange     BudgetRange `json:"budgetRange"`
}

// PreferencesPatch is a partial update to UserPreferences. Nil fields
// keep their prior value.
type PreferencesPatch struct {
	PreferredStyle  *string      `json:"preferredStyle"`
	PreferredColors []string     `json:"preferredColors"`
	BudgetRange     *BudgetRange `json:"budgetRange"`
}

// DesignSettings holds the three tuning sliders, each in [0,100].
type DesignSettings struct {
	Creativity     int `json:"creativity"`
	TrendAlignment int `json:"trendAlignment"`
	Minimalism     int `json:"minimalism"`
}

// SettingsPatch is a partial update to DesignSettings. Nil fields keep
// their prior value.
type SettingsPatch struct {
	Creativity     *int `json:"creativity"`
	TrendAlignment *int `json:"trendAlignment"`
	Minimalism     *int `json:"minimalism"`
}
