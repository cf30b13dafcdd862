package models

// Product is a shopping result returned by a search call. Products are
// transient; they are not persisted across restarts.
type Product struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	Image      string  `json:"image"`
	Link       string  `json:"link"`
	Similarity float64 `json:"similarity,omitempty"`
}
