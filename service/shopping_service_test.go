package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `[
	{"id": 1, "title": "Slim Fit Jacket", "price": 1999, "description": "red cotton jacket", "category": "men's clothing", "image": "https://img.example/1.jpg"},
	{"id": 2, "title": "Summer Dress", "price": 1499, "description": "floral dress", "category": "women's clothing", "image": "https://img.example/2.jpg"},
	{"id": 3, "title": "Gold Ring", "price": 899, "description": "jewellery", "category": "jewelery", "image": "https://img.example/3.jpg"},
	{"id": 4, "title": "Denim Jeans", "price": 1299, "description": "blue denim", "category": "men's clothing", "image": "https://img.example/4.jpg"},
	{"id": 5, "title": "Wool Coat", "price": 2999, "description": "warm coat", "category": "women's clothing", "image": "https://img.example/5.jpg"},
	{"id": 6, "title": "Linen Shirt", "price": 999, "description": "light shirt", "category": "men's clothing", "image": "https://img.example/6.jpg"}
]`

func testShopping(t *testing.T, scores string) (*ShoppingService, func()) {
	t.Helper()

	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testCatalog)
	}))

	scorer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"parts": []map[string]interface{}{
							{"text": scores},
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))

	shopping := NewShoppingService(
		ShoppingWithStylist(testStylist(scorer.URL)),
		ShoppingWithCatalogURL(catalog.URL),
	)

	return shopping, func() {
		catalog.Close()
		scorer.Close()
	}
}

func TestCatalogMatches(t *testing.T) {
	t.Run("filters, sorts, and caps matches", func(t *testing.T) {
		// Five clothing items scored; the jewellery item never reaches
		// the scorer. One item is below the cutoff.
		shopping, cleanup := testShopping(t, `{"1": 95, "2": 30, "4": 70, "5": 88, "6": 60}`)
		defer cleanup()

		products := shopping.CatalogMatches(context.Background(), "red cotton jacket")
		require.Len(t, products, 4)
		assert.Equal(t, "1", products[0].ID)
		assert.Equal(t, "5", products[1].ID)
		assert.Equal(t, "4", products[2].ID)
		assert.Equal(t, "6", products[3].ID)
		assert.Equal(t, 95.0, products[0].Similarity)
		assert.Equal(t, "Slim Fit Jacket", products[0].Title)
		assert.Equal(t, "https://example.com/products/1", products[0].Link)
	})

	t.Run("exact cutoff score is excluded", func(t *testing.T) {
		shopping, cleanup := testShopping(t, `{"1": 50, "2": 51}`)
		defer cleanup()

		products := shopping.CatalogMatches(context.Background(), "anything")
		require.Len(t, products, 1)
		assert.Equal(t, "2", products[0].ID)
	})

	t.Run("unscored items drop out", func(t *testing.T) {
		shopping, cleanup := testShopping(t, `{"1": 80}`)
		defer cleanup()

		products := shopping.CatalogMatches(context.Background(), "anything")
		require.Len(t, products, 1)
		assert.Equal(t, "1", products[0].ID)
	})

	t.Run("unparsable scores yield empty result", func(t *testing.T) {
		shopping, cleanup := testShopping(t, "no structured data")
		defer cleanup()

		products := shopping.CatalogMatches(context.Background(), "anything")
		assert.Empty(t, products)
	})

	t.Run("catalog failure yields empty result", func(t *testing.T) {
		catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusInternalServerError)
		}))
		defer catalog.Close()

		shopping := NewShoppingService(ShoppingWithCatalogURL(catalog.URL))
		products := shopping.CatalogMatches(context.Background(), "anything")
		assert.NotNil(t, products)
		assert.Empty(t, products)
	})

	t.Run("missing stylist yields empty result", func(t *testing.T) {
		catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, testCatalog)
		}))
		defer catalog.Close()

		shopping := NewShoppingService(ShoppingWithCatalogURL(catalog.URL))
		products := shopping.CatalogMatches(context.Background(), "anything")
		assert.Empty(t, products)
	})
}

func TestFetchClothing(t *testing.T) {
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testCatalog)
	}))
	defer catalog.Close()

	shopping := NewShoppingService(ShoppingWithCatalogURL(catalog.URL))
	clothing, err := shopping.fetchClothing(context.Background())
	require.NoError(t, err)
	require.Len(t, clothing, 5)
	for _, p := range clothing {
		assert.Contains(t, []string{"men's clothing", "women's clothing"}, p.Category)
	}
}
