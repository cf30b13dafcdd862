package main

import (
	"context"
	"log"
	"os"

	"vogue-studio-backend/handlers"
	"vogue-studio-backend/service"
	"vogue-studio-backend/storage"
	"vogue-studio-backend/store"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	// Try current directory first, then project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	// Initialize persisted studio state
	studioStore, err := initStore()
	if err != nil {
		log.Fatal("Failed to initialize studio store:", err)
	}

	// Initialize export storage
	fileStorage, err := storage.NewStorageFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	log.Println("Storage initialized")

	// Initialize Gemini client
	geminiClient, err := initGemini()
	if err != nil {
		log.Fatal("Failed to initialize Gemini:", err)
	}

	// Initialize services
	stylistService := service.NewStylistService(
		service.StylistWithGeminiClient(geminiClient),
		service.StylistWithAPIKey(os.Getenv("GEMINI_API_KEY")),
	)

	studioService := service.NewStudioService(
		service.StudioWithStore(studioStore),
		service.StudioWithStylist(stylistService),
	)

	shoppingService := service.NewShoppingService(
		service.ShoppingWithStylist(stylistService),
	)

	// Initialize handlers
	studioHandler := handlers.NewStudioHandler(studioStore, studioService, shoppingService)
	mediaHandler := handlers.NewMediaHandler(studioStore, fileStorage)

	// Setup Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// State endpoints
		api.GET("/state", studioHandler.GetState)
		api.PUT("/preferences", studioHandler.UpdatePreferences)
		api.PUT("/settings", studioHandler.UpdateSettings)
		api.PUT("/canvas", studioHandler.UpdateCanvas)

		// Chat endpoints
		api.POST("/chat", studioHandler.Chat)
		api.POST("/chat/clear", studioHandler.ClearChat)

		// Generation endpoint
		api.POST("/generate", studioHandler.Generate)

		// Upload endpoint
		api.POST("/uploads", mediaHandler.Upload)

		// Gallery endpoints
		api.GET("/gallery", studioHandler.GetGallery)
		api.POST("/gallery", studioHandler.SaveDesign)
		api.DELETE("/gallery/:id", studioHandler.DeleteDesign)
		api.POST("/gallery/:id/load", studioHandler.LoadDesign)
		api.POST("/gallery/:id/export", mediaHandler.ExportDesign)

		// Shopping endpoints
		api.GET("/shopping/catalog", studioHandler.GetCatalogMatches)
		api.GET("/produce", studioHandler.GetProduceLink)
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func initStore() (*store.Store, error) {
	dataDir := os.Getenv("STUDIO_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	persister, err := store.NewFilePersister(dataDir)
	if err != nil {
		return nil, err
	}

	st := store.New(store.WithPersister(persister))
	st.Hydrate()
	log.Println("Studio state hydrated")
	return st, nil
}

func initGemini() (*genai.Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	log.Println("Gemini client initialized")
	return client, nil
}
