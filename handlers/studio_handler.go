package handlers

import (
	"errors"
	"net/http"

	"vogue-studio-backend/models"
	"vogue-studio-backend/service"
	"vogue-studio-backend/store"

	"github.com/gin-gonic/gin"
)

// produceURL is the external product-creation page offered as a manual
// "produce this design physically" action. There is no API integration,
// it is purely a link.
const produceURL = "https://printify.com/app/products"

// StudioHandler handles HTTP requests for the studio panels.
type StudioHandler struct {
	store    *store.Store
	studio   *service.StudioService
	shopping *service.ShoppingService
}

// NewStudioHandler creates a new studio handler.
func NewStudioHandler(st *store.Store, studio *service.StudioService, shopping *service.ShoppingService) *StudioHandler {
	return &StudioHandler{
		store:    st,
		studio:   studio,
		shopping: shopping,
	}
}

// GetState handles GET /api/state
func (h *StudioHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.Snapshot(),
	})
}

// ChatRequest represents the request body for a chat exchange. A
// message may be omitted when an image is attached.
type ChatRequest struct {
	Message       string `json:"message"`
	AttachedImage string `json:"attachedImage"`
}

// Chat handles POST /api/chat
func (h *StudioHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	if req.Message == "" && req.AttachedImage == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Message or attached image is required",
			},
		})
		return
	}

	result, err := h.studio.Chat(c.Request.Context(), service.ChatRequest{
		Message:       req.Message,
		AttachedImage: req.AttachedImage,
	})
	if err != nil {
		if errors.Is(err, service.ErrChatInProgress) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CHAT_IN_PROGRESS",
					"message": "A chat exchange is already in progress",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CHAT_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// ClearChat handles POST /api/chat/clear
func (h *StudioHandler) ClearChat(c *gin.Context) {
	h.store.ClearChat()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"cleared": true},
	})
}

// Generate handles POST /api/generate
func (h *StudioHandler) Generate(c *gin.Context) {
	result, err := h.studio.Generate(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGenerationInProgress):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "GENERATION_IN_PROGRESS",
					"message": "A generation is already in progress",
				},
			})
		case errors.Is(err, service.ErrReferenceImageMissing):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "REFERENCE_IMAGE_MISSING",
					"message": "Reference model is enabled but no photo is uploaded",
				},
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "GENERATION_FAILED",
					"message": err.Error(),
				},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// UpdatePreferences handles PUT /api/preferences
func (h *StudioHandler) UpdatePreferences(c *gin.Context) {
	var patch models.PreferencesPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	if patch.BudgetRange != nil && !patch.BudgetRange.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_BUDGET_RANGE",
				"message": "Budget minimum must not exceed maximum",
			},
		})
		return
	}

	h.store.SetPreferences(patch)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.Snapshot().Preferences,
	})
}

// UpdateSettings handles PUT /api/settings
func (h *StudioHandler) UpdateSettings(c *gin.Context) {
	var patch models.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	for _, v := range []*int{patch.Creativity, patch.TrendAlignment, patch.Minimalism} {
		if v != nil && (*v < 0 || *v > 100) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_SETTING",
					"message": "Settings must be between 0 and 100",
				},
			})
			return
		}
	}

	h.store.SetDesignSettings(patch)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.Snapshot().DesignSettings,
	})
}

// CanvasRequest represents the request body for canvas-level toggles.
type CanvasRequest struct {
	UploadedUserImage *string `json:"uploadedUserImage"`
	SelectedColor     *string `json:"selectedColor"`
	UseReferenceModel *bool   `json:"useReferenceModel"`
}

// UpdateCanvas handles PUT /api/canvas
func (h *StudioHandler) UpdateCanvas(c *gin.Context) {
	var req CanvasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	if req.UploadedUserImage != nil {
		h.store.SetUploadedUserImage(*req.UploadedUserImage)
	}
	if req.SelectedColor != nil {
		h.store.SetSelectedColor(*req.SelectedColor)
	}
	if req.UseReferenceModel != nil {
		h.store.SetUseReferenceModel(*req.UseReferenceModel)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.Snapshot(),
	})
}

// GetGallery handles GET /api/gallery
func (h *StudioHandler) GetGallery(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.Snapshot().Gallery,
	})
}

// SaveDesign handles POST /api/gallery
func (h *StudioHandler) SaveDesign(c *gin.Context) {
	design, err := h.studio.SaveToGallery()
	if err != nil {
		if errors.Is(err, service.ErrNoGeneratedImage) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NO_GENERATED_IMAGE",
					"message": "Generate a design before saving it",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SAVE_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    design,
	})
}

// DeleteDesign handles DELETE /api/gallery/:id
func (h *StudioHandler) DeleteDesign(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.store.DesignByID(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Design not found",
			},
		})
		return
	}

	h.store.RemoveFromGallery(id)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"deleted": id},
	})
}

// LoadDesign handles POST /api/gallery/:id/load
func (h *StudioHandler) LoadDesign(c *gin.Context) {
	id := c.Param("id")
	design, ok := h.store.DesignByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Design not found",
			},
		})
		return
	}

	h.store.LoadDesign(design)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.store.Snapshot(),
	})
}

// GetCatalogMatches handles GET /api/shopping/catalog
func (h *StudioHandler) GetCatalogMatches(c *gin.Context) {
	state := h.store.Snapshot()
	prompt := state.RefinedPrompt
	if prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_REFINED_PROMPT",
				"message": "Refine a design prompt before searching the catalog",
			},
		})
		return
	}

	products := h.shopping.CatalogMatches(c.Request.Context(), prompt)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
	})
}

// GetProduceLink handles GET /api/produce
func (h *StudioHandler) GetProduceLink(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"url": produceURL},
	})
}
