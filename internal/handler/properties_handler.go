package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/smartnote/internal/pkg/response"
)

// Properties is the public feature set a client adapts its UI to.
type Properties struct {
	EnableUserRegister bool `json:"enable_user_register"`
	EnableSummary      bool `json:"enable_summary"`
	EnableTags         bool `json:"enable_tags"`
	EnableSemantic     bool `json:"enable_semantic"`
}

type PropertiesHandler struct {
	properties Properties
}

func NewPropertiesHandler(properties Properties) *PropertiesHandler {
	return &PropertiesHandler{properties: properties}
}

func (h *PropertiesHandler) Get(c *gin.Context) {
	response.Success(c, gin.H{"properties": h.properties})
}
