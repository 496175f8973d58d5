package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/smartnote/internal/pkg/response"
)

type AIHandler struct {
	ai     aiAPI
	enrich enrichAPI
}

func NewAIHandler(ai aiAPI, enrich enrichAPI) *AIHandler {
	return &AIHandler{ai: ai, enrich: enrich}
}

type aiSummaryRequest struct {
	Text string `json:"text"`
}

type aiTagsRequest struct {
	Text    string `json:"text"`
	MaxTags int    `json:"max_tags"`
}

func (h *AIHandler) Summary(c *gin.Context) {
	var req aiSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	summary, err := h.ai.Summarize(c.Request.Context(), req.Text)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"summary": summary})
}

func (h *AIHandler) Tags(c *gin.Context) {
	var req aiTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	tags, err := h.ai.ExtractTags(c.Request.Context(), req.Text, req.MaxTags)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"tags": tags})
}

func (h *AIHandler) Related(c *gin.Context) {
	items, err := h.ai.RelatedNotes(c.Request.Context(), getUserID(c), c.Param("id"), queryInt(c, "limit"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

func (h *AIHandler) Enrich(c *gin.Context) {
	note, err := h.enrich.Enrich(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, note)
}

func (h *AIHandler) SemanticSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		invalidRequest(c, "q required")
		return
	}
	items, err := h.ai.SemanticSearch(c.Request.Context(), getUserID(c), query, queryInt(c, "limit"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}
