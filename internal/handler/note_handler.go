package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/smartnote/internal/pkg/response"
	"github.com/xxxsen/smartnote/internal/service"
)

type NoteHandler struct {
	notes noteAPI
}

func NewNoteHandler(notes noteAPI) *NoteHandler {
	return &NoteHandler{notes: notes}
}

type noteRequest struct {
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Tags    *[]string `json:"tags"`
}

func (r noteRequest) input() service.NoteInput {
	input := service.NoteInput{Title: r.Title, Content: r.Content}
	if r.Tags != nil {
		input.Tags = *r.Tags
		if input.Tags == nil {
			input.Tags = []string{}
		}
	}
	return input
}

func (h *NoteHandler) Create(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		invalidRequest(c, "title required")
		return
	}
	note, err := h.notes.Create(c.Request.Context(), getUserID(c), req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, note)
}

func (h *NoteHandler) List(c *gin.Context) {
	result, err := h.notes.List(c.Request.Context(), getUserID(c), service.NoteListQuery{
		Query:  c.Query("q"),
		Tag:    c.Query("tag"),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *NoteHandler) Get(c *gin.Context) {
	note, err := h.notes.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, note)
}

func (h *NoteHandler) Update(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		invalidRequest(c, "title required")
		return
	}
	note, err := h.notes.Update(c.Request.Context(), getUserID(c), c.Param("id"), req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, note)
}

func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func (h *NoteHandler) Tags(c *gin.Context) {
	tags, err := h.notes.Tags(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, tags)
}
