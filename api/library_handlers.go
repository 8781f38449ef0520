package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"paperly-gateway/catalog"
)

type saveRequest struct {
	PaperID string   `json:"paper_id" binding:"required"`
	Tags    []string `json:"tags"`
	Notes   string   `json:"notes"`
}

type libraryResponse struct {
	Data []catalog.LibraryItem `json:"data"`
	Meta map[string]any        `json:"meta"`
}

func (s *Server) ListLibrary(c *gin.Context) {
	items, err := s.repo.ListLibrary(c.Request.Context(), identity(c).UserID)
	if err != nil {
		s.RespondWithError(c, http.StatusInternalServerError, "Failed to load library", err)
		return
	}
	if items == nil {
		items = []catalog.LibraryItem{}
	}
	c.JSON(http.StatusOK, libraryResponse{Data: items, Meta: map[string]any{"total": len(items)}})
}

func (s *Server) SaveToLibrary(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.RespondWithError(c, http.StatusBadRequest, "Invalid library item", err)
		return
	}

	item, err := s.repo.SaveToLibrary(c.Request.Context(), identity(c).UserID, strings.TrimSpace(req.PaperID), req.Tags, req.Notes)
	if errors.Is(err, catalog.ErrPaperNotFound) {
		s.RespondWithError(c, http.StatusNotFound, "Paper not found", err)
		return
	}
	if err != nil {
		s.RespondWithError(c, http.StatusInternalServerError, "Failed to save paper", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) RemoveFromLibrary(c *gin.Context) {
	paperID := strings.Trim(c.Param("paper_id"), "/")
	if paperID == "" {
		s.RespondWithError(c, http.StatusBadRequest, "paper_id is required", nil)
		return
	}

	err := s.repo.RemoveFromLibrary(c.Request.Context(), identity(c).UserID, paperID)
	if errors.Is(err, catalog.ErrLibraryItemNotFound) {
		s.RespondWithError(c, http.StatusNotFound, "Paper not in library", err)
		return
	}
	if err != nil {
		s.RespondWithError(c, http.StatusInternalServerError, "Failed to remove paper", err)
		return
	}
	c.Status(http.StatusNoContent)
}
