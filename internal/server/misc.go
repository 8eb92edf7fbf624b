package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quillform/quillform/internal/translation"
)

const maxTranslateInput = 1000

type translateTextRequest struct {
	Input    string `json:"input" binding:"required"`
	Language string `json:"language" binding:"required"`
}

func (s *Server) TranslateText(c *gin.Context) {
	var req translateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	if len(req.Input) > maxTranslateInput {
		AbortWithError(c, fmt.Errorf("%w: input too long", ErrInvalidRequest))
		return
	}

	language := translation.Language(req.Language)
	if !language.Valid() {
		AbortWithError(c, fmt.Errorf("%w: unsupported language", ErrInvalidRequest))
		return
	}

	translated, err := s.translationsvc.Translate(c.Request.Context(), req.Input, language)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"translation": translated})
}
