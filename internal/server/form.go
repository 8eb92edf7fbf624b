package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	formdomain "github.com/quillform/quillform/internal/form/domain"
	"github.com/quillform/quillform/internal/translation"
)

type createFormRequest struct {
	Label            string     `json:"label" binding:"required"`
	Description      *string    `json:"description"`
	SubmissionsLimit *int       `json:"submissions_limit"`
	Deadline         *time.Time `json:"deadline"`
}

func (s *Server) CreateForm(c *gin.Context) {
	var req createFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	form, err := s.formsvc.Create(c.Request.Context(), currentUser(c), formdomain.CreateFormRequest{
		Label:            req.Label,
		Description:      req.Description,
		SubmissionsLimit: req.SubmissionsLimit,
		Deadline:         req.Deadline,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, form)
}

func (s *Server) ListForms(c *gin.Context) {
	page, err := pageQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	forms, err := s.formsvc.List(c.Request.Context(), currentUser(c), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, forms)
}

func (s *Server) ListOwnForms(c *gin.Context) {
	page, err := pageQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	forms, err := s.formsvc.ListOwn(c.Request.Context(), currentUser(c), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, forms)
}

func (s *Server) GetForm(c *gin.Context) {
	formID, err := idParam(c, "form_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	form, err := s.formsvc.Get(c.Request.Context(), currentUser(c), formID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

type updateFormRequest struct {
	Label            *string    `json:"label"`
	Description      *string    `json:"description"`
	SubmissionsLimit *int       `json:"submissions_limit"`
	Deadline         *time.Time `json:"deadline"`
}

func (s *Server) UpdateForm(c *gin.Context) {
	formID, err := idParam(c, "form_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	form, err := s.formsvc.Update(c.Request.Context(), currentUser(c), formID, formdomain.UpdateFormRequest{
		Label:            req.Label,
		Description:      req.Description,
		SubmissionsLimit: req.SubmissionsLimit,
		Deadline:         req.Deadline,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

func (s *Server) DeleteForm(c *gin.Context) {
	formID, err := idParam(c, "form_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.formsvc.Delete(c.Request.Context(), currentUser(c), formID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Form deleted."})
}

func (s *Server) CloseForm(c *gin.Context) {
	s.setFormOpen(c, false)
}

func (s *Server) OpenForm(c *gin.Context) {
	s.setFormOpen(c, true)
}

func (s *Server) setFormOpen(c *gin.Context, open bool) {
	formID, err := idParam(c, "form_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.formsvc.SetOpen(c.Request.Context(), currentUser(c), formID, open); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"open": open})
}

type addFieldRequest struct {
	Label           string  `json:"label" binding:"required"`
	Description     string  `json:"description"`
	FieldType       string  `json:"field_type" binding:"required"`
	Required        *bool   `json:"required"`
	PossibleAnswers *string `json:"possible_answers"`
	NumberBounds    *string `json:"number_bounds"`
	TextBounds      *string `json:"text_bounds"`
}

func (s *Server) AddField(c *gin.Context) {
	formID, err := idParam(c, "form_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req addFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	required := true
	if req.Required != nil {
		required = *req.Required
	}

	field, err := s.formsvc.AddField(c.Request.Context(), currentUser(c), formdomain.AddFieldRequest{
		FormID:          formID,
		Label:           req.Label,
		Description:     req.Description,
		FieldType:       formdomain.FieldType(req.FieldType),
		Required:        required,
		PossibleAnswers: req.PossibleAnswers,
		NumberBounds:    req.NumberBounds,
		TextBounds:      req.TextBounds,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, field)
}

func (s *Server) ListFields(c *gin.Context) {
	formID, err := idParam(c, "form_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	fields, err := s.formsvc.Fields(c.Request.Context(), currentUser(c), formID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, fields)
}

type updateFieldRequest struct {
	Label           *string `json:"label"`
	Description     *string `json:"description"`
	Position        *int    `json:"position"`
	FieldType       *string `json:"field_type"`
	Required        *bool   `json:"required"`
	PossibleAnswers *string `json:"possible_answers"`
	NumberBounds    *string `json:"number_bounds"`
	TextBounds      *string `json:"text_bounds"`
}

func (s *Server) UpdateField(c *gin.Context) {
	fieldID, err := idParam(c, "field_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	var fieldType *formdomain.FieldType
	if req.FieldType != nil {
		ft := formdomain.FieldType(*req.FieldType)
		fieldType = &ft
	}

	field, err := s.formsvc.UpdateField(c.Request.Context(), currentUser(c), fieldID, formdomain.UpdateFieldRequest{
		Label:           req.Label,
		Description:     req.Description,
		Position:        req.Position,
		FieldType:       fieldType,
		Required:        req.Required,
		PossibleAnswers: req.PossibleAnswers,
		NumberBounds:    req.NumberBounds,
		TextBounds:      req.TextBounds,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, field)
}

func (s *Server) DeleteField(c *gin.Context) {
	fieldID, err := idParam(c, "field_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.formsvc.DeleteField(c.Request.Context(), currentUser(c), fieldID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Field deleted."})
}

type translateFormRequest struct {
	Language string `json:"language" binding:"required"`
}

func (s *Server) TranslateForm(c *gin.Context) {
	formID, err := idParam(c, "form_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req translateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	language := translation.Language(req.Language)
	if !language.Valid() {
		AbortWithError(c, fmt.Errorf("%w: unsupported language", ErrInvalidRequest))
		return
	}

	translated, err := s.translationsvc.TranslateForm(c.Request.Context(), formID, language)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, translated)
}
