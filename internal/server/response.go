package server

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/quillform/quillform/internal/auth/session"
	responsedomain "github.com/quillform/quillform/internal/response/domain"
)

// answerSessionID reads the respondent cookie; nil when absent.
func (s *Server) answerSessionID(c *gin.Context) (*snowflake.ID, error) {
	raw, ok := s.sessions.Read(c, session.ResponseCookie)
	if !ok {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(raw)
	if err != nil {
		return nil, responsedomain.ErrSessionNotFound
	}
	return &parsed, nil
}

type respondRequest struct {
	FieldID string  `json:"field_id" binding:"required"`
	Value   *string `json:"value"`
}

func (s *Server) Respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	fieldID, err := snowflake.ParseString(req.FieldID)
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: bad field_id", ErrInvalidRequest))
		return
	}

	sessionID, err := s.answerSessionID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	answer, sid, err := s.responsesvc.Respond(c.Request.Context(), sessionID, responsedomain.RespondRequest{
		FieldID: fieldID,
		Value:   req.Value,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.SetSession(c, session.ResponseCookie, sid.String())
	c.JSON(http.StatusOK, answer)
}

type saveResponsesRequest struct {
	FormID  string             `json:"form_id" binding:"required"`
	Answers map[string]*string `json:"answers" binding:"required"`
}

func (s *Server) SaveResponses(c *gin.Context) {
	var req saveResponsesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	formID, err := snowflake.ParseString(req.FormID)
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: bad form_id", ErrInvalidRequest))
		return
	}

	answers := make(map[snowflake.ID]*string, len(req.Answers))
	for rawID, value := range req.Answers {
		fieldID, err := snowflake.ParseString(rawID)
		if err != nil {
			AbortWithError(c, fmt.Errorf("%w: bad field id %q", ErrInvalidRequest, rawID))
			return
		}
		answers[fieldID] = value
	}

	sessionID, err := s.answerSessionID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	saved, err := s.responsesvc.Save(c.Request.Context(), sessionID, responsedomain.SaveRequest{
		FormID:  formID,
		Answers: answers,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.SetSession(c, session.ResponseCookie, saved.ID.String())
	c.JSON(http.StatusOK, saved)
}

func (s *Server) SubmitResponses(c *gin.Context) {
	sessionID, err := s.answerSessionID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if sessionID == nil {
		AbortWithError(c, responsedomain.ErrSessionNotFound)
		return
	}

	if err := s.responsesvc.Submit(c.Request.Context(), *sessionID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c, session.ResponseCookie)
	c.JSON(http.StatusOK, gin.H{"detail": "Responses submitted."})
}

func (s *Server) GetAnswerSession(c *gin.Context) {
	sessionID, err := s.answerSessionID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if sessionID == nil {
		AbortWithError(c, responsedomain.ErrSessionNotFound)
		return
	}

	answerSession, err := s.responsesvc.Session(c.Request.Context(), *sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, answerSession)
}

type editResponseRequest struct {
	Value string `json:"value" binding:"required"`
}

func (s *Server) EditResponse(c *gin.Context) {
	answerID, err := idParam(c, "answer_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req editResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	sessionID, err := s.answerSessionID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if sessionID == nil {
		AbortWithError(c, responsedomain.ErrSessionNotFound)
		return
	}

	if err := s.responsesvc.EditAnswer(c.Request.Context(), *sessionID, answerID, req.Value); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Answer updated."})
}

func (s *Server) DeleteResponse(c *gin.Context) {
	answerID, err := idParam(c, "answer_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sessionID, err := s.answerSessionID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.responsesvc.DeleteAnswer(c.Request.Context(), currentUser(c), sessionID, answerID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Answer deleted."})
}

func (s *Server) ListResponses(c *gin.Context) {
	formID, err := idParam(c, "form_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	page, err := pageQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sessions, err := s.responsesvc.ListResponses(c.Request.Context(), currentUser(c), formID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (s *Server) ExportResponses(c *gin.Context) {
	formID, err := idParam(c, "form_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var buf bytes.Buffer
	filename, err := s.responsesvc.ExportCSV(c.Request.Context(), currentUser(c), formID, &buf)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
