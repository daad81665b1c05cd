package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/anuvad/internal/tutor"
)

const ctxLearnerKey = "learnerId"

var anyMethod = []string{http.MethodGet, http.MethodPost}

// Every endpoint accepts GET with query parameters and POST with a form or
// JSON body.
func (s *Server) registerRoutes() {
	s.engine.Match(anyMethod, "/", s.handleAlive)
	s.engine.Match(anyMethod, "/healthz", s.handleAlive)
	s.engine.Match(anyMethod, "/generate-sentence", s.handleGenerate)
	s.engine.Match(anyMethod, "/evaluate-translation", s.handleEvaluate)
	s.engine.Match(anyMethod, "/free-chat", s.handleChat)
	s.engine.Match(anyMethod, "/progress-report", s.handleProgress)
	s.engine.Match(anyMethod, "/translate", s.handleCheck)
}

func (s *Server) handleAlive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "version": s.opts.Version})
}

type generateRequest struct {
	LearnerID string      `form:"learnerId" json:"learnerId"`
	Level     json.Number `form:"level" json:"level"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if !s.bind(c, &req) {
		return
	}
	c.Set(ctxLearnerKey, req.LearnerID)

	level, err := parseLevel(req.Level)
	if err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.tutor.Generate(c.Request.Context(), tutor.GenerateInput{LearnerID: req.LearnerID, Level: level})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// parseLevel reports a missing level before a malformed one so the
// message names the field either way.
func parseLevel(n json.Number) (int, error) {
	raw := strings.TrimSpace(string(n))
	if raw == "" {
		return 0, &tutor.ValidationError{Field: "level", Message: "is required"}
	}
	level, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &tutor.ValidationError{Field: "level", Message: "must be an integer between 1 and 100"}
	}
	return level, nil
}

type evaluateRequest struct {
	TrackingCode string `form:"trackingCode" json:"trackingCode"`
	AttemptText  string `form:"attemptText" json:"attemptText"`
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req evaluateRequest
	if !s.bind(c, &req) {
		return
	}

	res, err := s.tutor.Evaluate(c.Request.Context(), tutor.EvaluateInput{TrackingCode: req.TrackingCode, Attempt: req.AttemptText})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Set(ctxLearnerKey, res.LearnerID)
	c.JSON(http.StatusOK, res)
}

type chatRequest struct {
	LearnerID string `form:"learnerId" json:"learnerId"`
	Question  string `form:"question" json:"question"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if !s.bind(c, &req) {
		return
	}
	c.Set(ctxLearnerKey, req.LearnerID)

	res, err := s.tutor.Chat(c.Request.Context(), tutor.ChatInput{LearnerID: req.LearnerID, Question: req.Question})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type progressRequest struct {
	LearnerID string `form:"learnerId" json:"learnerId"`
}

func (s *Server) handleProgress(c *gin.Context) {
	var req progressRequest
	if !s.bind(c, &req) {
		return
	}
	c.Set(ctxLearnerKey, req.LearnerID)

	report, err := s.tutor.Progress(c.Request.Context(), req.LearnerID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type checkRequest struct {
	Bengali string `form:"ban" json:"ban"`
	English string `form:"eng" json:"eng"`
}

func (s *Server) handleCheck(c *gin.Context) {
	var req checkRequest
	if !s.bind(c, &req) {
		return
	}

	res, err := s.tutor.Check(c.Request.Context(), tutor.CheckInput{Bengali: req.Bengali, English: req.English})
	if err != nil {
		if tutor.KindOf(err) == tutor.KindEvaluatorFormat {
			s.writeError(c, http.StatusInternalServerError, errorBody{
				Kind:    string(tutor.KindEvaluatorFormat),
				Message: "Invalid response format from AI model",
				Raw:     rawOf(err),
			})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// bind reads query parameters on GET and the form or JSON body on POST.
// A body that cannot be decoded is a validation failure.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if c.Request.Method == http.MethodPost && c.Request.ContentLength == 0 {
		// Parameters may still arrive in the query string.
		if err := c.ShouldBindQuery(dst); err != nil {
			s.fail(c, &tutor.ValidationError{Field: "query", Message: err.Error()})
			return false
		}
		return true
	}
	if err := c.ShouldBind(dst); err != nil {
		s.fail(c, &tutor.ValidationError{Field: "body", Message: err.Error()})
		return false
	}
	return true
}
