package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/anuvad/internal/tutor"
)

// errorBody is the payload of every failed request, wrapped as
// {"error": {...}}.
type errorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Raw       string `json:"raw,omitempty"`
	Retryable bool   `json:"retryable"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch tutor.KindOf(err) {
	case tutor.KindValidation:
		return http.StatusBadRequest
	case tutor.KindNotFound:
		var nf *tutor.NotFoundError
		if errors.As(err, &nf) && nf.Resource == tutor.ResourceTrackingCode {
			return http.StatusBadRequest
		}
		return http.StatusNotFound
	case tutor.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	body := errorBody{
		Kind:      string(tutor.KindOf(err)),
		Message:   err.Error(),
		Retryable: tutor.Retryable(err),
	}

	var ve *tutor.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	body.Raw = rawOf(err)

	if body.Kind == string(tutor.KindInternal) {
		s.logger.Error("http: internal error", "path", c.FullPath(), "error", err)
		body.Message = "internal error"
	}
	s.writeError(c, statusFor(err), body)
}

func (s *Server) writeError(c *gin.Context, status int, body errorBody) {
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func rawOf(err error) string {
	var fe *tutor.EvaluatorFormatError
	if errors.As(err, &fe) {
		return fe.Raw
	}
	return ""
}
