package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paperly-gateway/middleware/monitoring"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondWithError escreve o envelope de erro padrão e loga a causa. A causa
// nunca vai para o cliente.
func (s *Server) RespondWithError(c *gin.Context, code int, message string, err error) {
	reqID := monitoring.RequestIDFromContext(c.Request.Context())
	fields := []zap.Field{
		zap.String("request_id", reqID),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.Int("status", code),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if code >= 500 {
		s.log.Error(message, fields...)
	} else {
		s.log.Debug(message, fields...)
	}
	c.AbortWithStatusJSON(code, errorBody{Error: errorDetail{Code: code, Message: message, RequestID: reqID}})
}
