package middleware

import (
	"net/http"

	"github.com/utafrali/coursesearch/pkg/httputil"
	"github.com/utafrali/coursesearch/pkg/logger"
)

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	httputil.WriteJSON(w, status, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:      code,
			Message:   message,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}
