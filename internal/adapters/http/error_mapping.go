package httpadapter

import (
	"net/http"

	"github.com/mvporto/fii-rag/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrNotReady):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrEmbedding),
		domain.IsKind(err, domain.ErrGeneration),
		domain.IsKind(err, domain.ErrEvaluation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
