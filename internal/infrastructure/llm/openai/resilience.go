package openai

import (
	"context"
	"errors"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mvporto/fii-rag/internal/core/domain"
	"github.com/mvporto/fii-rag/internal/infrastructure/resilience"
)

// classifyOracleError keeps caller-side noise (cancellations, bad requests)
// out of the circuit breaker accounting.
func classifyOracleError(err error) resilience.Outcome {
	if err == nil {
		return resilience.Outcome{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Outcome{RecordFailure: false}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return resilience.Outcome{RecordFailure: isOracleSideStatus(apiErr.HTTPStatusCode)}
	}
	return resilience.Outcome{RecordFailure: true}
}

// wrapOracleError tags the failure with its pipeline kind, and additionally
// with ErrTemporary when the transport in front of this service could
// meaningfully try again later (timeouts, rate limits, open circuit).
func wrapOracleError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := domain.WrapError(kind, operation, err)
	if isTransientOracleError(err) {
		return domain.WrapError(domain.ErrTemporary, operation, wrapped)
	}
	return wrapped
}

func isTransientOracleError(err error) bool {
	if resilience.IsCircuitOpen(err) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return isOracleSideStatus(apiErr.HTTPStatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isOracleSideStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
