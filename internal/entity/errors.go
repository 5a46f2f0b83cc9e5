package entity

import (
	"errors"
	"fmt"
)

// FailureKind classifies a terminal pipeline failure.
type FailureKind string

// Failure kinds surfaced to callers. ConfigurationError only occurs at
// startup; every other kind is a per-request terminal state.
const (
	FailureExtraction          FailureKind = "extraction_failure"
	FailureInvalidTicker       FailureKind = "invalid_ticker"
	FailureProviderUnavailable FailureKind = "provider_unavailable"
	FailureDataUnavailable     FailureKind = "data_unavailable"
	FailureModelMalformed      FailureKind = "model_response_malformed"
	FailureUnsupportedImage    FailureKind = "unsupported_image"
	FailureConfiguration       FailureKind = "configuration_error"
)

// Sentinel errors returned by repositories. The orchestrator owns the
// retry and degradation policy around them.
var (
	ErrTickerNotFound           = errors.New("ticker symbol not found")
	ErrProviderUnavailable      = errors.New("provider unavailable")
	ErrDataUnavailable          = errors.New("price data unavailable")
	ErrNewsUnavailable          = errors.New("news feed unavailable")
	ErrModelResponseMalformed   = errors.New("model response malformed")
	ErrUnsupportedImage         = errors.New("unsupported image")
)

// PipelineError is the tagged failure result of a run. It always carries a
// kind so callers can map it to a distinct, actionable message.
type PipelineError struct {
	Kind FailureKind
	Err  error
}

// NewPipelineError creates a PipelineError wrapping the given cause.
func NewPipelineError(kind FailureKind, err error) *PipelineError {
	return &PipelineError{Kind: kind, Err: err}
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// UserMessage returns the actionable, user-facing message for the failure
// kind. Known kinds never collapse into a generic message.
func (e *PipelineError) UserMessage() string {
	switch e.Kind {
	case FailureExtraction:
		return "No stock ticker could be identified in your question. Please rephrase and include a symbol such as AAPL or TSLA."
	case FailureInvalidTicker:
		return "The ticker symbol was not recognized. Please check the symbol and try again."
	case FailureProviderUnavailable:
		return "The market data service is temporarily unavailable. Please retry in a few minutes."
	case FailureDataUnavailable:
		return "Price data for this ticker could not be retrieved, so no analysis is possible right now."
	case FailureModelMalformed:
		return "The analysis service returned an unusable response. Please try again."
	case FailureUnsupportedImage:
		return "The uploaded chart image is not a supported format or exceeds the size limit."
	case FailureConfiguration:
		return "The service is misconfigured. Contact the operator."
	default:
		return "The analysis could not be completed."
	}
}
