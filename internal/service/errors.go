package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/caption-pipeline/internal/provider"
	"github.com/MimeLyc/caption-pipeline/pkg/log"
)

type ErrorType int

const (
	ErrResolverSoftFailure ErrorType = iota
	ErrProvider
	ErrNoTracks
	ErrDownload
	ErrTranslation
	ErrPersistence
	ErrValidation
	ErrUnknown
)

// PipelineError is the typed error behind every failed Result.
type PipelineError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *PipelineError {
	return &PipelineError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *PipelineError {
	return &PipelineError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *PipelineError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

func (e *PipelineError) WithContext(key string, value any) *PipelineError {
	e.Context[key] = value
	return e
}

// UserMessage is the text reported in Result.Error.
func (e *PipelineError) UserMessage() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (t ErrorType) String() string {
	switch t {
	case ErrResolverSoftFailure:
		return "ResolverSoftFailure"
	case ErrProvider:
		return "Provider"
	case ErrNoTracks:
		return "NoTracks"
	case ErrDownload:
		return "Download"
	case ErrTranslation:
		return "Translation"
	case ErrPersistence:
		return "Persistence"
	case ErrValidation:
		return "Validation"
	default:
		return "Unknown"
	}
}

// GetAdvice returns a hint for the operator about how to fix err.
func GetAdvice(err *PipelineError) string {
	switch err.Type {
	case ErrProvider:
		return "Check SUBTITLE_API_URL and that the subtitle service is reachable"
	case ErrNoTracks:
		return "The subtitle service has no track for this title; check the media id and season/episode"
	case ErrDownload:
		return "The track URL could not be fetched; the provider may be rate limiting"
	case ErrTranslation:
		return "Check the translation backend settings (TRANSLATE_BACKEND, TRANSLATE_API_URL or LLM_*)"
	case ErrPersistence:
		return "Check that CACHE_DIR exists and is writable"
	case ErrValidation:
		return "Movies take no season/episode; series need both, with episode >= 1"
	default:
		return "Review the error details and the configuration"
	}
}

// HandleError logs err with advice and reports whether it was a PipelineError.
func HandleError(err error) bool {
	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		log.Error("Unknown Error: %v", err)
		return false
	}
	log.Error("Error Detail: %v\n advice: %s", pErr, GetAdvice(pErr))
	return true
}

func IsErrorType(err error, errorType ErrorType) bool {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return pErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *PipelineError {
	return NewErrorWithCause(errorType, message, err)
}

// classifyFetchError maps a provider error onto the taxonomy.
func classifyFetchError(err error) ErrorType {
	switch {
	case errors.Is(err, provider.ErrNoTracks):
		return ErrNoTracks
	case errors.Is(err, provider.ErrDownload):
		return ErrDownload
	case errors.Is(err, provider.ErrProvider):
		return ErrProvider
	default:
		return ErrUnknown
	}
}

// SafeExecute runs fn and turns a panic into an ErrUnknown error.
func SafeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrUnknown, fmt.Sprintf("runtime error: %v", r))
		}
	}()

	return fn()
}
