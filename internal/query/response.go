// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package query

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/logscope/internal/models"
	"github.com/tomtom215/logscope/internal/pipeline"
	"github.com/tomtom215/logscope/internal/snapshot"
	"github.com/tomtom215/logscope/internal/source"
	"github.com/tomtom215/logscope/internal/validation"
)

// Error codes used in APIError.Code.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeDataFormat        = "DATA_FORMAT_ERROR"
	CodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	CodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	CodeTimeout           = "TIMEOUT"
	CodeInternal          = "INTERNAL_ERROR"
)

// Response wraps a successful result in the shared envelope. An empty
// result carries models.EmptyResultMessage as its warning.
func (r *Result) Response() *models.APIResponse {
	resp := &models.APIResponse{
		Status: "success",
		Data:   r.Data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: r.Duration.Milliseconds(),
			Cached:      r.Cached,
			RunID:       r.RunID,
		},
	}
	if r.Empty {
		resp.Warning = models.EmptyResultMessage
	}
	return resp
}

// ErrorResponse maps err to an HTTP status and an error envelope. Internal
// details are only exposed for caller errors and malformed data.
func ErrorResponse(err error) (int, *models.APIResponse) {
	status, apiErr := classify(err)
	return status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    apiErr,
	}
}

func classify(err error) (int, *models.APIError) {
	var verr *validation.RequestValidationError
	var dfe *pipeline.DataFormatError

	switch {
	case errors.As(err, &verr):
		ae := verr.ToAPIError()
		return http.StatusBadRequest, &models.APIError{Code: ae.Code, Message: ae.Message, Details: ae.Details}

	case errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest, &models.APIError{Code: CodeValidation, Message: err.Error()}

	case errors.As(err, &dfe):
		return http.StatusBadGateway, &models.APIError{
			Code:    CodeDataFormat,
			Message: "The access-log snapshot contains a malformed record",
			Details: map[string]interface{}{
				"index": dfe.Index,
				"id":    dfe.ID,
				"field": dfe.Field,
				"error": dfe.Error(),
			},
		}

	case errors.Is(err, snapshot.ErrRefreshThrottled):
		return http.StatusTooManyRequests, &models.APIError{Code: CodeRateLimited, Message: "Snapshot refresh is rate limited; try again shortly"}

	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable, &models.APIError{Code: CodeSourceUnavailable, Message: "The log store is temporarily unavailable (circuit open)"}

	case errors.Is(err, source.ErrUnavailable):
		return http.StatusServiceUnavailable, &models.APIError{Code: CodeSourceUnavailable, Message: "The log store is unavailable and no persisted snapshot exists"}

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, &models.APIError{Code: CodeTimeout, Message: "The query timed out"}
	}
	return http.StatusInternalServerError, &models.APIError{Code: CodeInternal, Message: "Internal server error"}
}
