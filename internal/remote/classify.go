// Package remote adapts the managed media service clients to the stores and
// lookups the pipeline stages depend on.
//
// Every adapter reports failures as *reconcile.Conflict, classified from the
// structured error code and HTTP status of the response. Error message text
// is never inspected.
package remote

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"fastchannels/internal/reconcile"
)

var (
	throttleCodes = map[string]bool{
		"ThrottlingException":      true,
		"Throttling":               true,
		"TooManyRequestsException": true,
		"RequestLimitExceeded":     true,
		"SlowDown":                 true,
	}
	notFoundCodes = map[string]bool{
		"NotFoundException":         true,
		"ResourceNotFoundException": true,
		"NoSuchKey":                 true,
	}
	existsCodes = map[string]bool{
		"ConflictException":              true,
		"ResourceAlreadyExistsException": true,
		"AlreadyExistsException":         true,
	}
	transientCodes = map[string]bool{
		"InternalServerErrorException": true,
		"ServiceUnavailableException":  true,
		"InternalFailure":              true,
	}
)

// Classify converts an SDK error into a conflict for resource. Context
// cancellation is returned unchanged.
func Classify(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return reconcile.NewConflict(kindOf(err), resource, message(err), err)
}

func kindOf(err error) reconcile.ConflictKind {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case throttleCodes[code], transientCodes[code]:
			return reconcile.KindThrottled
		case notFoundCodes[code]:
			return reconcile.KindNotFound
		case existsCodes[code]:
			return reconcile.KindAlreadyExists
		}
	}
	switch status(err) {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return reconcile.KindThrottled
	case http.StatusNotFound:
		return reconcile.KindNotFound
	case http.StatusConflict:
		return reconcile.KindAlreadyExists
	}
	return reconcile.KindOther
}

// errorCode returns the service error code carried by err, if any.
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func status(err error) int {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

func message(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorMessage() != "" {
		return apiErr.ErrorMessage()
	}
	return err.Error()
}

// probeCreateFailure resolves ambiguous create rejections. Some services
// answer a duplicate create with a generic validation code; when the
// resource turns out to exist the failure is reported as AlreadyExists.
func probeCreateFailure(ctx context.Context, err error, resource string, ambiguous string, exists func(context.Context) (bool, error)) error {
	classified := Classify(err, resource)
	if errorCode(err) != ambiguous || reconcile.KindOf(classified) != reconcile.KindOther {
		return classified
	}
	found, probeErr := exists(ctx)
	if probeErr != nil || !found {
		return classified
	}
	return reconcile.NewConflict(reconcile.KindAlreadyExists, resource, message(err), err)
}
