package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"emperror.dev/errors"
	"github.com/google/go-github/v57/github"
)

// TransportError is returned for any request that did not complete
// successfully: network failures, authentication, rate limiting, 4xx and 5xx.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the tracker answered 404.
func (e *TransportError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// GraphqlError is returned when a GraphQL request succeeded at the transport
// level but the response carried an errors payload.
type GraphqlError struct {
	Op      string
	Message string
}

func (e *GraphqlError) Error() string {
	return fmt.Sprintf("%s: graphql: %s", e.Op, e.Message)
}

// IsNotFound reports whether err is a TransportError for a 404 response.
func IsNotFound(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr) && transportErr.NotFound()
}

// wrapRESTError converts a go-github error into a TransportError carrying the
// response context.
func wrapRESTError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	transportErr := &TransportError{Op: op, Err: err}

	var (
		errResp   *github.ErrorResponse
		rateErr   *github.RateLimitError
		abuseErr  *github.AbuseRateLimitError
		urlErr    *url.Error
		statusErr *TransportError
	)
	switch {
	case errors.As(err, &rateErr):
		transportErr.StatusCode = statusOf(rateErr.Response)
		transportErr.Message = rateErr.Message
	case errors.As(err, &abuseErr):
		transportErr.StatusCode = statusOf(abuseErr.Response)
		transportErr.Message = abuseErr.Message
	case errors.As(err, &errResp):
		transportErr.StatusCode = statusOf(errResp.Response)
		transportErr.Message = errResp.Message
	case errors.As(err, &statusErr):
		transportErr.StatusCode = statusErr.StatusCode
		transportErr.Message = statusErr.Message
	case errors.As(err, &urlErr):
		transportErr.Message = urlErr.Err.Error()
	default:
		transportErr.Message = err.Error()
	}

	return errors.WithDetails(transportErr, "op", op, "status", transportErr.StatusCode)
}

// wrapGraphQLError classifies an error returned by githubv4. Failures raised
// by the HTTP transport become TransportErrors; everything else is an error
// payload in an otherwise successful response.
func wrapGraphQLError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var statusErr *TransportError
	if errors.As(err, &statusErr) {
		return errors.WithDetails(&TransportError{
			Op:         op,
			StatusCode: statusErr.StatusCode,
			Message:    statusErr.Message,
			Err:        err,
		}, "op", op, "status", statusErr.StatusCode)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return errors.WithDetails(&TransportError{Op: op, Message: urlErr.Err.Error(), Err: err}, "op", op)
	}

	return errors.WithDetails(&GraphqlError{Op: op, Message: err.Error()}, "op", op)
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
