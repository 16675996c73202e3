package api

import (
	"bitwise74/campus-finder/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type ErrKind int

const (
	KindValidation ErrKind = iota
	KindAuthentication
	KindUnverified
	KindAuthorization
	KindNotFound
	KindTooLarge
	KindRateLimited
	KindUnavailable
	KindInternal
)

func (k ErrKind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindUnverified, KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

const internalError = "Internal server error"

// Result is the envelope every JSON response goes out in. A successful
// result carries a message and payload fields, a failed one an error kind
// and message. Extra fields are merged into the top level
type Result struct {
	ok      bool
	kind    ErrKind
	message string
	fields  gin.H
}

func Ok(message string, fields gin.H) Result {
	return Result{ok: true, message: message, fields: fields}
}

func Err(kind ErrKind, message string) Result {
	return Result{kind: kind, message: message}
}

// With adds top level fields to the result
func (r Result) With(fields gin.H) Result {
	if r.fields == nil {
		r.fields = gin.H{}
	}

	for k, v := range fields {
		r.fields[k] = v
	}

	return r
}

func (r Result) Status() int {
	if r.ok {
		return http.StatusOK
	}

	return r.kind.Status()
}

func (r Result) body(requestID string) gin.H {
	body := gin.H{
		"success":   r.ok,
		"requestID": requestID,
	}

	for k, v := range r.fields {
		body[k] = v
	}

	switch {
	case !r.ok:
		body["error"] = r.message
	case r.message != "":
		body["message"] = r.message
	}

	return body
}

// Send writes the result and stops the handler chain when it's a failure
func (r Result) Send(c *gin.Context) {
	requestID := c.GetString("requestID")

	if r.ok {
		c.JSON(http.StatusOK, r.body(requestID))
		return
	}

	c.AbortWithStatusJSON(r.Status(), r.body(requestID))
}

// Errors that map straight to a kind, their text goes to the user
var serviceErrors = []struct {
	err  error
	kind ErrKind
}{
	{service.ErrUserNotFound, KindNotFound},
	{service.ErrDuplicateEmail, KindValidation},
	{service.ErrInvalidCredentials, KindAuthentication},
	{service.ErrNotVerified, KindUnverified},
	{service.ErrAlreadyVerified, KindValidation},
	{service.ErrInvalidCode, KindValidation},
	{service.ErrCodeExpired, KindValidation},
	{service.ErrInvalidResetCode, KindValidation},
	{service.ErrResetCodeExpired, KindValidation},
	{service.ErrInvalidResetToken, KindValidation},
	{service.ErrResetTokenExpired, KindValidation},
	{service.ErrTooManyAttempts, KindRateLimited},
	{service.ErrItemNotFound, KindNotFound},
	{service.ErrNotItemOwner, KindAuthorization},
	{service.ErrStorageDisabled, KindUnavailable},
}

// fromError turns a service error into a result. Anything unknown is
// logged and hidden behind a generic message
func fromError(c *gin.Context, err error, msg string) Result {
	for _, se := range serviceErrors {
		if errors.Is(err, se.err) {
			return Err(se.kind, se.err.Error())
		}
	}

	zap.L().Error(msg, zap.Error(err), zap.String("requestID", c.GetString("requestID")))
	return Err(KindInternal, internalError)
}

// bindError handles failures of ShouldBind. Missing required fields and
// oversized bodies are the client's fault, everything else is malformed
// input
func bindError(c *gin.Context, err error, missing string) Result {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return Err(KindTooLarge, "Request body too large")
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		zap.L().Debug("Missing fields", zap.Int("count", len(verrs)), zap.String("requestID", c.GetString("requestID")))
		return Err(KindValidation, missing)
	}

	zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
	return Err(KindValidation, "Invalid request body")
}
