// Package apiresp writes the JSON envelope every API endpoint answers with
// and maps domain errors onto stable error codes.
//
// Success:  {"ok": true, "data": ...}
// Failure:  {"ok": false, "code": "CodeExpired", "message": "..."}
package apiresp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	catalogstore "github.com/dalemusser/washhub/internal/app/store/catalog"
	customerstore "github.com/dalemusser/washhub/internal/app/store/customers"
	invitationstore "github.com/dalemusser/washhub/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/washhub/internal/app/store/memberships"
	orderstore "github.com/dalemusser/washhub/internal/app/store/orders"
	userstore "github.com/dalemusser/washhub/internal/app/store/users"
	workspacestore "github.com/dalemusser/washhub/internal/app/store/workspaces"
	"github.com/dalemusser/washhub/internal/app/system/auth"
	"github.com/dalemusser/washhub/internal/app/system/workspace"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxBodyBytes caps request bodies read by Decode.
const MaxBodyBytes = 1 << 20

// Error codes.
const (
	CodeInvalidCode        = "InvalidCode"
	CodeCodeNotActive      = "CodeNotActive"
	CodeCodeExpired        = "CodeExpired"
	CodeCodeFull           = "CodeFull"
	CodeMalformedInvite    = "MalformedInvite"
	CodePermissionDenied   = "PermissionDenied"
	CodeNotMember          = "NotMember"
	CodeOwnerCannotLeave   = "OwnerCannotLeave"
	CodeAlreadyInWorkspace = "AlreadyInWorkspace"
	CodeWorkspaceNotFound  = "WorkspaceNotFound"
	CodeProfileNotFound    = "ProfileNotFound"
	CodeNoWorkspace        = "NoWorkspace"
	CodeInvalidInput       = "InvalidInput"
	CodeRateLimited        = "RateLimited"
	CodeUnauthorized       = "Unauthorized"
	CodeNotFound           = "NotFound"
	CodeConflict           = "Conflict"
	CodeInvalidTransition  = "InvalidTransition"
	CodeTransientIOFailure = "TransientIOFailure"
)

var (
	// ErrBadBody is returned by Decode for bodies that are not the expected JSON.
	ErrBadBody = errors.New("request body is not valid JSON for this endpoint")
	// ErrRateLimited is written when a caller exceeds a rate limit.
	ErrRateLimited = errors.New("too many attempts; try again shortly")
	// ErrInvalid is the base of handler-level validation failures.
	ErrInvalid = errors.New("invalid input")
	// ErrBadID is returned by PathID for ids that are not ObjectIDs.
	ErrBadID = errors.New("no record with that id")
)

// Envelope is the response body shape.
type Envelope struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type mapping struct {
	err    error
	status int
	code   string
}

// mappings is checked in order with errors.Is.
var mappings = []mapping{
	{membershipstore.ErrInvalidCode, http.StatusNotFound, CodeInvalidCode},
	{invitationstore.ErrNotFound, http.StatusNotFound, CodeInvalidCode},
	{membershipstore.ErrCodeNotActive, http.StatusGone, CodeCodeNotActive},
	{invitationstore.ErrNotActive, http.StatusGone, CodeCodeNotActive},
	{membershipstore.ErrCodeExpired, http.StatusGone, CodeCodeExpired},
	{membershipstore.ErrCodeFull, http.StatusConflict, CodeCodeFull},
	{invitationstore.ErrFull, http.StatusConflict, CodeCodeFull},
	{membershipstore.ErrMalformedInvite, http.StatusUnprocessableEntity, CodeMalformedInvite},
	{membershipstore.ErrPermissionDenied, http.StatusForbidden, CodePermissionDenied},
	{membershipstore.ErrCannotRemoveOwner, http.StatusForbidden, CodePermissionDenied},
	{workspace.ErrNotOwner, http.StatusForbidden, CodePermissionDenied},
	{membershipstore.ErrNotMember, http.StatusConflict, CodeNotMember},
	{membershipstore.ErrOwnerCannotLeave, http.StatusConflict, CodeOwnerCannotLeave},
	{membershipstore.ErrAlreadyInWorkspace, http.StatusConflict, CodeAlreadyInWorkspace},
	{membershipstore.ErrWorkspaceNotFound, http.StatusNotFound, CodeWorkspaceNotFound},
	{workspacestore.ErrNotFound, http.StatusNotFound, CodeWorkspaceNotFound},
	{membershipstore.ErrProfileNotFound, http.StatusNotFound, CodeProfileNotFound},
	{userstore.ErrNotFound, http.StatusNotFound, CodeProfileNotFound},
	{workspace.ErrNoWorkspace, http.StatusConflict, CodeNoWorkspace},
	{membershipstore.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput},
	{workspacestore.ErrBadUID, http.StatusBadRequest, CodeInvalidInput},
	{ErrBadBody, http.StatusBadRequest, CodeInvalidInput},
	{ErrInvalid, http.StatusBadRequest, CodeInvalidInput},
	{orderstore.ErrEmptyOrder, http.StatusBadRequest, CodeInvalidInput},
	{orderstore.ErrBadQuantity, http.StatusBadRequest, CodeInvalidInput},
	{orderstore.ErrTotalTooLarge, http.StatusBadRequest, CodeInvalidInput},
	{orderstore.ErrBadStatus, http.StatusBadRequest, CodeInvalidInput},
	{ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
	{workspace.ErrNoIdentity, http.StatusUnauthorized, CodeUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized, CodeUnauthorized},
	{auth.ErrExpiredToken, http.StatusUnauthorized, CodeUnauthorized},
	{auth.ErrMissingUID, http.StatusUnauthorized, CodeUnauthorized},
	{ErrBadID, http.StatusNotFound, CodeNotFound},
	{customerstore.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{catalogstore.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{orderstore.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{orderstore.ErrCustomerNotFound, http.StatusNotFound, CodeNotFound},
	{orderstore.ErrEntryNotFound, http.StatusNotFound, CodeNotFound},
	{customerstore.ErrInUse, http.StatusConflict, CodeConflict},
	{orderstore.ErrStaleStatus, http.StatusConflict, CodeConflict},
	{orderstore.ErrInvalidTransition, http.StatusConflict, CodeInvalidTransition},
}

// Classify returns the HTTP status, error code and user-facing message for
// err. Unrecognised errors are TransientIOFailure with a generic message.
func Classify(err error) (status int, code, message string) {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return m.status, m.code, err.Error()
		}
	}
	return http.StatusServiceUnavailable, CodeTransientIOFailure, "the service is temporarily unavailable; please try again"
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{OK: true, Data: data})
}

// Fail writes the failure envelope for err. Transient failures are logged
// since their detail never reaches the client.
func Fail(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, code, msg := Classify(err)
	if code == CodeTransientIOFailure && log != nil {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	WriteJSON(w, status, Envelope{Code: code, Message: msg})
}

// Failer adapts Fail to the func(w, r, err) shape middleware expects.
func Failer(log *zap.Logger) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		Fail(w, r, log, err)
	}
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Decode reads a JSON body into v. Unknown fields, trailing data and bodies
// over MaxBodyBytes are rejected with ErrBadBody.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: trailing data", ErrBadBody)
	}
	return nil
}

// Invalid returns a validation error with a user-facing message.
func Invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalid, msg)
}

// PathID parses the chi URL parameter name as an ObjectID.
func PathID(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, ErrBadID
	}
	return id, nil
}
