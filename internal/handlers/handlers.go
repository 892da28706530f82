// Package handlers exposes the HTTP API. Handlers bind and validate
// the request, call into the engine or store, and translate errors to
// status codes; no business rules live here.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marup-app/marup-server/internal/auth"
	"github.com/marup-app/marup-server/internal/engine"
	"github.com/marup-app/marup-server/internal/payment"
	"github.com/marup-app/marup-server/internal/storage"
)

// Handlers carries the dependencies shared by all routes.
type Handlers struct {
	store         storage.Ledger
	engine        *engine.Engine
	authenticator auth.Authenticator
	jwt           *auth.JWTManager
	payments      *payment.Service
}

// New creates the handler set. payments may be nil when Stripe is not
// configured; the payment routes then return 503.
func New(store storage.Ledger, eng *engine.Engine, authenticator auth.Authenticator, jwt *auth.JWTManager, payments *payment.Service) *Handlers {
	return &Handlers{
		store:         store,
		engine:        eng,
		authenticator: authenticator,
		jwt:           jwt,
		payments:      payments,
	}
}

// fail writes the error with the status its classification maps to.
func fail(c *gin.Context, err error) {
	c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, payment.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrEmailExists),
		errors.Is(err, payment.ErrAlreadyPaid),
		errors.Is(err, payment.ErrPaymentPending):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNotOwner):
		return http.StatusForbidden
	}

	switch engine.Classify(err) {
	case engine.KindValidation:
		return http.StatusBadRequest
	case engine.KindConflict, engine.KindCapacity:
		return http.StatusConflict
	case engine.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
