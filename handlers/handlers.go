package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"verification-service/backend"
	"verification-service/flow"
	"verification-service/logging"
)

// VerificationHandler handles HTTP requests for the verification flow
type VerificationHandler struct {
	controller *flow.Controller
	resolver   backend.CallbackResolver
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(controller *flow.Controller, resolver backend.CallbackResolver) *VerificationHandler {
	return &VerificationHandler{
		controller: controller,
		resolver:   resolver,
	}
}

// StartVerification is the verification landing endpoint. It captures the
// transaction reference from the query string and starts a session.
func (h *VerificationHandler) StartVerification(c *gin.Context) {
	session := h.controller.Start(c.Request.URL.Query())

	view := session.View()
	if view.State == flow.StateInvalidReference {
		// Terminal immediately: nothing to poll, the customer must restart
		// the payment flow.
		c.JSON(http.StatusUnprocessableEntity, view)
		return
	}

	c.JSON(http.StatusAccepted, view)
}

// GetSession reports a session's progress or terminal state.
func (h *VerificationHandler) GetSession(c *gin.Context) {
	session, ok := h.controller.Session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, session.View())
}

// CancelRedirect stops a session's pending auto-redirect countdown.
func (h *VerificationHandler) CancelRedirect(c *gin.Context) {
	session, ok := h.controller.Session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	session.CancelRedirect()
	c.JSON(http.StatusOK, session.View())
}

// Navigate records a user-initiated navigation, cancelling any pending
// auto-redirect first, and returns the destination to follow.
func (h *VerificationHandler) Navigate(c *gin.Context) {
	session, ok := h.controller.Session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	destination := session.Navigate()
	if destination == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "session has no destination yet"})
		return
	}
	c.JSON(http.StatusOK, destination)
}

// AbortSession tears a session down, for page teardown on the client.
func (h *VerificationHandler) AbortSession(c *gin.Context) {
	if !h.controller.Abort(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// CheckOnce performs a single manual re-check of a reference, for the
// timed-out screen's "check again" action.
func (h *VerificationHandler) CheckOnce(c *gin.Context) {
	reference := flow.ExtractReference(c.Request.URL.Query())
	if reference == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no transaction reference supplied"})
		return
	}

	result := h.controller.CheckOnce(c.Request.Context(), reference)

	// A transport failure on a manual check reads as "still processing":
	// the poller already folds it into a pending outcome.
	response := gin.H{
		"reference":     reference,
		"outcome":       result.Outcome,
		"attempts_used": result.AttemptsUsed,
	}
	if result.Snapshot != nil {
		response["snapshot"] = result.Snapshot
	}
	c.JSON(http.StatusOK, response)
}

// RelayCallback forwards raw gateway callback parameters to the backend for
// validation and answers with the verification landing URL for the resolved
// reference.
func (h *VerificationHandler) RelayCallback(c *gin.Context) {
	ctx := c.Request.Context()
	span := trace.SpanFromContext(ctx)
	gateway := c.Param("gateway")

	reference, err := h.resolver.ResolveCallback(ctx, gateway, c.Request.URL.Query())
	if err != nil {
		logger := logging.WithTraceContext(span)
		logger.Error("Gateway callback relay failed",
			zap.String("gateway", gateway),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "callback could not be validated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reference":  reference,
		"verify_url": "/api/verify?reference=" + reference,
	})
}

// HealthCheck handles health check requests
func (h *VerificationHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
