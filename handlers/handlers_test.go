package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"verification-service/flow"
	"verification-service/handlers"
	"verification-service/logging"
	"verification-service/models"
	"verification-service/verification"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := logging.InitLogger(); err != nil {
		panic(err)
	}
	m.Run()
}

type fakeChecker struct {
	respond func(reference string) (*models.TransactionSnapshot, error)
}

func (f *fakeChecker) CheckTransactionStatus(ctx context.Context, reference string) (*models.TransactionSnapshot, error) {
	return f.respond(reference)
}

type fakeResolver struct {
	reference string
	err       error
}

func (f *fakeResolver) ResolveCallback(ctx context.Context, gateway string, params url.Values) (string, error) {
	return f.reference, f.err
}

func newRouter(checker *fakeChecker, resolver *fakeResolver) *gin.Engine {
	poller := verification.NewPoller(checker, verification.Options{
		MaxAttempts:       3,
		InitialDelay:      time.Millisecond,
		MaxDelay:          2 * time.Millisecond,
		BackoffMultiplier: 2,
	})
	controller := flow.NewController(poller, nil, nil)
	handler := handlers.NewVerificationHandler(controller, resolver)

	r := gin.New()
	r.GET("/api/verify", handler.StartVerification)
	r.GET("/api/verify/check", handler.CheckOnce)
	r.GET("/api/verify/sessions/:id", handler.GetSession)
	r.POST("/api/verify/sessions/:id/cancel-redirect", handler.CancelRedirect)
	r.POST("/api/verify/sessions/:id/navigate", handler.Navigate)
	r.DELETE("/api/verify/sessions/:id", handler.AbortSession)
	r.POST("/api/callbacks/:gateway", handler.RelayCallback)
	r.GET("/health", handler.HealthCheck)
	return r
}

func doRequest(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func paidChecker() *fakeChecker {
	return &fakeChecker{
		respond: func(reference string) (*models.TransactionSnapshot, error) {
			return &models.TransactionSnapshot{
				Reference: reference,
				IsPaid:    true,
				PaymentPage: &models.PaymentPageConfig{
					RedirectURL: "https://shop.example/thanks",
				},
			}, nil
		},
	}
}

func TestStartVerification_AcceptsReference(t *testing.T) {
	r := newRouter(paidChecker(), &fakeResolver{})

	w := doRequest(r, http.MethodGet, "/api/verify?reference=TXN-1")

	require.Equal(t, http.StatusAccepted, w.Code)

	var view flow.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.NotEmpty(t, view.ID)
	require.Equal(t, "TXN-1", view.Reference)
}

func TestStartVerification_GatewayAliasAccepted(t *testing.T) {
	r := newRouter(paidChecker(), &fakeResolver{})

	w := doRequest(r, http.MethodGet, "/api/verify?trxref=TXN-2")

	require.Equal(t, http.StatusAccepted, w.Code)

	var view flow.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Equal(t, "TXN-2", view.Reference)
}

func TestStartVerification_NoReference(t *testing.T) {
	r := newRouter(paidChecker(), &fakeResolver{})

	w := doRequest(r, http.MethodGet, "/api/verify")

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var view flow.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Equal(t, flow.StateInvalidReference, view.State)
}

func TestGetSession_ReportsTerminalState(t *testing.T) {
	r := newRouter(paidChecker(), &fakeResolver{})

	w := doRequest(r, http.MethodGet, "/api/verify?reference=TXN-3")
	require.Equal(t, http.StatusAccepted, w.Code)

	var started flow.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))

	require.Eventually(t, func() bool {
		resp := doRequest(r, http.MethodGet, "/api/verify/sessions/"+started.ID)
		if resp.Code != http.StatusOK {
			return false
		}
		var view flow.View
		if err := json.Unmarshal(resp.Body.Bytes(), &view); err != nil {
			return false
		}
		return view.State == flow.StateSucceeded && view.Destination != nil
	}, 3*time.Second, 10*time.Millisecond)
}

func TestGetSession_NotFound(t *testing.T) {
	r := newRouter(paidChecker(), &fakeResolver{})

	w := doRequest(r, http.MethodGet, "/api/verify/sessions/unknown")

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckOnce(t *testing.T) {
	r := newRouter(paidChecker(), &fakeResolver{})

	w := doRequest(r, http.MethodGet, "/api/verify/check?reference=TXN-4")

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Reference    string         `json:"reference"`
		Outcome      models.Outcome `json:"outcome"`
		AttemptsUsed int            `json:"attempts_used"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "TXN-4", body.Reference)
	require.Equal(t, models.OutcomePaid, body.Outcome)
	require.Equal(t, 1, body.AttemptsUsed)
}

func TestCheckOnce_NoReference(t *testing.T) {
	r := newRouter(paidChecker(), &fakeResolver{})

	w := doRequest(r, http.MethodGet, "/api/verify/check")

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCheckOnce_TransportErrorReadsAsPending(t *testing.T) {
	checker := &fakeChecker{
		respond: func(reference string) (*models.TransactionSnapshot, error) {
			return nil, errors.New("backend unreachable")
		},
	}
	r := newRouter(checker, &fakeResolver{})

	w := doRequest(r, http.MethodGet, "/api/verify/check?reference=TXN-5")

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Outcome models.Outcome `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, models.OutcomePending, body.Outcome)
}

func TestRelayCallback(t *testing.T) {
	r := newRouter(paidChecker(), &fakeResolver{reference: "TXN-6"})

	w := doRequest(r, http.MethodPost, "/api/callbacks/flutterwave?tx_id=999&status=successful")

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Reference string `json:"reference"`
		VerifyURL string `json:"verify_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "TXN-6", body.Reference)
	require.Equal(t, "/api/verify?reference=TXN-6", body.VerifyURL)
}

func TestRelayCallback_BackendRejects(t *testing.T) {
	r := newRouter(paidChecker(), &fakeResolver{err: errors.New("signature mismatch")})

	w := doRequest(r, http.MethodPost, "/api/callbacks/flutterwave?tx_id=999")

	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAbortSession(t *testing.T) {
	r := newRouter(paidChecker(), &fakeResolver{})

	w := doRequest(r, http.MethodGet, "/api/verify?reference=TXN-7")
	var started flow.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))

	resp := doRequest(r, http.MethodDelete, "/api/verify/sessions/"+started.ID)
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = doRequest(r, http.MethodGet, "/api/verify/sessions/"+started.ID)
	require.Equal(t, http.StatusNotFound, resp.Code)
}
