package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/arityo/merchant-bridge/internal"
	"github.com/arityo/merchant-bridge/internal/transport"
	"github.com/arityo/merchant-bridge/pkg/logger"
)

const (
	stateCookieName = "square_oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

type ServiceAPI interface {
	AuthorizeURL(state, derivedRedirect string) string
	Bridge(ctx context.Context, dto *BridgeDTO) (*Result, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// Authorize starts the OAuth dance: mint a state nonce, pin it in a
// short-lived HTTP-only cookie, and send the browser to the provider.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/api/v1/oauth/square",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	authorizeURL := h.Service.AuthorizeURL(state, deriveCallbackURL(r))
	h.Logger.Info("authorization started", "state", state)
	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// Callback lands the provider redirect. The state parameter must match the
// cookie set at authorization start; mismatch or absence is a hard failure.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || state == "" || cookie.Value != state {
		h.Logger.Error("oauth state validation failed", "has_cookie", err == nil, "state_present", state != "")
		h.HandleServiceError(w, internal.ErrStateMismatch)
		return
	}

	// One-shot: the state is consumed whether or not the bridge succeeds.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/api/v1/oauth/square",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	code := r.URL.Query().Get("code")
	result, err := h.Service.Bridge(r.Context(), &BridgeDTO{Code: code})
	if err != nil {
		h.Logger.Error("bridge failed on callback", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// Bridge is the direct JSON invocation, including the NeedsEmail retry path.
func (h *Handler) Bridge(w http.ResponseWriter, r *http.Request) {
	var dto BridgeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("invalid bridge request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.Bridge(r.Context(), &dto)
	if err != nil {
		h.Logger.Error("bridge failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// deriveCallbackURL reconstructs the externally visible callback URL from
// forwarded headers. Only consulted when no registered redirect URI exists.
func deriveCallbackURL(r *http.Request) string {
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	if host == "" {
		return ""
	}

	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		if r.TLS != nil {
			proto = "https"
		} else {
			proto = "http"
		}
	}

	return proto + "://" + host + "/api/v1/oauth/square/callback"
}
