package invite

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/arityo/merchant-bridge/internal/identity"
	"github.com/arityo/merchant-bridge/internal/transport"
	"github.com/arityo/merchant-bridge/pkg/logger"
)

type ServiceAPI interface {
	Invite(caller *identity.User, dto *CreateInviteDTO) (*InviteResult, error)
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

func (h *Handler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	caller, _ := identity.UserFromContext(r.Context())

	var dto CreateInviteDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateInvite: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.Service.Invite(caller, &dto)
	if err != nil {
		h.Logger.Error("CreateInvite: service error", "error", err, "email", dto.Email)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, result)
}
