package feed

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/response"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Personalized(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Personalized(r.Context(), session.UserID(r.Context()), utilities.PageFromRequest(r, 10))
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", out)
}

func (h *Handler) UserFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := utilities.PathID(r, "userId")
	if !ok {
		response.Fail(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	out, err := h.svc.UserFeed(r.Context(), session.UserID(r.Context()), userID, utilities.PageFromRequest(r, 10))
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", out)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	limit := utilities.PageFromRequest(r, 20).Limit
	out, err := h.svc.Refresh(r.Context(), session.UserID(r.Context()), limit)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "Feed refreshed successfully", out)
}
