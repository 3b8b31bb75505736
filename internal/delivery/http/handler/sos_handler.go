package handler

import (
	"net/http"

	"health-companion-api/internal/usecase"
	"health-companion-api/pkg/response"
)

type SOSHandler struct {
	sosUsecase usecase.SOSUsecase
}

func NewSOSHandler(sosUsecase usecase.SOSUsecase) *SOSHandler {
	return &SOSHandler{
		sosUsecase: sosUsecase,
	}
}

func (h *SOSHandler) TriggerSOS(w http.ResponseWriter, r *http.Request) {
	result, err := h.sosUsecase.Trigger(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to send SOS message")
		return
	}

	response.Success(w, http.StatusOK, "SOS message sent", result)
}
