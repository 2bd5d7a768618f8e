package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/mship/internal/auth"
	"github.com/victorivanov/mship/internal/presenter"
	"github.com/victorivanov/mship/internal/service"
)

// BanHandler serves the ban panels of the account details page and the
// actions they offer.
type BanHandler struct {
	service *service.BanService
}

// NewBanHandler creates a BanHandler.
func NewBanHandler(svc *service.BanService) *BanHandler {
	return &BanHandler{service: svc}
}

type repealBanRequest struct {
	Note string `json:"note"`
}

type modifyBanRequest struct {
	PeriodFinish *time.Time `json:"period_finish"`
	// Permanent must be set to clear the finish, so that a missing
	// period_finish is not mistaken for an open-ended ban.
	Permanent bool   `json:"permanent"`
	Note      string `json:"note"`
}

type attachNoteRequest struct {
	Content string `json:"content"`
}

// tabHint reads the selected_tab and selected_tab_id query parameters.
// A malformed id selects nothing.
func tabHint(c echo.Context) presenter.TabHint {
	hint := presenter.TabHint{Tab: c.QueryParam("selected_tab")}
	if raw := c.QueryParam("selected_tab_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			hint.TabID = id
		}
	}
	return hint
}

// ListAccountBans handles GET /api/v1/accounts/:id/bans.
func (h *BanHandler) ListAccountBans(c echo.Context) error {
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid account ID")
	}

	views, err := h.service.ListAccountBans(c.Request().Context(), auth.GetAccountID(c), accountID, tabHint(c))
	if err != nil {
		return mapServiceError(c, err)
	}

	return successJSON(c, http.StatusOK, views)
}

// GetBan handles GET /api/v1/bans/:id.
func (h *BanHandler) GetBan(c echo.Context) error {
	banID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid ban ID")
	}

	view, err := h.service.GetBanView(c.Request().Context(), auth.GetAccountID(c), banID, tabHint(c))
	if err != nil {
		return mapServiceError(c, err)
	}

	return successJSON(c, http.StatusOK, view)
}

// RepealBan handles POST /api/v1/bans/:id/repeal.
func (h *BanHandler) RepealBan(c echo.Context) error {
	banID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid ban ID")
	}

	var req repealBanRequest
	_ = c.Bind(&req) // optional body

	view, err := h.service.RepealBan(c.Request().Context(), auth.GetAccountID(c), banID, req.Note)
	if err != nil {
		return mapServiceError(c, err)
	}

	return successJSON(c, http.StatusOK, view)
}

// ModifyBan handles PATCH /api/v1/bans/:id.
func (h *BanHandler) ModifyBan(c echo.Context) error {
	banID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid ban ID")
	}

	var req modifyBanRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}
	if req.PeriodFinish == nil && !req.Permanent {
		return Error(c, http.StatusBadRequest, "INVALID_PERIOD", "period_finish is required unless permanent is set")
	}
	if req.PeriodFinish != nil && req.Permanent {
		return Error(c, http.StatusBadRequest, "INVALID_PERIOD", "a permanent ban cannot have a period_finish")
	}

	view, err := h.service.ModifyBan(c.Request().Context(), auth.GetAccountID(c), banID, req.PeriodFinish, req.Note)
	if err != nil {
		return mapServiceError(c, err)
	}

	return successJSON(c, http.StatusOK, view)
}

// AttachNote handles POST /api/v1/bans/:id/notes.
func (h *BanHandler) AttachNote(c echo.Context) error {
	banID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid ban ID")
	}

	var req attachNoteRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	note, err := h.service.AttachNote(c.Request().Context(), auth.GetAccountID(c), banID, req.Content)
	if err != nil {
		return mapServiceError(c, err)
	}

	return successJSON(c, http.StatusCreated, note)
}
