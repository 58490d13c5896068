package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/josh-kwaku/budgetory/internal/domain"
	"github.com/josh-kwaku/budgetory/internal/service"
)

type settingsService interface {
	Get(ctx context.Context) domain.Settings
	Update(ctx context.Context, u service.SettingsUpdate) (domain.Settings, error)
	Currencies() []domain.CurrencyInfo
}

type SettingsHandler struct {
	settings settingsService
}

func NewSettingsHandler(settings settingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// A JSON null default_currency clears it; an absent one leaves it as is.
type updateSettingsRequest struct {
	DisplayCurrency *string         `json:"display_currency"`
	DefaultCurrency json.RawMessage `json:"default_currency"`
}

type settingsResponse struct {
	DisplayCurrency domain.CurrencyInfo  `json:"display_currency"`
	DefaultCurrency *domain.CurrencyInfo `json:"default_currency"`
}

func toSettingsResponse(s domain.Settings) settingsResponse {
	display, _ := domain.LookupCurrency(s.DisplayCurrency)
	resp := settingsResponse{DisplayCurrency: display}
	if s.DefaultCurrency != nil {
		if def, ok := domain.LookupCurrency(*s.DefaultCurrency); ok {
			resp.DefaultCurrency = &def
		}
	}
	return resp
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	RespondSuccess(w, http.StatusOK, toSettingsResponse(h.settings.Get(r.Context())))
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	var (
		update service.SettingsUpdate
		fields []FieldError
	)
	if req.DisplayCurrency != nil {
		c := domain.Currency(strings.ToUpper(*req.DisplayCurrency))
		if _, ok := domain.LookupCurrency(c); !ok {
			fields = append(fields, FieldError{Field: "display_currency", Message: "unsupported currency"})
		}
		update.DisplayCurrency = &c
	}

	switch raw := strings.TrimSpace(string(req.DefaultCurrency)); raw {
	case "":
	case "null":
		update.ClearDefault = true
	default:
		var code string
		if err := json.Unmarshal(req.DefaultCurrency, &code); err != nil {
			fields = append(fields, FieldError{Field: "default_currency", Message: "must be a currency code or null"})
			break
		}
		c := domain.Currency(strings.ToUpper(code))
		if _, ok := domain.LookupCurrency(c); !ok {
			fields = append(fields, FieldError{Field: "default_currency", Message: "unsupported currency"})
		}
		update.DefaultCurrency = &c
	}

	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	saved, err := h.settings.Update(r.Context(), update)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toSettingsResponse(saved))
}

func (h *SettingsHandler) Currencies(w http.ResponseWriter, r *http.Request) {
	RespondSuccess(w, http.StatusOK, h.settings.Currencies())
}
