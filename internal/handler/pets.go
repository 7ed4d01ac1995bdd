package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"stellar-pets-api/internal/model"
	"stellar-pets-api/internal/service"
	"stellar-pets-api/pkg/apierror"
	"stellar-pets-api/pkg/response"
)

// PetHandler handles pet ledger HTTP requests.
type PetHandler struct {
	ledger *service.PetLedger
}

// NewPetHandler creates a new pet handler.
func NewPetHandler(ledger *service.PetLedger) *PetHandler {
	return &PetHandler{ledger: ledger}
}

// MintRequest represents the request body for minting a pet.
// Owner defaults to the authenticated caller.
type MintRequest struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
}

// AmountRequest carries an amount in the smallest currency unit, as a JSON number or string.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Mint handles POST /api/v1/pets
func (h *PetHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	if req.Owner == "" {
		req.Owner, _ = service.CallerFrom(r.Context())
	}

	pet, err := h.ledger.Mint(r.Context(), req.Owner, req.Name, model.PetKind(req.Kind))
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.Created(w, pet)
}

// Get handles GET /api/v1/pets/{owner}
func (h *PetHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")

	pet, found, err := h.ledger.GetPet(r.Context(), owner)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	if !found {
		response.Error(w, apierror.NotFound("no pet for owner"))
		return
	}
	response.OK(w, pet)
}

// GetStaking handles GET /api/v1/pets/{owner}/staking
func (h *PetHandler) GetStaking(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")

	info, found, err := h.ledger.GetStakingInfo(r.Context(), owner)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	if !found {
		response.Error(w, apierror.NotFound("no staking info for owner"))
		return
	}
	response.OK(w, info)
}

// Feed handles POST /api/v1/pets/{owner}/feed
func (h *PetHandler) Feed(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	pet, err := h.ledger.Feed(r.Context(), chi.URLParam(r, "owner"), req.Amount)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.OK(w, pet)
}

// Withdraw handles POST /api/v1/pets/{owner}/withdraw
func (h *PetHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	pet, err := h.ledger.Withdraw(r.Context(), chi.URLParam(r, "owner"), req.Amount)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.OK(w, pet)
}

// Decay handles POST /api/v1/pets/{owner}/decay. Anyone may trigger it.
func (h *PetHandler) Decay(w http.ResponseWriter, r *http.Request) {
	pet, err := h.ledger.UpdateHealthDecay(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.OK(w, pet)
}

// Count handles GET /api/v1/pets/count
func (h *PetHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.ledger.PetCount(r.Context())
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.OK(w, map[string]uint32{"count": count})
}

// History handles GET /api/v1/pets/{owner}/history?limit=
func (h *PetHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, apiErr := queryLimit(r, service.DefaultHistoryLimit, service.MaxHistoryLimit)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	entries, err := h.ledger.History(r.Context(), chi.URLParam(r, "owner"), limit)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.JSONWithMeta(w, http.StatusOK, entries, limit, int64(len(entries)))
}

// Leaderboard handles GET /api/v1/leaderboard?limit=
func (h *PetHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, apiErr := queryLimit(r, service.DefaultLeaderboardLimit, service.MaxLeaderboardLimit)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	entries, err := h.ledger.Leaderboard(r.Context(), limit)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}

	owners, err := h.ledger.Owners(r.Context())
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.JSONWithMeta(w, http.StatusOK, entries, limit, int64(len(owners)))
}
