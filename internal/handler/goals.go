package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"stellar-pets-api/internal/model"
	"stellar-pets-api/internal/service"
	"stellar-pets-api/pkg/response"
)

// GoalHandler handles goal ledger HTTP requests.
type GoalHandler struct {
	ledger *service.GoalLedger
}

// NewGoalHandler creates a new goal handler.
func NewGoalHandler(ledger *service.GoalLedger) *GoalHandler {
	return &GoalHandler{ledger: ledger}
}

// CreateGoalRequest represents the request body for creating a goal.
// Owner defaults to the authenticated caller.
type CreateGoalRequest struct {
	Owner         string          `json:"owner"`
	GoalAmount    decimal.Decimal `json:"goal_amount"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
	Frequency     string          `json:"frequency"`
}

// GoalView is a goal with its derived state.
type GoalView struct {
	model.Goal
	Reached bool `json:"reached"`
	Overdue bool `json:"overdue"`
}

// Create handles POST /api/v1/goals
func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGoalRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	if req.Owner == "" {
		req.Owner, _ = service.CallerFrom(r.Context())
	}

	goal, err := h.ledger.CreateGoal(r.Context(), req.Owner, req.GoalAmount, req.DepositAmount, req.Frequency)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.Created(w, h.view(goal))
}

// Get handles GET /api/v1/goals/{owner}
func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	goal, err := h.ledger.GetGoal(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.OK(w, h.view(goal))
}

// Deposit handles POST /api/v1/goals/{owner}/deposit
func (h *GoalHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	owner := chi.URLParam(r, "owner")
	result, err := h.ledger.Deposit(r.Context(), owner, req.Amount)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.OK(w, map[string]interface{}{
		"owner":  owner,
		"amount": req.Amount,
		"result": result,
	})
}

// Withdraw handles POST /api/v1/goals/{owner}/withdraw
func (h *GoalHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	owner := chi.URLParam(r, "owner")
	goal, err := h.ledger.Withdraw(r.Context(), owner, req.Amount)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.OK(w, map[string]interface{}{
		"owner":         owner,
		"amount":        req.Amount,
		"current_saved": goal.CurrentSaved,
	})
}

// History handles GET /api/v1/goals/{owner}/history?limit=
func (h *GoalHandler) History(w http.ResponseWriter, r *http.Request) {
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

// Progress handles GET /api/v1/goals/{owner}/progress
func (h *GoalHandler) Progress(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	reached, err := h.ledger.CheckProgress(r.Context(), owner)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.OK(w, map[string]interface{}{"owner": owner, "reached": reached})
}

// Balance handles GET /api/v1/goals/{owner}/balance
func (h *GoalHandler) Balance(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	balance, err := h.ledger.GetBalance(r.Context(), owner)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.OK(w, map[string]interface{}{"owner": owner, "current_saved": balance})
}

func (h *GoalHandler) view(goal model.Goal) GoalView {
	return GoalView{
		Goal:    goal,
		Reached: goal.CurrentSaved.GreaterThanOrEqual(goal.GoalAmount),
		Overdue: h.ledger.IsOverdue(goal),
	}
}
