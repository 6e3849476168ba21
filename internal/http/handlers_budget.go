package http

import (
	"net/http"

	"chitieu/internal/amqp"
	"chitieu/internal/core"
	applog "chitieu/internal/log"
)

// budgetResponse pairs the stored budget with its comparison against the
// month's expenses.
type budgetResponse struct {
	Budget core.Budget         `json:"budget"`
	Status core.BudgetOverview `json:"status"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	userID, month, ok := s.identifyMonth(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	budget, err := s.budgets.Get(ctx, userID, month)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	status, err := s.budgets.Status(ctx, userID, month)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	OK(budgetResponse{Budget: budget, Status: status}).Write(w)
}

func (s *Server) handleSetBudgetTotal(w http.ResponseWriter, r *http.Request) {
	userID, month, ok := s.identifyMonth(w, r)
	if !ok {
		return
	}
	var req AmountRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	amount, err := req.Value()
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	budget, err := s.budgets.SetTotal(ctx, userID, month, amount)
	s.budgetWritten(w, r, amqp.OpUpdate, userID, month, budget, err)
}

func (s *Server) handleDeleteBudgetTotal(w http.ResponseWriter, r *http.Request) {
	userID, month, ok := s.identifyMonth(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	budget, err := s.budgets.DeleteTotal(ctx, userID, month)
	s.budgetWritten(w, r, amqp.OpDelete, userID, month, budget, err)
}

func (s *Server) handleSetBudgetCategory(w http.ResponseWriter, r *http.Request) {
	userID, month, ok := s.identifyMonth(w, r)
	if !ok {
		return
	}
	var req AmountRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	amount, err := req.Value()
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	budget, err := s.budgets.SetCategory(ctx, userID, month, r.PathValue("categoryId"), amount,
		sanitizeInput(req.Name), sanitizeInput(req.Icon))
	s.budgetWritten(w, r, amqp.OpUpdate, userID, month, budget, err)
}

func (s *Server) handleDeleteBudgetCategory(w http.ResponseWriter, r *http.Request) {
	userID, month, ok := s.identifyMonth(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	budget, err := s.budgets.DeleteCategory(ctx, userID, month, r.PathValue("categoryId"))
	s.budgetWritten(w, r, amqp.OpDelete, userID, month, budget, err)
}

func (s *Server) budgetWritten(w http.ResponseWriter, r *http.Request, op amqp.ChangeOp, userID string, month core.MonthKey, budget core.Budget, err error) {
	if err != nil {
		s.fail(w, r, string(op), err)
		return
	}
	s.countWrite()
	s.events.LogLedgerChange(r.Context(), string(amqp.KindBudget), string(op), userID, month.String())
	OK(budget).Write(w)
}
