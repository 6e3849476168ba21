package http

import (
	"net/http"

	"chitieu/internal/core"
	applog "chitieu/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	txs, err := s.transactions.List(ctx, userID)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	OK(txs).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	tx, err := s.transactions.Get(ctx, userID, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	OK(tx).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	s.writeTransaction(w, r, applog.OpCreate)
}

// handleUpdateTransaction replaces every mutable field of the transaction
// named in the path.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	s.writeTransaction(w, r, applog.OpUpdate)
}

func (s *Server) writeTransaction(w http.ResponseWriter, r *http.Request, op string) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}
	var req TransactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	tx, err := req.Transaction(userID, s.location)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	var saved core.Transaction
	if op == applog.OpUpdate {
		tx.ID = r.PathValue("id")
		saved, err = s.transactions.Update(ctx, tx)
	} else {
		saved, err = s.transactions.Create(ctx, tx)
	}
	if err != nil {
		s.fail(w, r, op, err)
		return
	}

	s.countWrite()
	s.events.LogTransactionWritten(r.Context(), op, userID,
		core.MonthOf(saved.Date, s.location).String(),
		saved.ID, saved.CategoryID, saved.Amount.String())
	if op == applog.OpCreate {
		Created(saved).Write(w)
		return
	}
	OK(saved).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	id := r.PathValue("id")
	if err := s.transactions.Delete(ctx, userID, id); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	s.countWrite()
	OK(map[string]string{"id": id}).Write(w)
}
