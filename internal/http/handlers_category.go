package http

import (
	"net/http"

	"chitieu/internal/amqp"
	applog "chitieu/internal/log"
)

// handleListCategories returns the user's categories followed by the
// defaults they do not override.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	cats, err := s.categories.List(ctx, userID)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	OK(cats).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}
	var req CategoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	c, err := s.categories.Create(ctx, userID, req.Category())
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	s.countWrite()
	s.events.LogLedgerChange(r.Context(), string(amqp.KindCategory), applog.OpCreate, userID, "")
	Created(c).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	id := r.PathValue("id")
	if err := s.categories.Delete(ctx, userID, id); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	s.countWrite()
	s.events.LogLedgerChange(r.Context(), string(amqp.KindCategory), applog.OpDelete, userID, "")
	OK(map[string]string{"id": id}).Write(w)
}

// handleSyncDefaultCategories copies every default category into the
// user's tier.
func (s *Server) handleSyncDefaultCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	n, err := s.categories.SyncDefaults(ctx, userID)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	s.countWrite()
	s.events.LogLedgerChange(r.Context(), string(amqp.KindCategory), applog.OpUpdate, userID, "")
	OK(map[string]int{"synced": n}).Write(w)
}
