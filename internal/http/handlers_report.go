package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"chitieu/internal/core"
	applog "chitieu/internal/log"
)

// handleMonthReport returns the full report of a month.
func (s *Server) handleMonthReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	OK(report).Write(w)
}

// handleMonthDays returns the transactions of a month grouped by day.
func (s *Server) handleMonthDays(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	OK(map[string]any{
		"month":        report.Month,
		"byDay":        report.ByDay,
		"totalExpense": report.TotalExpense,
		"income":       report.Income,
		"balance":      report.Balance,
	}).Write(w)
}

// handleMonthChart returns the pie slices and daily series of a month.
func (s *Server) handleMonthChart(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	OK(core.Chart{
		PieSlices:     report.PieSlices,
		DailySeries:   report.DailySeries,
		TotalExpense:  report.TotalExpense,
		AveragePerDay: report.AveragePerDay,
	}).Write(w)
}

func (s *Server) loadReport(w http.ResponseWriter, r *http.Request) (core.MonthReport, bool) {
	userID, month, ok := s.identifyMonth(w, r)
	if !ok {
		return core.MonthReport{}, false
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	report, err := s.reports.Month(ctx, userID, month)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return core.MonthReport{}, false
	}
	return report, true
}

type streamEvent struct {
	name string
	body Envelope
}

// offerLatest puts e on ch, replacing an event the writer has not taken yet.
func offerLatest(ch chan streamEvent, e streamEvent) {
	for {
		select {
		case ch <- e:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// handleMonthStream sends the month report as server-sent events: the
// current report first, then a new one after every change. A load failure
// sends an "error" event and keeps the stream open.
func (s *Server) handleMonthStream(w http.ResponseWriter, r *http.Request) {
	userID, month, ok := s.identifyMonth(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalServerError("streaming not supported").Write(w)
		return
	}

	ctx := r.Context()
	logger := applog.FromContext(ctx)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := make(chan streamEvent, 1)
	sub := s.hub.Subscribe(ctx, userID, month,
		func(report core.MonthReport) {
			offerLatest(events, streamEvent{name: "report", body: Envelope{Data: report}})
		},
		func(err error) {
			offerLatest(events, streamEvent{name: "error", body: Envelope{
				Error: &ErrorBody{Code: CodeUnavailable, Message: err.Error()},
			}})
		})
	defer sub.Cancel()

	atomic.AddInt64(&s.activeStreams, 1)
	defer atomic.AddInt64(&s.activeStreams, -1)
	logger.InfoContext(ctx, "Report stream opened",
		applog.FieldUserID, userID,
		applog.FieldMonth, month.String())

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Report stream closed",
				applog.FieldUserID, userID,
				applog.FieldMonth, month.String())
			return
		case e := <-events:
			data, err := json.Marshal(e.body)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to encode stream event", applog.FieldError, err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, data); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
