package host

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/portmatch/internal/ir"
)

// RouterOption configures NewRouter.
type RouterOption func(chi.Router)

// WithMetricsHandler serves g at GET /metrics.
func WithMetricsHandler(g prometheus.Gatherer) RouterOption {
	return func(r chi.Router) {
		r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
}

// WithPracticeView exposes the observed practice screen of e:
//
//	GET /practice/view  current view
//	PUT /practice/view  replace the view
//
// With auto-capture on, a PUT is followed by an Observe under the trigger
// given in the "trigger" query parameter (default "view").
func WithPracticeView(h *Host, e *PracticeExtractor) RouterOption {
	return func(r chi.Router) {
		r.Get("/practice/view", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, e.View())
		})
		r.Put("/practice/view", func(w http.ResponseWriter, req *http.Request) {
			var view PracticeView
			if !decode(w, req, &view) {
				return
			}
			e.Set(view)

			trigger := req.URL.Query().Get("trigger")
			if trigger == "" {
				trigger = "view"
			}
			c, recorded, err := h.Observe(trigger)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, ObserveResponse{Seq: c.Seq, Recorded: recorded, Violations: nonNil(c.Violations)})
		})
	}
}

// StateRequest is an explicit application state.
type StateRequest struct {
	Mode            string   `json:"mode"`
	VisibleElements []string `json:"visibleElements"`
	Capabilities    []string `json:"capabilities"`
	// Timestamp is an optional RFC 3339 observation time. Omitted means the
	// time the oracle records the transition.
	Timestamp string `json:"timestamp,omitempty"`
}

// TransitionRequest is the body of POST /transitions. Intents,
// ExpectedVisible and UserTimestamp make up the user state.
type TransitionRequest struct {
	Trigger         string       `json:"trigger"`
	App             StateRequest `json:"app"`
	Intents         []string     `json:"intents"`
	ExpectedVisible []string     `json:"expectedVisible,omitempty"`
	UserTimestamp   string       `json:"userTimestamp,omitempty"`
}

// CaptureRequest is the body of POST /capture.
type CaptureRequest struct {
	Trigger string   `json:"trigger"`
	Intents []string `json:"intents"`
}

// VerdictRequest is the body of POST /verdict.
type VerdictRequest struct {
	Verdict string `json:"verdict"`
	Note    string `json:"note"`
}

// RecordResponse reports an appended transition.
type RecordResponse struct {
	Seq  int64      `json:"seq"`
	Gaps []ErrorDTO `json:"gaps"`
	// Violations is only filled by POST /capture with a checking extractor.
	Violations []string `json:"violations"`
}

// ObserveResponse reports whether a view change was auto-captured.
type ObserveResponse struct {
	Seq        int64    `json:"seq,omitempty"`
	Recorded   bool     `json:"recorded"`
	Violations []string `json:"violations"`
}

// BugDTO is one bug in GET /bugs.
type BugDTO struct {
	Seq         int64  `json:"seq"`
	Description string `json:"description"`
}

// ErrorDTO is the JSON form of an error.
type ErrorDTO struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Seq     int64             `json:"seq,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// NewRouter exposes h over HTTP.
//
//	POST   /session      enable
//	GET    /session      status
//	DELETE /session      disable (archives when configured)
//	POST   /transitions  record an explicit state pair
//	POST   /capture      extract and record with intents
//	POST   /verdict      validate the latest transition
//	GET    /export       canonical export document
//	GET    /bugs         bugs found so far
func NewRouter(h *Host, opts ...RouterOption) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/session", func(w http.ResponseWriter, req *http.Request) {
		id, err := h.Enable()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"sessionId": id})
	})
	r.Get("/session", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, h.Status())
	})
	r.Delete("/session", func(w http.ResponseWriter, req *http.Request) {
		if err := h.Disable(req.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.Status())
	})

	r.Post("/transitions", func(w http.ResponseWriter, req *http.Request) {
		var body TransitionRequest
		if !decode(w, req, &body) {
			return
		}
		appTS, err := optionalTime(body.App.Timestamp)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorDTO{Code: "BAD_REQUEST", Message: "app: " + err.Error()})
			return
		}
		userTS, err := optionalTime(body.UserTimestamp)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorDTO{Code: "BAD_REQUEST", Message: "user: " + err.Error()})
			return
		}

		app := ir.ApplicationState{
			Mode:            ir.Mode(body.App.Mode),
			VisibleElements: ir.NewSet(toIDs[ir.ElementID](body.App.VisibleElements)...),
			Capabilities:    ir.NewSet(toIDs[ir.CapabilityID](body.App.Capabilities)...),
			Timestamp:       appTS,
		}
		user := ir.UserState{
			Intents:   ir.NewSet(toIDs[ir.IntentID](body.Intents)...),
			Timestamp: userTS,
		}
		if len(body.ExpectedVisible) > 0 {
			user.ExpectedVisible = ir.NewSet(toIDs[ir.ElementID](body.ExpectedVisible)...)
		}
		seq, gaps, err := h.Record(body.Trigger, app, user)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, RecordResponse{Seq: seq, Gaps: errorDTOs(gaps), Violations: []string{}})
	})

	r.Post("/capture", func(w http.ResponseWriter, req *http.Request) {
		var body CaptureRequest
		if !decode(w, req, &body) {
			return
		}
		c, err := h.Capture(body.Trigger, toIDs[ir.IntentID](body.Intents)...)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, RecordResponse{Seq: c.Seq, Gaps: errorDTOs(c.Gaps), Violations: nonNil(c.Violations)})
	})

	r.Post("/verdict", func(w http.ResponseWriter, req *http.Request) {
		var body VerdictRequest
		if !decode(w, req, &body) {
			return
		}
		verdict, err := ir.ParseVerdict(body.Verdict)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorDTO{Code: "BAD_REQUEST", Message: err.Error()})
			return
		}
		if err := h.SubmitVerdict(verdict, body.Note); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/export", func(w http.ResponseWriter, req *http.Request) {
		data, err := h.Export()
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	})

	r.Get("/bugs", func(w http.ResponseWriter, req *http.Request) {
		bugs, err := h.Bugs()
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]BugDTO, len(bugs))
		for i, b := range bugs {
			out[i] = BugDTO{Seq: b.Seq, Description: b.Description}
		}
		writeJSON(w, http.StatusOK, out)
	})

	for _, opt := range opts {
		opt(r)
	}
	return r
}

func decode(w http.ResponseWriter, req *http.Request, v any) bool {
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorDTO{Code: "BAD_REQUEST", Message: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var e *ir.Error
	if errors.As(err, &e) {
		status := http.StatusInternalServerError
		switch e.Code {
		case ir.ErrCodeStateViolation:
			status = http.StatusConflict
		case ir.ErrCodeModelingInconsistency:
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, toErrorDTO(e))
		return
	}

	switch {
	case errors.Is(err, ir.ErrInvalidVerdict):
		writeJSON(w, http.StatusBadRequest, ErrorDTO{Code: "BAD_REQUEST", Message: err.Error()})
	case errors.Is(err, ErrNoExtractor):
		writeJSON(w, http.StatusNotImplemented, ErrorDTO{Code: "NOT_IMPLEMENTED", Message: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorDTO{Code: "INTERNAL", Message: err.Error()})
	}
}

func toErrorDTO(e *ir.Error) ErrorDTO {
	return ErrorDTO{Code: string(e.Code), Message: e.Message, Seq: e.Seq, Details: e.Details}
}

func errorDTOs(errs []*ir.Error) []ErrorDTO {
	out := make([]ErrorDTO, len(errs))
	for i, e := range errs {
		out[i] = toErrorDTO(e)
	}
	return out
}

func toIDs[T ~string](items []string) []T {
	out := make([]T, len(items))
	for i, s := range items {
		out[i] = T(s)
	}
	return out
}

// optionalTime parses an RFC 3339 timestamp; "" yields the zero time.
func optionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return ir.ParseTime(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
