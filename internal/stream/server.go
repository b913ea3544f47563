package stream

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/engine"
)

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type velocity struct {
	DVX float64 `json:"dvx"`
	DVY float64 `json:"dvy"`
}

type reheatRequest struct {
	Alpha *float64 `json:"alpha,omitempty"`
}

type statusResponse struct {
	Status    string  `json:"status"`
	Alpha     float64 `json:"alpha"`
	TickCount int     `json:"tickCount"`
}

// NewRouter exposes d over HTTP. Frames are streamed on /ws through hub.
func NewRouter(d *Driver, hub *Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/ws", hub)

	r.Route("/api", func(r chi.Router) {
		r.Get("/positions", func(w http.ResponseWriter, r *http.Request) {
			var pos []dynamo.NodeState
			err := d.Query(r.Context(), func(e *engine.Engine) { pos = e.Positions() })
			respond(w, pos, err)
		})
		r.Get("/export", func(w http.ResponseWriter, r *http.Request) {
			snap, err := d.Export(r.Context())
			respond(w, snap, err)
		})
		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			var st statusResponse
			err := d.Query(r.Context(), func(e *engine.Engine) { st = status(e) })
			respond(w, st, err)
		})

		r.Post("/reheat", func(w http.ResponseWriter, r *http.Request) {
			var req reheatRequest
			if err := decodeOptional(r, &req); err != nil {
				fail(w, http.StatusBadRequest, err)
				return
			}
			control(w, r, d, func(e *engine.Engine) error {
				alpha := e.Config().ReheatAlpha
				if req.Alpha != nil {
					alpha = *req.Alpha
				}
				return e.Reheat(alpha)
			})
		})
		r.Post("/pause", func(w http.ResponseWriter, r *http.Request) {
			control(w, r, d, func(e *engine.Engine) error { e.Pause(); return nil })
		})
		r.Post("/resume", func(w http.ResponseWriter, r *http.Request) {
			control(w, r, d, func(e *engine.Engine) error { e.Resume(); return nil })
		})

		r.Route("/nodes/{id}", func(r chi.Router) {
			r.Post("/pin", func(w http.ResponseWriter, r *http.Request) {
				var p point
				if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
					fail(w, http.StatusBadRequest, err)
					return
				}
				id := chi.URLParam(r, "id")
				control(w, r, d, func(e *engine.Engine) error { return e.PinNode(id, p.X, p.Y) })
			})
			r.Delete("/pin", func(w http.ResponseWriter, r *http.Request) {
				id := chi.URLParam(r, "id")
				control(w, r, d, func(e *engine.Engine) error { return e.UnpinNode(id) })
			})
			r.Post("/impulse", func(w http.ResponseWriter, r *http.Request) {
				var v velocity
				if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
					fail(w, http.StatusBadRequest, err)
					return
				}
				id := chi.URLParam(r, "id")
				control(w, r, d, func(e *engine.Engine) error { return e.ApplyImpulse(id, v.DVX, v.DVY) })
			})
		})
	})

	return r
}

func status(e *engine.Engine) statusResponse {
	return statusResponse{
		Status:    e.Status().String(),
		Alpha:     e.Alpha(),
		TickCount: e.TickCount(),
	}
}

// control runs fn through the driver and answers with the resulting status.
func control(w http.ResponseWriter, r *http.Request, d *Driver, fn func(*engine.Engine) error) {
	var st statusResponse
	err := d.Do(r.Context(), func(e *engine.Engine) error {
		if err := fn(e); err != nil {
			return err
		}
		st = status(e)
		return nil
	})
	respond(w, st, err)
}

func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		fail(w, statusCode(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, dynamo.ErrNodeNotFound), errors.Is(err, dynamo.ErrLinkNotFound):
		return http.StatusNotFound
	case errors.Is(err, dynamo.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, ErrDriverStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func fail(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
