package server

import (
	"fmt"
	"net/http"

	"github.com/drakos74/smart-exec/internal/model"
)

// Engine is the view of the trading engine exposed over http.
type Engine interface {
	Status(id string) (model.Order, bool)
	Executions(instrument string) []model.Execution
	OrderExecutions(id string) ([]model.Execution, bool)
}

// Admin returns the admin routes for the engine.
// stats provides the statistics payload.
func Admin[S any](engine Engine, stats func() S) []Route {
	return []Route{
		Live(),
		{
			Action: Api,
			Path:   "orders",
			Method: GET,
			Exec: func(r *http.Request) ([]byte, int, error) {
				id := r.URL.Query().Get("id")
				if id == "" {
					return []byte("missing order id"), http.StatusBadRequest, nil
				}
				order, ok := engine.Status(id)
				if !ok {
					return []byte(fmt.Sprintf("order %s not found", id)), http.StatusNotFound, nil
				}
				return Json(order)
			},
		},
		{
			Action: Api,
			Path:   "executions",
			Method: GET,
			Exec: func(r *http.Request) ([]byte, int, error) {
				if id := r.URL.Query().Get("order"); id != "" {
					executions, ok := engine.OrderExecutions(id)
					if !ok {
						return []byte(fmt.Sprintf("order %s not found", id)), http.StatusNotFound, nil
					}
					return Json(executions)
				}
				instrument := model.Instrument(r.URL.Query().Get("instrument"))
				if instrument == "" {
					return []byte("missing instrument or order"), http.StatusBadRequest, nil
				}
				return Json(engine.Executions(instrument))
			},
		},
		{
			Action: Api,
			Path:   "stats",
			Method: GET,
			Exec: func(r *http.Request) ([]byte, int, error) {
				return Json(stats())
			},
		},
	}
}
