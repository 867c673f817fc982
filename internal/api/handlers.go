package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"greencart/internal/model"
	"greencart/internal/store"
)

func listParams(r *http.Request) (cursor string, limit int) {
	q := r.URL.Query()
	cursor = q.Get("cursor")
	limit = 100
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	return cursor, limit
}

// pathID extracts the trailing id from e.g. /v1/drivers/{id}.
func pathID(r *http.Request, prefix string) string {
	return strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
}

func (s *Server) storeErr(w http.ResponseWriter, r *http.Request, err error, title string) {
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	writeProblem(w, http.StatusInternalServerError, title, err.Error(), r.URL.Path)
}

// DriversHandler handles POST/GET /v1/drivers
func (s *Server) DriversHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if _, ok := s.requireManager(w, r); !ok {
			return
		}
		var d model.Driver
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateDriver(&d); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid driver", err.Error(), r.URL.Path)
			return
		}
		created, err := s.Store.CreateDriver(r.Context(), d)
		if err != nil {
			s.storeErr(w, r, err, "Create driver failed")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		cursor, limit := listParams(r)
		items, next, err := s.Store.ListDrivers(r.Context(), cursor, limit)
		if err != nil {
			s.storeErr(w, r, err, "List drivers failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// DriverByIDHandler handles GET/PUT/DELETE /v1/drivers/{id}
func (s *Server) DriverByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/v1/drivers")
	if id == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		d, err := s.Store.GetDriver(r.Context(), id)
		if err != nil {
			s.storeErr(w, r, err, "Get driver failed")
			return
		}
		writeJSON(w, http.StatusOK, d)
	case http.MethodPut:
		if _, ok := s.requireManager(w, r); !ok {
			return
		}
		var d model.Driver
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		d.ID = id
		if err := validateDriver(&d); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid driver", err.Error(), r.URL.Path)
			return
		}
		updated, err := s.Store.UpdateDriver(r.Context(), d)
		if err != nil {
			s.storeErr(w, r, err, "Update driver failed")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if _, ok := s.requireManager(w, r); !ok {
			return
		}
		if err := s.Store.DeleteDriver(r.Context(), id); err != nil {
			s.storeErr(w, r, err, "Delete driver failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// RoutesHandler handles POST/GET /v1/routes
func (s *Server) RoutesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if _, ok := s.requireManager(w, r); !ok {
			return
		}
		var rt model.Route
		if err := json.NewDecoder(r.Body).Decode(&rt); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateRoute(&rt); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid route", err.Error(), r.URL.Path)
			return
		}
		created, err := s.Store.CreateRoute(r.Context(), rt)
		if err != nil {
			s.storeErr(w, r, err, "Create route failed")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		cursor, limit := listParams(r)
		items, next, err := s.Store.ListRoutes(r.Context(), cursor, limit)
		if err != nil {
			s.storeErr(w, r, err, "List routes failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// RouteByIDHandler handles GET/PUT/DELETE /v1/routes/{id}
func (s *Server) RouteByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/v1/routes")
	if id == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		rt, err := s.Store.GetRoute(r.Context(), id)
		if err != nil {
			s.storeErr(w, r, err, "Get route failed")
			return
		}
		writeJSON(w, http.StatusOK, rt)
	case http.MethodPut:
		if _, ok := s.requireManager(w, r); !ok {
			return
		}
		var rt model.Route
		if err := json.NewDecoder(r.Body).Decode(&rt); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		rt.ID = id
		if err := validateRoute(&rt); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid route", err.Error(), r.URL.Path)
			return
		}
		updated, err := s.Store.UpdateRoute(r.Context(), rt)
		if err != nil {
			s.storeErr(w, r, err, "Update route failed")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if _, ok := s.requireManager(w, r); !ok {
			return
		}
		if err := s.Store.DeleteRoute(r.Context(), id); err != nil {
			s.storeErr(w, r, err, "Delete route failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// OrdersHandler handles POST/GET /v1/orders
func (s *Server) OrdersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if _, ok := s.requireManager(w, r); !ok {
			return
		}
		var o model.Order
		if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateOrder(&o); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid order", err.Error(), r.URL.Path)
			return
		}
		// the route reference must resolve at creation time
		if _, err := s.Store.GetRoute(r.Context(), o.RouteID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeProblem(w, http.StatusBadRequest, "Invalid order", "routeId does not reference a known route", r.URL.Path)
				return
			}
			s.storeErr(w, r, err, "Create order failed")
			return
		}
		created, err := s.Store.CreateOrder(r.Context(), o)
		if err != nil {
			s.storeErr(w, r, err, "Create order failed")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		cursor, limit := listParams(r)
		status := r.URL.Query().Get("status")
		items, next, err := s.Store.ListOrders(r.Context(), status, cursor, limit)
		if err != nil {
			s.storeErr(w, r, err, "List orders failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// OrderByIDHandler handles GET/PUT/DELETE /v1/orders/{id}
func (s *Server) OrderByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/v1/orders")
	if id == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		o, err := s.Store.GetOrder(r.Context(), id)
		if err != nil {
			s.storeErr(w, r, err, "Get order failed")
			return
		}
		writeJSON(w, http.StatusOK, o)
	case http.MethodPut:
		if _, ok := s.requireManager(w, r); !ok {
			return
		}
		var o model.Order
		if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		o.ID = id
		if err := validateOrder(&o); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid order", err.Error(), r.URL.Path)
			return
		}
		updated, err := s.Store.UpdateOrder(r.Context(), o)
		if err != nil {
			s.storeErr(w, r, err, "Update order failed")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if _, ok := s.requireManager(w, r); !ok {
			return
		}
		if err := s.Store.DeleteOrder(r.Context(), id); err != nil {
			s.storeErr(w, r, err, "Delete order failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler reports readiness; the store must answer.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Store.OrderStats(r.Context()); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
