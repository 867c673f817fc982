package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"greencart/internal/model"
)

// SubscriptionsHandler handles POST/GET /v1/subscriptions.
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if _, ok := s.requireManager(w, r); !ok {
			return
		}
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url must be http(s)", r.URL.Path)
			return
		}
		if len(req.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "at least one event type is required", r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			s.storeErr(w, r, err, "Create subscription failed")
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		subs, err := s.Store.ListSubscriptions(r.Context())
		if err != nil {
			s.storeErr(w, r, err, "List subscriptions failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": subs})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}.
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := s.requireManager(w, r); !ok {
		return
	}
	id := pathID(r, "/v1/subscriptions")
	if id == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if err := s.Store.DeleteSubscription(r.Context(), id); err != nil {
		s.storeErr(w, r, err, "Delete subscription failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
