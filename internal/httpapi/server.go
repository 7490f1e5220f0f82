// Package httpapi serves the notification dismissal endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"tarevity/internal/notify"
	"tarevity/internal/service"
)

// Handler serves the HTTP API.
type Handler struct {
	dismisser *notify.Dismisser
	auth      Authenticator
	log       logrus.FieldLogger
}

// NewRouter builds the routes with CORS applied.
func NewRouter(d *notify.Dismisser, auth Authenticator, log logrus.FieldLogger) http.Handler {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	h := &Handler{dismisser: d, auth: auth, log: log.WithField("component", "httpapi")}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/notifications/dismiss", h.dismiss).Methods(http.MethodPost)
	return enableCORS(r)
}

type response struct {
	Message string `json:"message"`
	Count   *int   `json:"count,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{Message: "ok"})
}

func (h *Handler) dismiss(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authenticate(r)
	if err != nil {
		h.log.WithError(err).Warn("dismiss: unauthenticated request")
		writeJSON(w, http.StatusUnauthorized, response{Message: "Unauthorized"})
		return
	}

	var req notify.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.WithError(err).Warn("dismiss: invalid request payload")
		writeJSON(w, http.StatusBadRequest, response{Message: "Invalid request payload"})
		return
	}

	res, err := h.dismisser.Dismiss(r.Context(), userID, req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.log.WithError(err).WithField("user_id", userID).Error("Error deleting notifications")
		}
		writeJSON(w, status, response{Message: messageFor(err)})
		return
	}

	count := res.Count
	writeJSON(w, http.StatusOK, response{Message: res.Message, Count: &count})
}

func statusFor(err error) int {
	switch service.KindOf(err) {
	case service.KindUnauthenticated:
		return http.StatusUnauthorized
	case service.KindMissingParameter, service.KindValidation:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func messageFor(err error) string {
	var e *service.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Unknown error deleting notifications"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Serve runs handler on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}
