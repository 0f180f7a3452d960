// Package clients exposes the client service over HTTP.
package clients

import (
	"clientcore/internal/core"
	"clientcore/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Service is the subset of core.Service used by the handler.
type Service interface {
	CreateClient(ctx context.Context, client domain.Client) (int64, error)
	UpdateClient(ctx context.Context, id int64, client domain.Client) (domain.Client, error)
	FindClient(ctx context.Context, id int64) (domain.Client, error)
	RemoveClient(ctx context.Context, id int64) error
	SearchClients(ctx context.Context, query domain.ClientQuery) ([]domain.Client, error)
}

var _ Service = (*core.Service)(nil)

// notFoundPrefix precedes the not-found detail in 404 bodies.
const notFoundPrefix = "Data not found - "

// Handler serves the /v1/clients resource.
type Handler struct {
	Service Service
	Logger  core.Logger
}

// NewHandler constructs a client HTTP handler. A nil logger discards output.
func NewHandler(svc Service, logger core.Logger) *Handler {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Handler{Service: svc, Logger: logger}
}

// Routes mounts the client endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/v1/clients", func(r chi.Router) {
		r.Get("/", h.handleSearch)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleFind)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleRemove)
	})
}

func (h *Handler) handleFind(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	client, err := h.Service.FindClient(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Service.SearchClients(r.Context(), QueryFromRequest(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	client, ok := decodeClient(w, r)
	if !ok {
		return
	}
	id, err := h.Service.CreateClient(r.Context(), client)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/clients/%d", id))
	writeJSON(w, http.StatusCreated, id)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	client, ok := decodeClient(w, r)
	if !ok {
		return
	}
	updated, err := h.Service.UpdateClient(r.Context(), id, client)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	if err := h.Service.RemoveClient(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QueryFromRequest builds a search query from the idNumber, firstName and
// mobileNumber query parameters. A parameter that is absent stays nil.
func QueryFromRequest(r *http.Request) domain.ClientQuery {
	values := r.URL.Query()
	param := func(name string) *string {
		if !values.Has(name) {
			return nil
		}
		return domain.StringPtr(values.Get(name))
	}
	return domain.ClientQuery{
		IDNumber:     param("idNumber"),
		FirstName:    param("firstName"),
		MobileNumber: param("mobileNumber"),
	}
}

func clientID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeReasons(w, http.StatusBadRequest, []string{fmt.Sprintf("Invalid client id: %s", raw)})
		return 0, false
	}
	return id, true
}

func decodeClient(w http.ResponseWriter, r *http.Request) (domain.Client, bool) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reason := "Malformed request body"
		if errors.Is(err, io.EOF) {
			reason = "Missing request body"
		}
		writeReasons(w, http.StatusBadRequest, []string{reason})
		return domain.Client{}, false
	}
	return req.client(), true
}

// clientRequest is the accepted body of POST and PUT. Text fields also take
// bare JSON numbers, which clients commonly send for ID and mobile numbers.
type clientRequest struct {
	ID           int64      `json:"client"`
	FirstName    *textField `json:"firstName"`
	LastName     *textField `json:"lastName"`
	IDNumber     *textField `json:"idNumber"`
	MobileNumber *textField `json:"mobileNumber"`
}

func (req clientRequest) client() domain.Client {
	return domain.Client{
		ID:           req.ID,
		FirstName:    req.FirstName.ptr(),
		LastName:     req.LastName.ptr(),
		IDNumber:     req.IDNumber.ptr(),
		MobileNumber: req.MobileNumber.ptr(),
	}
}

// textField holds a JSON string, or a JSON number in its literal spelling.
// A number cannot carry a leading zero, so 0821234567 must still be quoted.
type textField string

func (f *textField) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = textField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = textField(n.String())
	return nil
}

func (f *textField) ptr() *string {
	if f == nil {
		return nil
	}
	return domain.StringPtr(string(*f))
}

// writeServiceError maps the service error taxonomy onto HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *domain.NotFoundError
	var invalid *domain.ValidationError
	switch {
	case errors.As(err, &notFound):
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, notFoundPrefix+notFound.Detail)
	case errors.As(err, &invalid):
		writeReasons(w, http.StatusBadRequest, invalid.Reasons)
	default:
		h.Logger.Error("client request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type reasonsResponse struct {
	Reasons []string `json:"reasons"`
}

func writeReasons(w http.ResponseWriter, status int, reasons []string) {
	if reasons == nil {
		reasons = []string{}
	}
	writeJSON(w, status, reasonsResponse{Reasons: reasons})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
