package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

// Handler serves the ledger over HTTP for the dashboard and manual booking form.
type Handler struct {
	svc      *Service
	logger   *logging.Logger
	location *time.Location
	now      func() time.Time
}

// NewHandler creates a ledger handler. loc decides what "today" means for the
// dashboard; nil means UTC.
func NewHandler(svc *Service, loc *time.Location, logger *logging.Logger) *Handler {
	if svc == nil {
		panic("appointments: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{svc: svc, logger: logger, location: loc, now: time.Now}
}

// Routes mounts the ledger endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Book)
	r.Get("/slots", h.Slots)
	r.Post("/cancel", h.Cancel)
	r.Post("/reschedule", h.Reschedule)
	return r
}

// ErrorResponse is the body returned for failed ledger calls.
type ErrorResponse struct {
	Error          string   `json:"error"`
	Code           string   `json:"code"`
	Date           string   `json:"date,omitempty"`
	Time           string   `json:"time,omitempty"`
	AvailableSlots []string `json:"available_slots,omitempty"`
}

// ListResponse wraps a list of appointments.
type ListResponse struct {
	Date         string        `json:"date,omitempty"`
	Appointments []Appointment `json:"appointments"`
	Count        int           `json:"count"`
}

// SlotsResponse lists open slots for a date.
type SlotsResponse struct {
	Date           string   `json:"date"`
	AvailableSlots []string `json:"available_slots"`
}

// DashboardResponse is today's schedule for the front desk panel.
type DashboardResponse struct {
	Date           string        `json:"date"`
	Appointments   []Appointment `json:"appointments"`
	AvailableSlots []string      `json:"available_slots"`
	FullyBooked    bool          `json:"fully_booked"`
}

// Book handles POST /appointments (manual entry form).
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := ValidateBookRequest(req); err != nil {
		h.writeError(w, r, err)
		return
	}
	appt, err := h.svc.Book(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// List handles GET /appointments?date=YYYY-MM-DD.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	appts, err := h.svc.List(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Date: date, Appointments: appts, Count: len(appts)})
}

// Slots handles GET /appointments/slots?date=YYYY-MM-DD.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.today()
	}
	free, err := h.svc.OpenSlots(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SlotsResponse{Date: date, AvailableSlots: free})
}

// Cancel handles POST /appointments/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var ref PatientRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	appt, err := h.svc.Cancel(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Reschedule handles POST /appointments/reschedule.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	out, err := h.svc.Reschedule(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// History handles GET /patients/{phone}/appointments.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	appts, err := h.svc.History(r.Context(), phone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Appointments: appts, Count: len(appts)})
}

// Today handles GET /dashboard/today.
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	date := h.today()
	appts, err := h.svc.List(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	free, err := h.svc.OpenSlots(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DashboardResponse{
		Date:           date,
		Appointments:   appts,
		AvailableSlots: free,
		FullyBooked:    len(free) == 0,
	})
}

func (h *Handler) today() string {
	return h.now().In(h.location).Format(DateLayout)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Error: err.Error(), Code: Outcome(err)}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ErrSlotTaken):
		status = http.StatusConflict
		if taken, ok := IsSlotTaken(err); ok {
			resp.Date = taken.Date
			resp.Time = taken.Time
			if free, ferr := h.svc.OpenSlots(r.Context(), taken.Date); ferr == nil {
				resp.AvailableSlots = free
			}
		}
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidSlot):
		status = http.StatusBadRequest
	default:
		h.logger.Error("ledger request failed", "path", r.URL.Path, "error", err)
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
