package clinic

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

// Handler provides HTTP endpoints for clinic profile management.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a new clinic profile HTTP handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Routes returns a chi router with clinic admin routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetProfile)
	r.Put("/", h.UpdateProfile)
	return r
}

// GetProfile returns the clinic profile.
// GET /admin/clinic
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to get clinic profile", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		h.logger.Error("failed to encode clinic profile", "error", err)
	}
}

// UpdateProfileRequest is a partial update; omitted fields keep their value.
type UpdateProfileRequest struct {
	Name           string   `json:"name,omitempty"`
	DoctorName     string   `json:"doctor_name,omitempty"`
	Specialization string   `json:"specialization,omitempty"`
	Address        string   `json:"address,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Email          string   `json:"email,omitempty"`
	Hours          string   `json:"hours,omitempty"`
	ClosedDays     string   `json:"closed_days,omitempty"`
	Timezone       string   `json:"timezone,omitempty"`
	Fees           *Fees    `json:"fees,omitempty"`
	Services       []string `json:"services,omitempty"`
	Slots          []string `json:"slots,omitempty"`
	BotName        string   `json:"bot_name,omitempty"`
	BotPersonality string   `json:"bot_personality,omitempty"`
	EmergencyLine  string   `json:"emergency_line,omitempty"`
}

func (req *UpdateProfileRequest) apply(p *Profile) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&p.Name, req.Name)
	set(&p.DoctorName, req.DoctorName)
	set(&p.Specialization, req.Specialization)
	set(&p.Address, req.Address)
	set(&p.Phone, req.Phone)
	set(&p.Email, req.Email)
	set(&p.Hours, req.Hours)
	set(&p.ClosedDays, req.ClosedDays)
	set(&p.Timezone, req.Timezone)
	set(&p.BotName, req.BotName)
	set(&p.BotPersonality, req.BotPersonality)
	set(&p.EmergencyLine, req.EmergencyLine)
	if req.Fees != nil {
		p.Fees = *req.Fees
	}
	if req.Services != nil {
		p.Services = req.Services
	}
	if req.Slots != nil {
		p.Slots = req.Slots
	}
}

// UpdateProfile applies a partial update.
// PUT /admin/clinic
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	p, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to get clinic profile", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	req.apply(p)

	if err := h.store.Set(r.Context(), p); err != nil {
		if errors.Is(err, ErrInvalidProfile) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("failed to save clinic profile", "error", err)
		http.Error(w, `{"error": "failed to save profile"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("clinic profile updated", "name", p.Name, "slots", len(p.Slots))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		h.logger.Error("failed to encode clinic profile", "error", err)
	}
}
