package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/frontdesk-ai/internal/appointments"
	"github.com/wolfman30/frontdesk-ai/internal/config"
)

// ErrInvalidProfile is returned when a profile update fails validation.
var ErrInvalidProfile = errors.New("clinic: invalid profile")

// Profile describes the practice the receptionist fronts.
type Profile struct {
	Name           string   `json:"name"`
	DoctorName     string   `json:"doctor_name"`
	Specialization string   `json:"specialization"`
	Address        string   `json:"address"`
	Phone          string   `json:"phone"`
	Email          string   `json:"email"`
	Hours          string   `json:"hours"`
	ClosedDays     string   `json:"closed_days"`
	Timezone       string   `json:"timezone"`
	Fees           Fees     `json:"fees"`
	Services       []string `json:"services"`
	Slots          []string `json:"slots"`
	BotName        string   `json:"bot_name"`
	BotPersonality string   `json:"bot_personality"`
	EmergencyLine  string   `json:"emergency_line"`
}

// Fees are display strings, currency symbol included.
type Fees struct {
	FirstVisit string `json:"first_visit"`
	FollowUp   string `json:"follow_up"`
	Online     string `json:"online"`
}

// FromSettings builds the default profile from environment configuration.
func FromSettings(s config.ClinicSettings) Profile {
	return Profile{
		Name:           s.Name,
		DoctorName:     s.DoctorName,
		Specialization: s.Specialization,
		Address:        s.Location,
		Phone:          s.Phone,
		Email:          s.Email,
		Hours:          s.Hours,
		ClosedDays:     s.ClosedDays,
		Timezone:       s.Timezone,
		Fees: Fees{
			FirstVisit: s.FirstVisitFee,
			FollowUp:   s.FollowUpFee,
			Online:     s.OnlineFee,
		},
		Services:       append([]string(nil), s.Services...),
		Slots:          append([]string(nil), s.Slots...),
		BotName:        s.BotName,
		BotPersonality: s.BotPersonality,
		EmergencyLine:  s.EmergencyLine,
	}
}

// Location resolves the clinic timezone, falling back to UTC.
func (p *Profile) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today returns the clinic-local calendar date for now.
func (p *Profile) Today(now time.Time) string {
	return now.In(p.Location()).Format(appointments.DateLayout)
}

// Validate checks fields the ledger and prompt depend on.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidProfile, p.Timezone)
		}
	}
	if err := appointments.ValidateSlotList(p.Slots); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return nil
}

func (p Profile) clone() *Profile {
	p.Services = append([]string(nil), p.Services...)
	p.Slots = append([]string(nil), p.Slots...)
	return &p
}

const profileKey = "clinic:profile"

// Store keeps the live profile. Writes go to Redis when a client is
// configured so every API instance sees the same clinic details; otherwise
// the profile lives in process memory.
type Store struct {
	redis    *redis.Client
	defaults Profile

	mu    sync.RWMutex
	local *Profile
}

// NewStore creates a profile store seeded with defaults.
func NewStore(redisClient *redis.Client, defaults Profile) *Store {
	return &Store{redis: redisClient, defaults: defaults}
}

// Get returns the stored profile, or the defaults if none was saved.
func (s *Store) Get(ctx context.Context) (*Profile, error) {
	if s.redis == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.local != nil {
			return s.local.clone(), nil
		}
		return s.defaults.clone(), nil
	}

	data, err := s.redis.Get(ctx, profileKey).Bytes()
	if err == redis.Nil {
		return s.defaults.clone(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: get profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("clinic: unmarshal profile: %w", err)
	}
	return &p, nil
}

// Set validates and saves the profile.
func (s *Store) Set(ctx context.Context, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if s.redis == nil {
		s.mu.Lock()
		s.local = p.clone()
		s.mu.Unlock()
		return nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("clinic: marshal profile: %w", err)
	}
	if err := s.redis.Set(ctx, profileKey, data, 0).Err(); err != nil {
		return fmt.Errorf("clinic: set profile: %w", err)
	}
	return nil
}
