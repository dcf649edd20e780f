package clinic

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/frontdesk-ai/internal/config"
)

func testProfile() Profile {
	return Profile{
		Name:     "Wellness Clinic",
		Timezone: "Asia/Kolkata",
		Slots:    []string{"10:00 AM", "11:00 AM", "2:00 PM"},
		Services: []string{"Diet Consultation"},
		BotName:  "Aria",
	}
}

func TestFromSettings(t *testing.T) {
	settings := config.ClinicSettings{
		Name:          "Dr. Priya's Clinic",
		Location:      "Pune",
		Timezone:      "Asia/Kolkata",
		FirstVisitFee: "₹500",
		Slots:         []string{"10:00 AM"},
	}
	p := FromSettings(settings)
	if p.Address != "Pune" {
		t.Fatalf("expected address from location, got %q", p.Address)
	}
	if p.Fees.FirstVisit != "₹500" {
		t.Fatalf("expected first visit fee, got %q", p.Fees.FirstVisit)
	}
	settings.Slots[0] = "mutated"
	if p.Slots[0] != "10:00 AM" {
		t.Fatalf("profile must not share the settings slice")
	}
}

func TestToday_UsesClinicTimezone(t *testing.T) {
	p := testProfile()
	// 20:00 UTC is already the next day in India (+05:30).
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	if got := p.Today(now); got != "2025-06-02" {
		t.Fatalf("expected clinic-local date, got %s", got)
	}

	p.Timezone = "Not/AZone"
	if got := p.Today(now); got != "2025-06-01" {
		t.Fatalf("expected UTC fallback, got %s", got)
	}
}

func TestValidate(t *testing.T) {
	p := testProfile()
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid profile: %v", err)
	}

	bad := testProfile()
	bad.Slots = []string{"10:00 AM", "10:00 AM"}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected duplicate slot error")
	}

	bad = testProfile()
	bad.Slots = []string{"lunchtime"}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected unparseable slot error")
	}

	bad = testProfile()
	bad.Timezone = "Mars/Olympus"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected timezone error")
	}
}

func TestStore_RedisRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, testProfile())
	ctx := context.Background()

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get defaults: %v", err)
	}
	if got.Name != "Wellness Clinic" {
		t.Fatalf("expected defaults, got %q", got.Name)
	}

	got.Name = "Renamed Clinic"
	got.Slots = append(got.Slots, "3:00 PM")
	if err := store.Set(ctx, got); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("clinic:profile") {
		t.Fatal("expected profile key in redis")
	}

	again, err := NewStore(rdb, testProfile()).Get(ctx)
	if err != nil {
		t.Fatalf("get saved: %v", err)
	}
	if again.Name != "Renamed Clinic" || len(again.Slots) != 4 {
		t.Fatalf("unexpected saved profile %+v", again)
	}
}

func TestStore_MemoryRejectsInvalid(t *testing.T) {
	store := NewStore(nil, testProfile())
	ctx := context.Background()

	p, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	p.Slots = nil
	if err := store.Set(ctx, p); err == nil {
		t.Fatal("expected validation error")
	}

	p.Slots = []string{"9:00 AM"}
	if err := store.Set(ctx, p); err != nil {
		t.Fatalf("set: %v", err)
	}
	saved, _ := store.Get(ctx)
	if len(saved.Slots) != 1 || saved.Slots[0] != "9:00 AM" {
		t.Fatalf("unexpected slots %v", saved.Slots)
	}
}
