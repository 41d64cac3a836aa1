package facility

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "facility.json"))

	sessions, history, err := store.Load()
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if len(sessions) != 0 || len(history) != 0 {
		t.Errorf("Expected empty maps for a missing file, got %d sessions and %d history entries",
			len(sessions), len(history))
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "facility.json"))

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	sessions := map[string]*Session{
		"12가3456": {
			VehicleID:   "12가3456",
			Start:       start,
			Floor:       1,
			PositionNum: 4,
			WalkIn:      true,
			Class:       ClassElectric,
		},
		"34나7890": {
			VehicleID:   "34나7890",
			Start:       start.Add(30 * time.Minute),
			Floor:       3,
			PositionNum: 100,
			WalkIn:      false,
			Class:       ClassNone,
			PlanDays:    PlanMonthly,
		},
	}
	history := map[string][]HistoryRecord{
		"56다1111": {
			{
				Session: Session{
					VehicleID:   "56다1111",
					Start:       start.Add(-3 * time.Hour),
					Floor:       2,
					PositionNum: 15,
					WalkIn:      true,
					Class:       ClassCompact,
				},
				Fee: 4400,
				End: start.Add(-2 * time.Hour),
			},
			{
				Session: Session{
					VehicleID:   "56다1111",
					Start:       start.Add(-1 * time.Hour),
					Floor:       2,
					PositionNum: 15,
					WalkIn:      true,
					Class:       ClassCompact,
				},
				Fee: 0,
				End: start.Add(-50 * time.Minute),
			},
		},
	}

	if err := store.Save(sessions, history); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	gotSessions, gotHistory, err := store.Load()
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	if !reflect.DeepEqual(sessions, gotSessions) {
		t.Errorf("Sessions did not round-trip.\nSaved: %+v\nLoaded: %+v", sessions, gotSessions)
	}
	if !reflect.DeepEqual(history, gotHistory) {
		t.Errorf("History did not round-trip.\nSaved: %+v\nLoaded: %+v", history, gotHistory)
	}
}

func TestStoreTimestampLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facility.json")
	store := NewStore(path)

	start := time.Date(2026, 3, 1, 10, 5, 0, 0, time.Local)
	sessions := map[string]*Session{
		"12가3456": {VehicleID: "12가3456", Start: start, Floor: 1, PositionNum: 1, WalkIn: true, Class: ClassNone},
	}

	if err := store.Save(sessions, map[string][]HistoryRecord{}); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if want := `"start_time": "2026-03-01 10:05"`; !strings.Contains(string(data), want) {
		t.Errorf("Expected state file to contain %s, got:\n%s", want, data)
	}
}

func TestStoreLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facility.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	store := NewStore(path)
	if _, _, err := store.Load(); err == nil {
		t.Error("Expected an error for malformed content")
	}
}

func TestStoreLoadRejectsBadSpot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facility.json")
	content := `{"version":1,"sessions":{"12가3456":{"start_time":"2026-03-01 10:00","end_time":"","is_walk_in":true,"floor":9,"position_num":1,"vehicle_class":"none"}},"history":{}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	store := NewStore(path)
	if _, _, err := store.Load(); err == nil {
		t.Error("Expected an error for an out-of-range floor")
	}
}

func TestRegistryLoadStateRebuildsGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facility.json")
	store := NewStore(path)

	seed := NewRegistry(store, zerolog.Nop())
	if _, err := seed.Enter("12가3456", 1, 1, 1, ClassNone); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	restored := NewRegistry(store, zerolog.Nop())
	if err := restored.LoadState(); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	if restored.ActiveSessions() != 1 {
		t.Errorf("Expected 1 restored session, got %d", restored.ActiveSessions())
	}
	if _, err := restored.Enter("34나7890", 1, 1, 1, ClassNone); !errors.Is(err, ErrSpotOccupied) {
		t.Errorf("Expected restored grid to reject the occupied spot, got %v", err)
	}
}

func TestRegistrySaveFailureKeepsMutation(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	// The state path nests under a regular file, so every save fails.
	store := NewStore(filepath.Join(blocker, "nested", "facility.json"))
	r := NewRegistry(store, zerolog.Nop())

	sess, err := r.Enter("12가3456", 1, 1, 1, ClassNone)
	if !errors.Is(err, ErrSaveFailed) {
		t.Errorf("Expected ErrSaveFailed, got %v", err)
	}
	if sess == nil {
		t.Fatal("Expected the session to be created despite the failed save")
	}
	if r.ActiveSessions() != 1 {
		t.Errorf("Expected the mutation to be kept, got %d sessions", r.ActiveSessions())
	}
}
