package facility

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TimeLayout is the timestamp format used in the persisted state file.
const TimeLayout = "2006-01-02 15:04"

const storeVersion = 1

// sessionRecord is the on-disk shape of a session. EndTime is empty
// for active sessions.
type sessionRecord struct {
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsWalkIn    bool   `json:"is_walk_in"`
	Floor       int    `json:"floor"`
	PositionNum int    `json:"position_num"`
	Class       string `json:"vehicle_class"`
	PlanDays    int    `json:"plan_days,omitempty"`
}

type historyEntry struct {
	sessionRecord
	Fee int `json:"fee"`
}

// stateFile is the persistence envelope with an explicit version field.
type stateFile struct {
	Version  int                       `json:"version"`
	Sessions map[string]sessionRecord  `json:"sessions"`
	History  map[string][]historyEntry `json:"history"`
}

// Store serializes the session registry and history ledger to a JSON
// file. Load is called once at startup; Save after every mutating
// operation.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Save writes the given state, replacing the file via temp-file
// rename so a crash mid-write leaves the previous file intact.
func (s *Store) Save(sessions map[string]*Session, history map[string][]HistoryRecord) error {
	doc := stateFile{
		Version:  storeVersion,
		Sessions: make(map[string]sessionRecord, len(sessions)),
		History:  make(map[string][]historyEntry, len(history)),
	}
	for id, sess := range sessions {
		doc.Sessions[id] = encodeSession(sess, time.Time{})
	}
	for id, records := range history {
		entries := make([]historyEntry, 0, len(records))
		for _, rec := range records {
			entries = append(entries, historyEntry{
				sessionRecord: encodeSession(&rec.Session, rec.End),
				Fee:           rec.Fee,
			})
		}
		doc.History[id] = entries
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Load reads the state file. A missing file yields two empty maps;
// malformed content is an error the caller treats as fatal at startup.
func (s *Store) Load() (map[string]*Session, map[string][]HistoryRecord, error) {
	sessions := make(map[string]*Session)
	history := make(map[string][]HistoryRecord)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return sessions, history, nil
		}
		return nil, nil, fmt.Errorf("read state file: %w", err)
	}

	var doc stateFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse state file %s: %w", s.path, err)
	}

	for id, rec := range doc.Sessions {
		sess, _, err := decodeSession(id, rec)
		if err != nil {
			return nil, nil, fmt.Errorf("session %s: %w", id, err)
		}
		sessions[id] = sess
	}
	for id, entries := range doc.History {
		records := make([]HistoryRecord, 0, len(entries))
		for i, entry := range entries {
			sess, end, err := decodeSession(id, entry.sessionRecord)
			if err != nil {
				return nil, nil, fmt.Errorf("history %s[%d]: %w", id, i, err)
			}
			records = append(records, HistoryRecord{Session: *sess, Fee: entry.Fee, End: end})
		}
		history[id] = records
	}
	return sessions, history, nil
}

func encodeSession(sess *Session, end time.Time) sessionRecord {
	rec := sessionRecord{
		StartTime:   sess.Start.Format(TimeLayout),
		IsWalkIn:    sess.WalkIn,
		Floor:       sess.Floor,
		PositionNum: sess.PositionNum,
		Class:       string(sess.Class),
		PlanDays:    sess.PlanDays,
	}
	if !end.IsZero() {
		rec.EndTime = end.Format(TimeLayout)
	}
	return rec
}

func decodeSession(id string, rec sessionRecord) (*Session, time.Time, error) {
	start, err := time.ParseInLocation(TimeLayout, rec.StartTime, time.Local)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("bad start time %q: %w", rec.StartTime, err)
	}
	var end time.Time
	if rec.EndTime != "" {
		end, err = time.ParseInLocation(TimeLayout, rec.EndTime, time.Local)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("bad end time %q: %w", rec.EndTime, err)
		}
	}
	class, ok := ParseVehicleClass(rec.Class)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("bad vehicle class %q", rec.Class)
	}
	if rec.Floor < 1 || rec.Floor > Floors || rec.PositionNum < 1 || rec.PositionNum > Rows*Cols {
		return nil, time.Time{}, fmt.Errorf("bad spot %d-%d", rec.Floor, rec.PositionNum)
	}
	return &Session{
		VehicleID:   id,
		Start:       start,
		Floor:       rec.Floor,
		PositionNum: rec.PositionNum,
		WalkIn:      rec.IsWalkIn,
		Class:       class,
		PlanDays:    rec.PlanDays,
	}, end, nil
}
