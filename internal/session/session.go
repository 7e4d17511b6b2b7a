// Package session persists run transcripts as JSONL files.
package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vinayprograms/pursuit/internal/config"
	"github.com/vinayprograms/pursuit/internal/controller"
	"github.com/vinayprograms/pursuit/internal/mission"
)

// ErrNotFound is returned when no transcript exists for an ID.
var ErrNotFound = errors.New("session not found")

// EventStatus records a run status change. Log entries use their log type
// (analysis, plan, ...) as the event type.
const EventStatus = "status"

// Session is the transcript of one run.
type Session struct {
	ID             string            `json:"id"`
	Goal           string            `json:"goal"`
	NormalizedGoal string            `json:"normalized_goal"`
	Config         config.Loop       `json:"config"`
	Assumptions    []string          `json:"assumptions"`
	Status         string            `json:"status"`
	Reason         string            `json:"reason,omitempty"`
	Iterations     int               `json:"iterations"`
	Subgoals       []mission.Subgoal `json:"subgoals"`
	Events         []Event           `json:"events"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`

	seqCounter uint64
	mu         sync.Mutex
}

// Event is one line of the transcript.
type Event struct {
	SeqID     uint64    `json:"seq"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	LogID     string `json:"log_id,omitempty"`
	Iteration int    `json:"iteration"`
	SubgoalID string `json:"subgoal_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// IsLog reports whether the event mirrors a controller log entry.
func (e Event) IsLog() bool {
	return e.Type != EventStatus
}

// FromState builds a transcript holding every log entry of st.
func FromState(st controller.State) *Session {
	now := time.Now()
	sess := &Session{
		ID:        st.RunID,
		Events:    []Event{},
		CreatedAt: now,
	}
	if st.StartedAt != nil {
		sess.CreatedAt = *st.StartedAt
	}
	sess.Sync(st)
	sess.AddLogs(st.Logs)
	return sess
}

// Sync copies the run-level fields of st into the transcript.
func (s *Session) Sync(st controller.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Goal = st.Goal
	s.NormalizedGoal = st.NormalizedGoal
	s.Config = st.Config
	s.Assumptions = append([]string(nil), st.Assumptions...)
	s.Status = string(st.Status)
	s.Reason = st.Reason
	s.Iterations = st.Iteration
	s.Subgoals = append([]mission.Subgoal(nil), st.Subgoals...)
	s.StartedAt = st.StartedAt
	s.CompletedAt = st.CompletedAt
	s.UpdatedAt = time.Now()
}

// AddLogs appends one event per log entry.
func (s *Session) AddLogs(logs []controller.LogEntry) {
	for _, l := range logs {
		s.AddEvent(Event{
			Type:      string(l.Type),
			Timestamp: l.Timestamp,
			LogID:     l.ID,
			Iteration: l.Iteration,
			SubgoalID: l.SubgoalID,
			Content:   l.Content,
		})
	}
}

// AddEvent appends an event with the next sequence number.
func (s *Session) AddEvent(event Event) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.SeqID = atomic.AddUint64(&s.seqCounter, 1)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.Events = append(s.Events, event)
	s.UpdatedAt = time.Now()
	return event.SeqID
}

// CurrentSeqID returns the last used sequence number, 0 when empty.
func (s *Session) CurrentSeqID() uint64 {
	return atomic.LoadUint64(&s.seqCounter)
}

// Store is the interface for transcript persistence.
type Store interface {
	Save(sess *Session) error
	Load(id string) (*Session, error)
}

// Manager creates and updates transcripts.
type Manager struct {
	store Store
	mu    sync.Mutex
}

// NewManager creates a new session manager.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Create starts a transcript for st and saves it.
func (m *Manager) Create(st controller.State) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st.RunID == "" {
		return nil, fmt.Errorf("cannot create session: run has no id")
	}
	sess := FromState(st)
	if err := m.store.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a transcript by run ID.
func (m *Manager) Get(id string) (*Session, error) {
	return m.store.Load(id)
}

// Update saves changes to a transcript.
func (m *Manager) Update(sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess.UpdatedAt = time.Now()
	return m.store.Save(sess)
}

// JSONL record types.
const (
	RecordTypeHeader = "header"
	RecordTypeEvent  = "event"
	RecordTypeFooter = "footer"
)

// JSONLRecord wraps one JSONL line with its record type.
type JSONLRecord struct {
	RecordType string `json:"_type"`

	// header
	ID             string       `json:"id,omitempty"`
	Goal           string       `json:"goal,omitempty"`
	NormalizedGoal string       `json:"normalized_goal,omitempty"`
	Config         *config.Loop `json:"config,omitempty"`
	Assumptions    []string     `json:"assumptions,omitempty"`
	CreatedAt      time.Time    `json:"created_at,omitempty"`

	// event
	*Event `json:",omitempty"`

	// footer
	Status      string            `json:"status,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Iterations  int               `json:"iterations,omitempty"`
	Subgoals    []mission.Subgoal `json:"subgoals,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at,omitempty"`
}

// FileStore keeps one <id>.jsonl file per run.
type FileStore struct {
	dir string
}

// NewFileStore creates a new file-based store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the transcript file for id.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+".jsonl")
}

// Save rewrites the transcript. The file is replaced atomically so a
// concurrent reader never sees a half-written session.
func (s *FileStore) Save(sess *Session) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	var buf bytes.Buffer
	cfg := sess.Config
	header := JSONLRecord{
		RecordType:     RecordTypeHeader,
		ID:             sess.ID,
		Goal:           sess.Goal,
		NormalizedGoal: sess.NormalizedGoal,
		Config:         &cfg,
		Assumptions:    sess.Assumptions,
		CreatedAt:      sess.CreatedAt,
	}
	if err := writeLine(&buf, header); err != nil {
		return err
	}

	for _, evt := range sess.Events {
		evtCopy := evt
		if err := writeLine(&buf, JSONLRecord{RecordType: RecordTypeEvent, Event: &evtCopy}); err != nil {
			return err
		}
	}

	footer := JSONLRecord{
		RecordType:  RecordTypeFooter,
		Status:      sess.Status,
		Reason:      sess.Reason,
		Iterations:  sess.Iterations,
		Subgoals:    sess.Subgoals,
		StartedAt:   sess.StartedAt,
		CompletedAt: sess.CompletedAt,
		UpdatedAt:   sess.UpdatedAt,
	}
	if err := writeLine(&buf, footer); err != nil {
		return err
	}

	path := s.Path(sess.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func writeLine(w io.Writer, record JSONLRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Load reads a transcript by run ID.
func (s *FileStore) Load(id string) (*Session, error) {
	sess, err := LoadFile(s.Path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, err
}

// LoadFile reads a transcript from an arbitrary path.
func LoadFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses a JSONL transcript.
func Read(r io.Reader) (*Session, error) {
	sess := &Session{Events: []Event{}}

	// bufio.Reader has no line length limit.
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("error reading JSONL: %w", err)
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if perr := parseJSONLLine(trimmed, sess); perr != nil {
				return nil, perr
			}
		}
		if err == io.EOF {
			break
		}
	}

	if len(sess.Events) > 0 {
		sess.seqCounter = sess.Events[len(sess.Events)-1].SeqID
	}
	return sess, nil
}

func parseJSONLLine(line []byte, sess *Session) error {
	var record JSONLRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return fmt.Errorf("failed to parse JSONL line: %w", err)
	}

	switch record.RecordType {
	case RecordTypeHeader:
		sess.ID = record.ID
		sess.Goal = record.Goal
		sess.NormalizedGoal = record.NormalizedGoal
		if record.Config != nil {
			sess.Config = *record.Config
		}
		sess.Assumptions = record.Assumptions
		sess.CreatedAt = record.CreatedAt

	case RecordTypeEvent:
		if record.Event != nil {
			sess.Events = append(sess.Events, *record.Event)
		}

	case RecordTypeFooter:
		sess.Status = record.Status
		sess.Reason = record.Reason
		sess.Iterations = record.Iterations
		sess.Subgoals = record.Subgoals
		sess.StartedAt = record.StartedAt
		sess.CompletedAt = record.CompletedAt
		sess.UpdatedAt = record.UpdatedAt
	}
	return nil
}
