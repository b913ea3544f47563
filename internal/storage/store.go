package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/graphio"
	"github.com/san-kum/forcelayout/internal/metrics"
)

const (
	metadataFile = "metadata.json"
	layoutFile   = "layout.json"
	historyFile  = "history.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Graph      string             `json:"graph,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Nodes      int                `json:"nodes"`
	Links      int                `json:"links"`
	Ticks      int                `json:"ticks"`
	Stabilized bool               `json:"stabilized"`
	Elapsed    time.Duration      `json:"elapsed"`
	Config     dynamo.Config      `json:"config"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Run is everything persisted for one layout run.
type Run struct {
	Meta    RunMetadata
	Layout  dynamo.Snapshot
	History []metrics.Sample
}

// Save writes run into a fresh directory and returns its id. Meta.ID and
// Meta.Timestamp are filled in when empty.
func (s *Store) Save(run *Run) (string, error) {
	meta := run.Meta
	if meta.Name == "" {
		meta.Name = "run"
	}
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%s", meta.Name, uuid.NewString()[:8])
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Nodes = len(run.Layout.Nodes)
	meta.Links = len(run.Layout.Links)
	meta.Ticks = run.Layout.TickCount

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeLayout(filepath.Join(runDir, layoutFile), run.Layout); err != nil {
		return "", err
	}
	if err := writeHistory(filepath.Join(runDir, historyFile), run.History); err != nil {
		return "", err
	}

	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeLayout(path string, snap dynamo.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return graphio.WriteLayout(f, snap)
}

func writeHistory(path string, history []metrics.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"tick", "alpha", "energy"}); err != nil {
		return err
	}
	for _, h := range history {
		row := []string{
			strconv.Itoa(h.Tick),
			strconv.FormatFloat(h.Alpha, 'g', -1, 64),
			strconv.FormatFloat(h.Energy, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every run, newest first. Directories
// without readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse %s metadata: %w", runID, err)
	}

	return &meta, nil
}

func (s *Store) LoadLayout(runID string) (dynamo.Snapshot, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, layoutFile))
	if err != nil {
		if os.IsNotExist(err) {
			return dynamo.Snapshot{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return dynamo.Snapshot{}, err
	}
	defer f.Close()
	return graphio.ReadLayout(f)
}

// LoadRun reads metadata, layout and history of runID.
func (s *Store) LoadRun(runID string) (*Run, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	layout, err := s.LoadLayout(runID)
	if err != nil {
		return nil, err
	}
	history, err := s.LoadHistory(runID)
	if err != nil {
		return nil, err
	}
	return &Run{Meta: *meta, Layout: layout, History: history}, nil
}

// LoadHistory parses history.csv. Malformed rows are skipped.
func (s *Store) LoadHistory(runID string) ([]metrics.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, historyFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return []metrics.Sample{}, nil
	}

	history := make([]metrics.Sample, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 3 {
			continue
		}
		tick, err := strconv.Atoi(record[0])
		if err != nil {
			continue
		}
		alpha, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			continue
		}
		energy, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			continue
		}
		history = append(history, metrics.Sample{Tick: tick, Alpha: alpha, Energy: energy})
	}

	return history, nil
}
