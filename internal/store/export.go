package store

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/forcelayout/internal/dynamo"
	"github.com/san-kum/forcelayout/internal/metrics"
	"github.com/san-kum/forcelayout/internal/storage"
)

type ExportData struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Graph      string             `json:"graph,omitempty"`
	Ticks      int                `json:"ticks"`
	Stabilized bool               `json:"stabilized"`
	Config     dynamo.Config      `json:"config"`
	Metrics    map[string]float64 `json:"metrics"`
	Groups     []metrics.Group    `json:"groups,omitempty"`
	Alpha      []float64          `json:"alpha"`
	Energy     []float64          `json:"energy"`
	Layout     dynamo.Snapshot    `json:"layout"`
}

func NewExport(run *storage.Run) ExportData {
	data := ExportData{
		ID:         run.Meta.ID,
		Name:       run.Meta.Name,
		Graph:      run.Meta.Graph,
		Ticks:      run.Meta.Ticks,
		Stabilized: run.Meta.Stabilized,
		Config:     run.Meta.Config,
		Metrics:    run.Meta.Metrics,
		Groups:     metrics.Groups(run.Layout.Nodes),
		Alpha:      make([]float64, len(run.History)),
		Energy:     make([]float64, len(run.History)),
		Layout:     run.Layout,
	}

	for i, h := range run.History {
		data.Alpha[i] = h.Alpha
		data.Energy[i] = h.Energy
	}
	return data
}

func ExportJSON(path string, run *storage.Run) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, run)
}

// WriteJSON writes the export of run to w as indented JSON.
func WriteJSON(w io.Writer, run *storage.Run) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExport(run))
}
