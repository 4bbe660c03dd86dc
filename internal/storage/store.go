// Package storage persists rollout trajectories for the CLI: one
// directory per run holding JSON metadata and a CSV state table. The
// engine itself owns no persisted format; this is the trajectory-storage
// collaborator around it.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mechsim/rigidsim/internal/mech"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	System      string             `json:"system"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Steps       int                `json:"steps"`
	Integrator  string             `json:"integrator"`
	Metrics     map[string]float64 `json:"metrics"`
	EnergyDrift float64            `json:"energy_drift"`
}

// Save writes metadata.json and states.csv for a finished rollout and
// returns the generated run id.
func (s *Store) Save(system, integrator string, dt float64, seed int64, result *mech.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", system, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		System:      system,
		Timestamp:   time.Now(),
		Seed:        seed,
		Dt:          dt,
		Steps:       result.StepsTaken,
		Integrator:  integrator,
		Metrics:     result.Metrics,
		EnergyDrift: result.EnergyDrift,
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(runDir, "states.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if len(result.States) == 0 {
		return runID, nil
	}

	header := []string{"time"}
	for i := range result.States[0].Q {
		header = append(header, fmt.Sprintf("q%d", i))
	}
	for i := range result.States[0].P {
		header = append(header, fmt.Sprintf("p%d", i))
	}
	header = append(header, "energy", "residual")
	if err := w.Write(header); err != nil {
		return "", err
	}

	for i, st := range result.States {
		row := []string{strconv.FormatFloat(result.Times[i], 'f', 6, 64)}
		for _, val := range st.Q {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		for _, val := range st.P {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		row = append(row,
			strconv.FormatFloat(result.Energies[i], 'g', -1, 64),
			strconv.FormatFloat(result.Residuals[i], 'g', -1, 64))
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

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

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadColumns reads states.csv back as named columns.
func (s *Store) LoadColumns(runID string) (header []string, columns [][]float64, err error) {
	csvPath := filepath.Join(s.baseDir, runID, "states.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("run %s has no states", runID)
	}

	header = records[0]
	columns = make([][]float64, len(header))
	for i := 1; i < len(records); i++ {
		for c, field := range records[i] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, err
			}
			columns[c] = append(columns[c], v)
		}
	}
	return header, columns, nil
}
