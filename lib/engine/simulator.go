// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/thevirtualbrain/tvb-hpc/lib/netutil"
)

// ConfigSuffix is appended to the simulator gid to name its
// configuration file in the plaintext directory.
const ConfigSuffix = ".json"

// maxConfigSize bounds the configuration file read into memory.
const maxConfigSize = 16 << 20

// Simulator is the configuration of one simulation run.
type Simulator struct {
	GID              string         `json:"gid"`
	Model            Component      `json:"model"`
	Connectivity     Connectivity   `json:"connectivity"`
	Integrator       Integrator     `json:"integrator"`
	SimulationLength float64        `json:"simulation_length"`
	Monitors         []Monitor      `json:"monitors"`
	Parameters       map[string]any `json:"parameters,omitempty"`

	// Source is the file the configuration was read from.
	Source string `json:"-"`
}

// Component names a registered type with its parameters.
type Component struct {
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Connectivity references the structural connectivity artifact.
type Connectivity struct {
	// File is the artifact name in the plaintext directory. Empty
	// means the engine uses its default connectivity.
	File string `json:"file,omitempty"`

	Regions int `json:"regions,omitempty"`
}

// Integrator is the numerical scheme and its step in milliseconds.
type Integrator struct {
	Type       string         `json:"type"`
	DT         float64        `json:"dt"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Monitor records the simulated state. A zero Period samples every
// integration step.
type Monitor struct {
	Type       string         `json:"type"`
	Period     float64        `json:"period,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Steps returns the number of integration steps of the run.
func (simulator *Simulator) Steps() int64 {
	return int64(math.Ceil(simulator.SimulationLength / simulator.Integrator.DT))
}

// Serializer reads simulator configurations from a plaintext
// directory.
type Serializer struct {
	registry *Registry
}

// NewSerializer returns a Serializer validating component types
// against registry. The registry must be populated before use.
func NewSerializer(registry *Registry) *Serializer {
	return &Serializer{registry: registry}
}

// DeserializeSimulator reads <plainDir>/<gid>.json. Comments and
// trailing commas are accepted.
func (serializer *Serializer) DeserializeSimulator(gid, plainDir string) (*Simulator, error) {
	path := filepath.Join(plainDir, gid+ConfigSuffix)
	data, err := readConfig(path)
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()
	var simulator Simulator
	if err := decoder.Decode(&simulator); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	simulator.Source = path

	if simulator.GID == "" {
		simulator.GID = gid
	} else if simulator.GID != gid {
		return nil, fmt.Errorf("%s belongs to simulator %q, expected %q", path, simulator.GID, gid)
	}
	if err := serializer.validate(&simulator, plainDir); err != nil {
		return nil, fmt.Errorf("invalid simulator configuration %s: %w", path, err)
	}
	return &simulator, nil
}

func readConfig(path string) ([]byte, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("simulator configuration not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("opening simulator configuration: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading simulator configuration: %w", err)
	}
	if len(data) > maxConfigSize {
		return nil, fmt.Errorf("simulator configuration %s exceeds %d bytes", path, maxConfigSize)
	}
	return data, nil
}

func (serializer *Serializer) validate(simulator *Simulator, plainDir string) error {
	var errs []error

	if !(simulator.Integrator.DT > 0) || math.IsInf(simulator.Integrator.DT, 0) {
		errs = append(errs, fmt.Errorf("integrator.dt must be positive, got %v", simulator.Integrator.DT))
	}
	if !(simulator.SimulationLength > 0) || math.IsInf(simulator.SimulationLength, 0) {
		errs = append(errs, fmt.Errorf("simulation_length must be positive, got %v", simulator.SimulationLength))
	}

	errs = append(errs, serializer.checkType(KindModel, "model.type", simulator.Model.Type))
	errs = append(errs, serializer.checkType(KindIntegrator, "integrator.type", simulator.Integrator.Type))
	if len(simulator.Monitors) == 0 {
		errs = append(errs, fmt.Errorf("at least one monitor is required"))
	}
	for index, monitor := range simulator.Monitors {
		errs = append(errs, serializer.checkType(KindMonitor, fmt.Sprintf("monitors[%d].type", index), monitor.Type))
		if monitor.Period < 0 {
			errs = append(errs, fmt.Errorf("monitors[%d].period must not be negative", index))
		}
	}

	if simulator.Connectivity.File != "" {
		name, err := netutil.SafeBaseName(simulator.Connectivity.File)
		switch {
		case err != nil || name != simulator.Connectivity.File:
			errs = append(errs, fmt.Errorf("connectivity.file %q must be a file name in the working directory", simulator.Connectivity.File))
		default:
			if _, err := os.Stat(filepath.Join(plainDir, name)); err != nil {
				errs = append(errs, fmt.Errorf("connectivity.file: %w", err))
			}
		}
	}
	if simulator.Connectivity.Regions < 0 {
		errs = append(errs, fmt.Errorf("connectivity.regions must not be negative"))
	}

	return errors.Join(errs...)
}

func (serializer *Serializer) checkType(kind Kind, field, name string) error {
	if name == "" {
		return fmt.Errorf("%s is required", field)
	}
	if !serializer.registry.Known(kind, name) {
		return fmt.Errorf("%s: unknown %s %q", field, kind, name)
	}
	return nil
}
