// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package cosim

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShape means an array does not have the dimensions the
	// monitor was configured with.
	ErrShape = errors.New("state has the wrong shape")

	// ErrOutOfSync means samples or windows arrived out of order.
	ErrOutOfSync = errors.New("co-simulation is out of sync")

	// ErrFinished means the monitor was flushed and takes no more
	// samples or windows.
	ErrFinished = errors.New("co-simulation has finished")
)

// State is one step of simulated state indexed [variable][node][mode].
type State [][][]float64

// Config describes the simulation a Monitor observes.
type Config struct {
	// DT is the integration step.
	DT float64

	// SyncTime is the simulated time between two exchanges. It is
	// rounded to a whole number of steps.
	SyncTime float64

	// ProxyNodes are the indices of the nodes supplied by the proxy.
	ProxyNodes []int

	Variables int
	Nodes     int
	Modes     int
}

// Window is the proxy's contribution for one synchronization window.
type Window struct {
	// Timestamps holds the simulated time of each step.
	Timestamps []float64 `cbor:"timestamps"`

	// ProxyState is indexed [step][variable][proxy][mode], proxies in
	// Config.ProxyNodes order.
	ProxyState [][][][]float64 `cbor:"proxy_state"`

	// Final ends the run: the session answers with the record of the
	// last window instead of starting a new one.
	Final bool `cbor:"final,omitempty"`
}

// Record is the state recorded during one completed window.
type Record struct {
	Timestamps []float64 `cbor:"timestamps"`

	// States is indexed [step][variable][node][mode].
	States []State `cbor:"states"`
}

// Monitor records the state of every step and injects proxy-node
// state. It is not safe for concurrent use.
type Monitor struct {
	config     Config
	windowSize int

	// nextStep is the step the next Sample must carry. Steps count
	// from 1; step k is at time k*DT.
	nextStep int64

	// windowStart is the step before the first step of the current
	// window.
	windowStart int64

	proxy    *Window
	recorded Record
	finished bool
}

// NewMonitor validates config and returns a Monitor positioned before
// step 1.
func NewMonitor(config Config) (*Monitor, error) {
	if !(config.DT > 0) || math.IsInf(config.DT, 0) {
		return nil, fmt.Errorf("cosim: dt must be positive, got %v", config.DT)
	}
	if config.Variables <= 0 || config.Nodes <= 0 || config.Modes <= 0 {
		return nil, fmt.Errorf("cosim: variables, nodes and modes must be positive, got %d, %d, %d",
			config.Variables, config.Nodes, config.Modes)
	}
	windowSize := int(math.Round(config.SyncTime / config.DT))
	if windowSize < 1 {
		return nil, fmt.Errorf("cosim: synchronization time %v is shorter than one step of %v", config.SyncTime, config.DT)
	}

	seen := make(map[int]bool, len(config.ProxyNodes))
	for _, node := range config.ProxyNodes {
		if node < 0 || node >= config.Nodes {
			return nil, fmt.Errorf("cosim: proxy node %d is out of range [0, %d)", node, config.Nodes)
		}
		if seen[node] {
			return nil, fmt.Errorf("cosim: proxy node %d is listed twice", node)
		}
		seen[node] = true
	}
	config.ProxyNodes = append([]int(nil), config.ProxyNodes...)

	return &Monitor{config: config, windowSize: windowSize, nextStep: 1}, nil
}

// WindowSize returns the number of steps per window.
func (monitor *Monitor) WindowSize() int {
	return monitor.windowSize
}

// Sample records the state of step and returns it with the proxy
// nodes overwritten by the proxy state of the current window, if any.
// The caller's state is not modified.
func (monitor *Monitor) Sample(step int64, state State) (State, error) {
	if monitor.finished {
		return nil, ErrFinished
	}
	if step != monitor.nextStep {
		return nil, fmt.Errorf("%w: sample for step %d, expected step %d", ErrOutOfSync, step, monitor.nextStep)
	}
	if len(monitor.recorded.States) == monitor.windowSize {
		return nil, fmt.Errorf("%w: window ending at step %d was not exchanged", ErrOutOfSync, step-1)
	}
	if err := monitor.checkState(state); err != nil {
		return nil, err
	}

	sample := cloneState(state)
	if monitor.proxy != nil {
		offset := step - monitor.windowStart - 1
		injected := monitor.proxy.ProxyState[offset]
		for variable := range sample {
			for position, node := range monitor.config.ProxyNodes {
				copy(sample[variable][node], injected[variable][position])
			}
		}
	}

	monitor.recorded.Timestamps = append(monitor.recorded.Timestamps, float64(step)*monitor.config.DT)
	monitor.recorded.States = append(monitor.recorded.States, sample)
	monitor.nextStep++
	return cloneState(sample), nil
}

// Exchange installs next as the proxy state of the coming window and
// returns the record of the window that just ended. Before the first
// step it returns an empty record.
//
// next must hold WindowSize() timestamps aligned on the coming steps
// and proxy state of shape [WindowSize()][Variables][len(ProxyNodes)][Modes].
// With no proxy nodes an empty Window is accepted.
func (monitor *Monitor) Exchange(next Window) (Record, error) {
	if monitor.finished {
		return Record{}, ErrFinished
	}
	recordedSteps := len(monitor.recorded.States)
	if recordedSteps != 0 && recordedSteps != monitor.windowSize {
		return Record{}, fmt.Errorf("%w: exchange after %d of %d steps", ErrOutOfSync, recordedSteps, monitor.windowSize)
	}

	start := monitor.nextStep - 1
	proxy, err := monitor.checkWindow(next, start)
	if err != nil {
		return Record{}, err
	}

	completed := monitor.recorded
	monitor.recorded = Record{}
	monitor.proxy = proxy
	monitor.windowStart = start
	return completed, nil
}

// Flush returns the record of the current window and finishes the
// monitor. The window may be partial when the run length is not a
// whole number of windows.
func (monitor *Monitor) Flush() (Record, error) {
	if monitor.finished {
		return Record{}, ErrFinished
	}
	completed := monitor.recorded
	monitor.recorded = Record{}
	monitor.proxy = nil
	monitor.finished = true
	return completed, nil
}

// Finished reports whether Flush was called.
func (monitor *Monitor) Finished() bool {
	return monitor.finished
}

// checkWindow validates next for the window following step start. It
// returns nil when the window carries no proxy state.
func (monitor *Monitor) checkWindow(next Window, start int64) (*Window, error) {
	proxies := len(monitor.config.ProxyNodes)
	if proxies == 0 && len(next.Timestamps) == 0 && len(next.ProxyState) == 0 {
		return nil, nil
	}

	if len(next.Timestamps) != monitor.windowSize {
		return nil, fmt.Errorf("%w: %d timestamps for a window of %d steps", ErrShape, len(next.Timestamps), monitor.windowSize)
	}
	tolerance := monitor.config.DT / 2
	for index, timestamp := range next.Timestamps {
		expected := float64(start+int64(index)+1) * monitor.config.DT
		if math.Abs(timestamp-expected) > tolerance {
			return nil, fmt.Errorf("%w: timestamp %d is %v, expected %v", ErrOutOfSync, index, timestamp, expected)
		}
	}

	if proxies == 0 && len(next.ProxyState) == 0 {
		return nil, nil
	}
	if len(next.ProxyState) != monitor.windowSize {
		return nil, fmt.Errorf("%w: proxy state has %d steps, want %d", ErrShape, len(next.ProxyState), monitor.windowSize)
	}
	for step, variables := range next.ProxyState {
		if len(variables) != monitor.config.Variables {
			return nil, fmt.Errorf("%w: proxy step %d has %d variables, want %d", ErrShape, step, len(variables), monitor.config.Variables)
		}
		for variable, nodes := range variables {
			if len(nodes) != proxies {
				return nil, fmt.Errorf("%w: proxy step %d variable %d has %d proxies, want %d", ErrShape, step, variable, len(nodes), proxies)
			}
			for proxy, modes := range nodes {
				if len(modes) != monitor.config.Modes {
					return nil, fmt.Errorf("%w: proxy step %d variable %d proxy %d has %d modes, want %d",
						ErrShape, step, variable, proxy, len(modes), monitor.config.Modes)
				}
			}
		}
	}
	if proxies == 0 {
		return nil, nil
	}
	return &next, nil
}

func (monitor *Monitor) checkState(state State) error {
	if len(state) != monitor.config.Variables {
		return fmt.Errorf("%w: %d variables, want %d", ErrShape, len(state), monitor.config.Variables)
	}
	for variable, nodes := range state {
		if len(nodes) != monitor.config.Nodes {
			return fmt.Errorf("%w: variable %d has %d nodes, want %d", ErrShape, variable, len(nodes), monitor.config.Nodes)
		}
		for node, modes := range nodes {
			if len(modes) != monitor.config.Modes {
				return fmt.Errorf("%w: variable %d node %d has %d modes, want %d", ErrShape, variable, node, len(modes), monitor.config.Modes)
			}
		}
	}
	return nil
}

func cloneState(state State) State {
	clone := make(State, len(state))
	for variable, nodes := range state {
		clone[variable] = make([][]float64, len(nodes))
		for node, modes := range nodes {
			clone[variable][node] = append([]float64(nil), modes...)
		}
	}
	return clone
}
