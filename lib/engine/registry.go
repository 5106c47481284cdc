// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Kind groups registered type names.
type Kind string

const (
	KindModel      Kind = "model"
	KindIntegrator Kind = "integrator"
	KindMonitor    Kind = "monitor"
)

// Registration is one type name an engine understands.
type Registration struct {
	Kind Kind
	Name string
}

// BuiltinTypes lists the components the standard engine ships with.
var BuiltinTypes = []Registration{
	{KindModel, "Generic2dOscillator"},
	{KindModel, "Kuramoto"},
	{KindModel, "JansenRit"},
	{KindModel, "WilsonCowan"},
	{KindModel, "ReducedWongWang"},
	{KindModel, "ReducedWongWangExcInh"},
	{KindModel, "Epileptor"},
	{KindModel, "Larter"},
	{KindModel, "Hopfield"},
	{KindModel, "ZetterbergJansen"},
	{KindIntegrator, "EulerDeterministic"},
	{KindIntegrator, "EulerStochastic"},
	{KindIntegrator, "HeunDeterministic"},
	{KindIntegrator, "HeunStochastic"},
	{KindIntegrator, "RungeKutta4thOrderDeterministic"},
	{KindMonitor, "Raw"},
	{KindMonitor, "SubSample"},
	{KindMonitor, "SpatialAverage"},
	{KindMonitor, "TemporalAverage"},
	{KindMonitor, "EEG"},
	{KindMonitor, "MEG"},
	{KindMonitor, "iEEG"},
	{KindMonitor, "Bold"},
}

// Registry holds the type names the engine accepts. It is populated
// once; a failed population is remembered and returned on every later
// call.
type Registry struct {
	source []Registration

	once  sync.Once
	err   error
	types map[Kind]map[string]struct{}
}

// NewRegistry returns an unpopulated registry that will register
// source.
func NewRegistry(source []Registration) *Registry {
	return &Registry{source: source}
}

// Populate registers every type. Safe to call repeatedly and
// concurrently.
func (registry *Registry) Populate() error {
	registry.once.Do(func() {
		types := make(map[Kind]map[string]struct{})
		for _, registration := range registry.source {
			switch registration.Kind {
			case KindModel, KindIntegrator, KindMonitor:
			default:
				registry.err = fmt.Errorf("registering %q: unknown kind %q", registration.Name, registration.Kind)
				return
			}
			if registration.Name == "" {
				registry.err = fmt.Errorf("registering %s: empty type name", registration.Kind)
				return
			}
			names := types[registration.Kind]
			if names == nil {
				names = make(map[string]struct{})
				types[registration.Kind] = names
			}
			if _, exists := names[registration.Name]; exists {
				registry.err = fmt.Errorf("registering %s %q: already registered", registration.Kind, registration.Name)
				return
			}
			names[registration.Name] = struct{}{}
		}
		registry.types = types
	})
	return registry.err
}

// Known reports whether name is registered under kind. It is false
// before a successful Populate.
func (registry *Registry) Known(kind Kind, name string) bool {
	_, ok := registry.types[kind][name]
	return ok
}

// Names returns the sorted names registered under kind.
func (registry *Registry) Names(kind Kind) []string {
	names := make([]string, 0, len(registry.types[kind]))
	for name := range registry.types[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
