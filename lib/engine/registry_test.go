// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistryPopulate(t *testing.T) {
	registry := NewRegistry(BuiltinTypes)
	if registry.Known(KindModel, "Generic2dOscillator") {
		t.Error("type known before Populate")
	}

	var group sync.WaitGroup
	for range 8 {
		group.Add(1)
		go func() {
			defer group.Done()
			if err := registry.Populate(); err != nil {
				t.Errorf("Populate: %v", err)
			}
		}()
	}
	group.Wait()

	if !registry.Known(KindModel, "Generic2dOscillator") {
		t.Error("Generic2dOscillator is not a known model")
	}
	if registry.Known(KindMonitor, "Generic2dOscillator") {
		t.Error("model name registered as a monitor")
	}
	want := []string{"EulerDeterministic", "EulerStochastic", "HeunDeterministic", "HeunStochastic", "RungeKutta4thOrderDeterministic"}
	if diff := cmp.Diff(want, registry.Names(KindIntegrator)); diff != "" {
		t.Errorf("integrators mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryErrorIsSticky(t *testing.T) {
	registry := NewRegistry([]Registration{
		{KindModel, "Kuramoto"},
		{KindModel, "Kuramoto"},
	})
	first := registry.Populate()
	if first == nil {
		t.Fatal("Populate accepted a duplicate registration")
	}
	if second := registry.Populate(); second != first {
		t.Errorf("second Populate = %v, want the first error %v", second, first)
	}
	if registry.Known(KindModel, "Kuramoto") {
		t.Error("failed registry reports known types")
	}
}

func TestRegistryRejectsBadEntries(t *testing.T) {
	for _, registration := range []Registration{
		{Kind("surface"), "Cortex"},
		{KindMonitor, ""},
	} {
		if err := NewRegistry([]Registration{registration}).Populate(); err == nil {
			t.Errorf("Populate accepted %+v", registration)
		}
	}
}
