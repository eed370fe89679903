// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcore

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestMetricsTrackedWithoutRegisterer(t *testing.T) {
	m := newMetrics(nil)
	m.connections.Inc()
	m.connections.Inc()
	m.connections.Dec()
	if got := gaugeValue(t, m.connections); got != 1 {
		t.Fatalf("connections = %v, want 1", got)
	}
}

func TestMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg)
	m.listeners.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "netcore_listeners" {
			found = true
		}
	}
	if !found {
		t.Fatal("netcore_listeners was not registered")
	}
}
