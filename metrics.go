// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcore

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds a Core's Prometheus collectors. A Core always tracks
// these counters internally; WithMetrics additionally registers them with
// a Registerer so they are exposed.
type Metrics struct {
	connections     prometheus.Gauge
	listeners       prometheus.Gauge
	framesIn        prometheus.Counter
	framesOut       prometheus.Counter
	bytesIn         prometheus.Counter
	bytesOut        prometheus.Counter
	controlQueueLen prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "netcore", Name: "connections", Help: "Open stream connections.",
		}),
		listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "netcore", Name: "listeners", Help: "Bound listening sockets.",
		}),
		framesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netcore", Name: "frames_in_total", Help: "Frames decoded from connections.",
		}),
		framesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netcore", Name: "frames_out_total", Help: "Frames queued for connections.",
		}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netcore", Name: "bytes_in_total", Help: "Payload bytes decoded from connections.",
		}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netcore", Name: "bytes_out_total", Help: "Payload bytes queued for connections.",
		}),
		controlQueueLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "netcore", Name: "control_queue_length", Help: "Messages drained from the control channel on the last poll iteration.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.connections, m.listeners, m.framesIn, m.framesOut, m.bytesIn, m.bytesOut, m.controlQueueLen)
	}
	return m
}
