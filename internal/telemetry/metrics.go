// Copyright 2025 Alexander Alten (novatechflow), NovaTechflow (novatechflow.com).
// This project is supported and financed by Scalytics, Inc. (www.scalytics.io).
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the bag reader collectors.
type Metrics struct {
	chunkLoads        *prometheus.CounterVec
	chunkLoadSeconds  *prometheus.HistogramVec
	decompressedBytes *prometheus.CounterVec
	messages          *prometheus.CounterVec
	replayed          *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		chunkLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bagkit_chunk_loads_total",
			Help: "Chunk decompressions labeled by compression and result.",
		}, []string{"compression", "result"}),
		chunkLoadSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bagkit_chunk_load_seconds",
			Help:    "Time spent decompressing a chunk.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"compression"}),
		decompressedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bagkit_decompressed_bytes_total",
			Help: "Bytes produced by chunk decompression.",
		}, []string{"compression"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bagkit_messages_read_total",
			Help: "Messages yielded by bag queries labeled by result.",
		}, []string{"result"}),
		replayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bagkit_replay_records_total",
			Help: "Records produced to Kafka by replay labeled by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.chunkLoads, m.chunkLoadSeconds, m.decompressedBytes, m.messages, m.replayed)
	return m
}

// ObserveChunkLoad matches bag.Options.OnChunkLoad.
func (m *Metrics) ObserveChunkLoad(compression string, size int, elapsed time.Duration, err error) {
	if err != nil {
		m.chunkLoads.WithLabelValues(compression, "error").Inc()
		return
	}
	m.chunkLoads.WithLabelValues(compression, "ok").Inc()
	m.chunkLoadSeconds.WithLabelValues(compression).Observe(elapsed.Seconds())
	m.decompressedBytes.WithLabelValues(compression).Add(float64(size))
}

// ObserveMessage counts one message read from a query.
func (m *Metrics) ObserveMessage(err error) {
	m.messages.WithLabelValues(result(err)).Inc()
}

// ObserveReplay counts one produced record.
func (m *Metrics) ObserveReplay(err error) {
	m.replayed.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
