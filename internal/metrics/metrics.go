// SPDX-License-Identifier: LGPL-3.0-or-later

// Package metrics exposes Prometheus counters and histograms for the
// handshake, record-layer and crypto operations. session drives the crypto,
// replay and frame-size metrics around each call into the crypto package;
// transport/ws drives the handshake, connection and message metrics.
// crypto, wire and payload do not import it.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "obscuraproto"

// Registry is the Prometheus registry every metric in this package is
// registered against. A dedicated registry (rather than the global
// default) lets a host process mount Handler without picking up Go
// runtime metrics it did not ask for.
var Registry = prometheus.NewRegistry()
