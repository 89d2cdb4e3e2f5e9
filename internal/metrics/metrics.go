// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package metrics exposes the relay's Prometheus counters, gauges, and
// histograms under a single registry and namespace.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "chat_relay"

// Registry is the relay's dedicated Prometheus registry; all promauto
// collectors in this package register against it rather than the global
// default registry, so Handler() exposes exactly this package's metrics.
var Registry = prometheus.NewRegistry()
