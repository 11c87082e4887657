// Copyright 2022 Overlaynet Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package topostore

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/overlaynet/topod/pkg/metrics"
)

// NewOperationMetrics creates and registers the store operation counter,
// labeled by operation and result kind.
func NewOperationMetrics() metrics.Counter {
	return metrics.NewPromCounterFrom(prometheus.CounterOpts{
		Namespace: "topod",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Total topology store operations by operation and result.",
	}, []string{"op", "result"})
}
