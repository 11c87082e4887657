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

package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/overlaynet/topod/control/auth"
	"github.com/overlaynet/topod/control/topostore"
	"github.com/overlaynet/topod/pkg/topology"
)

// newOpsRouter serves the operational endpoint: liveness, Prometheus metrics
// and two read-only debug handlers for troubleshooting ownership walks and
// authorization decisions. It is not the tenant-facing API.
func newOpsRouter(store *topostore.Store, authorizer *auth.Authorizer) chi.Router {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if _, err := store.ListTenants(req.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ok")
	})
	r.Method("GET", "/metrics", promhttp.Handler())
	r.Get("/debug/owner/{kind}/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, err := uuid.Parse(chi.URLParam(req, "id"))
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		kind := topology.Kind(chi.URLParam(req, "kind"))
		tenant, err := store.Owner(req.Context(), kind, id)
		if err != nil {
			status := http.StatusInternalServerError
			if auth.IsNotFound(err) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, map[string]string{"tenantId": tenant})
	})
	r.Get("/debug/authz/{kind}/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, err := uuid.Parse(chi.URLParam(req, "id"))
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		identity := auth.Identity{TenantID: req.URL.Query().Get("tenant")}
		if req.URL.Query().Get("admin") == "true" {
			identity.Roles = []string{auth.RoleAdmin}
		}
		action := auth.Action(req.URL.Query().Get("action"))
		if action == "" {
			action = auth.ActionRead
		}
		ref := auth.Ref{Kind: topology.Kind(chi.URLParam(req, "kind")), ID: id}
		allowed, tenant, err := authorizer.Authorize(req.Context(), identity, action, ref)
		if err != nil {
			status := http.StatusInternalServerError
			if auth.IsNotFound(err) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, map[string]any{"allowed": allowed, "tenantId": tenant})
	})
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
