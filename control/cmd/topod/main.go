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

// Command topod runs the topology control-plane data layer: it connects the
// process-wide coordination-store session, sets up the store skeleton and
// serves the operational endpoint. The CRUD surface itself is exposed to the
// boundary layer in-process via control/topostore and control/auth.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/overlaynet/topod/control/auth"
	"github.com/overlaynet/topod/control/config"
	"github.com/overlaynet/topod/control/topostore"
	"github.com/overlaynet/topod/pkg/log"
	"github.com/overlaynet/topod/pkg/topology"
	"github.com/overlaynet/topod/private/coord"
	"github.com/overlaynet/topod/private/coord/zk"
)

func main() {
	var configFile string

	cmd := &cobra.Command{
		Use:           "topod",
		Short:         "Virtual topology control-plane data layer",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "topod.toml", "config file")

	cmd.AddCommand(&cobra.Command{
		Use:   "sample-config",
		Short: "Write a sample config to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Sample(os.Stdout)
		},
	})

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return err
	}
	if err := log.Setup(cfg.Logging); err != nil {
		return err
	}

	timeout, err := cfg.Coord.Timeout()
	if err != nil {
		return err
	}
	dir, err := zk.Connect(cfg.Coord.Servers, timeout)
	if err != nil {
		return err
	}
	defer dir.Close()

	ctx := context.Background()
	store := topostore.NewStore(dir,
		topostore.WithPaths(coord.NewPaths(cfg.Coord.Root)),
		topostore.WithOperationMetrics(topostore.NewOperationMetrics()),
	)
	if err := store.Setup(ctx); err != nil {
		return err
	}
	// The boundary layer consumes the store exclusively through the
	// authorizer; port groups are the only kind with public read access.
	authorizer := auth.NewAuthorizer(store, topology.KindPortGroup)

	log.Info("Store ready", "servers", cfg.Coord.Servers, "root", cfg.Coord.Root)

	if cfg.Metrics.Addr != "" {
		r := newOpsRouter(store, authorizer)
		go func() {
			log.Info("Serving ops endpoint", "addr", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, r); err != nil {
				log.Error("Ops server failed", "err", err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info("Shutting down", "signal", s.String())
	return nil
}
