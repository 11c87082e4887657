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
	"errors"

	"github.com/overlaynet/topod/pkg/private/serrors"
	"github.com/overlaynet/topod/private/coord"
)

var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = serrors.New("topo: not found")
	// ErrConflict indicates a name collision, a link on an already bound
	// port, a delete of a bound port, or a lost optimistic write.
	ErrConflict = serrors.New("topo: conflict")
	// ErrIndexOutOfBounds indicates a rule position outside [1, N+1].
	ErrIndexOutOfBounds = serrors.New("topo: rule position out of bounds")
	// ErrSerialization indicates the codec failed on a persisted record.
	// This is treated as data corruption and is never retried.
	ErrSerialization = serrors.New("topo: serialization error")
	// ErrUnavailable indicates the coordination store is unreachable or
	// timed out; the transaction outcome is unknown.
	ErrUnavailable = serrors.New("topo: store unavailable")
)

// mapCoordErr translates coordination-store failures into the error kinds of
// the topology layer. Node-exists, bad-version and not-empty all surface as
// Conflict: they mean a concurrent writer or a violated precondition, never a
// partial write.
func mapCoordErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, coord.ErrNoNode):
		return serrors.Join(ErrNotFound, err)
	case errors.Is(err, coord.ErrNodeExists),
		errors.Is(err, coord.ErrBadVersion),
		errors.Is(err, coord.ErrNotEmpty):
		return serrors.Join(ErrConflict, err)
	case errors.Is(err, coord.ErrUnavailable):
		return serrors.Join(ErrUnavailable, err)
	default:
		return err
	}
}

// errKind returns the metrics label for an operation outcome.
func errKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrIndexOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, ErrSerialization):
		return "serialization"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
