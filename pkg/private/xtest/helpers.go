// Copyright 2021 Overlaynet Systems
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

// Package xtest contains common support functionality for unit tests.
package xtest

import (
	"testing"

	"github.com/google/uuid"
)

// MustParseUUID parses the textual UUID and fails the test on error.
func MustParseUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("invalid uuid %q: %v", s, err)
	}
	return id
}

// FailOnErr causes t to exit with a fatal error if err is non-nil.
func FailOnErr(t *testing.T, err error, desc ...string) {
	t.Helper()
	if err != nil {
		t.Fatal(append(desc, err.Error()))
	}
}
