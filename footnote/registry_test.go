// Copyright 2024 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package footnote

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"zombiezen.com/go/marknote"
)

func TestRegistry(t *testing.T) {
	env := new(marknote.Env)
	if reg := registryFrom(env); reg != nil {
		t.Fatalf("registryFrom(new env) = %v; want nil", reg)
	}
	reg := ensureRegistry(env)
	if ensureRegistry(env) != reg {
		t.Error("ensureRegistry returned a different registry on second call")
	}

	reg.define("b")
	reg.define("a")
	reg.define("unused")
	if reg.isDefined("c") {
		t.Error(`isDefined("c") = true`)
	}

	type use struct{ id, subID int }
	var got []use
	record := func(id, subID int) {
		got = append(got, use{id, subID})
	}
	record(reg.use("a"))
	record(reg.use("b"))
	record(reg.use("a"))
	inlineID := reg.reserveInline()
	record(reg.use("a"))

	want := []use{{0, 0}, {1, 0}, {0, 1}, {0, 2}}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(use{})); diff != "" {
		t.Errorf("uses (-want +got):\n%s", diff)
	}
	if inlineID != 2 {
		t.Errorf("reserveInline() = %d; want 2", inlineID)
	}

	reg.claimUnreferenced()
	var labels []string
	var counts []int
	for _, e := range reg.list {
		labels = append(labels, e.label)
		counts = append(counts, e.count)
	}
	if diff := cmp.Diff([]string{"a", "b", "", "unused"}, labels); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{3, 1, 1, 0}, counts); diff != "" {
		t.Errorf("counts (-want +got):\n%s", diff)
	}
	if got := reg.refs["unused"]; got != 3 {
		t.Errorf(`refs["unused"] = %d; want 3`, got)
	}
}

func TestRegistryUseUndefinedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("use of undefined label did not panic")
		}
	}()
	reg := ensureRegistry(new(marknote.Env))
	reg.use("nope")
}
