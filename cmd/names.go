// Copyright 2026 The Gantry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"math/rand"
)

var nameAdjectives = []string{
	"amber", "bold", "brisk", "calm", "clever", "crisp", "eager", "fuzzy",
	"gentle", "green", "happy", "keen", "lively", "lucid", "mellow", "nimble",
	"proud", "quiet", "rapid", "shiny", "solid", "swift", "vivid", "witty",
}

var nameNouns = []string{
	"badger", "condor", "crane", "dingo", "falcon", "gecko", "heron", "ibex",
	"jackal", "koala", "lemur", "marmot", "newt", "ocelot", "osprey", "otter",
	"panda", "puffin", "quokka", "raven", "shrew", "tapir", "vole", "wombat",
}

// uniqueName generates a default experiment name. Uniqueness is best-effort;
// collisions are handled by the submission retry loop anyway.
func uniqueName() string {
	return fmt.Sprintf("%s-%s-%02d",
		nameAdjectives[rand.Intn(len(nameAdjectives))],
		nameNouns[rand.Intn(len(nameNouns))],
		rand.Intn(100))
}
