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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

func stdinIsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd())
}

// promptLine asks the user for a line of input, returning def when the user
// just presses enter.
func promptLine(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(os.Stderr, "%s [%s]: ", color.CyanString(question), def)
	} else {
		fmt.Fprintf(os.Stderr, "%s: ", color.CyanString(question))
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "failed to read input")
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// promptSecret asks for a line of input without echoing it.
func promptSecret(question string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", color.CyanString(question))
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "failed to read secret input")
	}
	return strings.TrimSpace(string(b)), nil
}

// confirm asks a yes/no question, defaulting to no.
func confirm(question string) (bool, error) {
	answer, err := promptLine(question+" (y/N)", "n")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
