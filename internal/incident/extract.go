// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package incident

import (
	"regexp"
	"strings"
)

const (
	DefaultPlace = "the affected station"
	DefaultLine  = "the affected line"
)

// placePatterns are tried in order; the first match wins.
var placePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[Aa]t\s+([A-Z][\w'&-]*(?:\s+[A-Z][\w'&-]*)*)`),
	regexp.MustCompile(`\b[Nn]ear\s+([A-Z][\w'&-]*(?:\s+[A-Z][\w'&-]*)*)`),
	regexp.MustCompile(`(?i)\bat\s+([\w'&-]+(?:\s+[\w'&-]+){0,2})`),
}

// KnownLines is searched in order as case-insensitive substrings.
var KnownLines = []string{
	"Red Line",
	"Blue Line",
	"Green Line",
	"Yellow Line",
	"Orange Line",
	"Purple Line",
	"Circle Line",
	"Northern Line",
	"Central Line",
	"District Line",
	"Jubilee Line",
}

// ExtractPlace returns the station or area named in text, or DefaultPlace.
func ExtractPlace(text string) string {
	for _, re := range placePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if place := strings.TrimRight(strings.TrimSpace(m[1]), ".,;:!?'"); place != "" {
			return place
		}
	}
	return DefaultPlace
}

// ExtractLine returns the canonical name of the first known line mentioned in
// text, or DefaultLine.
func ExtractLine(text string) string {
	lower := strings.ToLower(text)
	for _, line := range KnownLines {
		if strings.Contains(lower, strings.ToLower(line)) {
			return line
		}
	}
	return DefaultLine
}
