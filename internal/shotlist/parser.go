/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package shotlist

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"storycore/internal/domain"
)

// Parse parses shot list text into a structured ShotList.
// Supported syntax (minimal):
// - Section headings: lines starting with "#" introduce a new section. The
//   rest of the line is the title.
// - Panel markers: "PANEL r,c" or "PANEL r c" opens a new shot targeting the
//   cell at row r, column c (both 0-based).
// - Fields on the open shot:
//   - PROMPT: text  (continuation lines indented by 2+ spaces are appended)
//   - SEED: integer
//   - STYLE: reference path or URL
//
// - Notes: lines starting with ';' attach to the open shot, or to the section
//   when no shot is open.
// - Tags like @establishing are extracted from prompt text.
// A PROMPT before any PANEL marker opens an unassigned shot; those are kept so
// early planning text survives a round trip. Content problems (bad
// coordinates, duplicate markers, non-integer seeds) are reported as Errors
// with line positions, never as a failed parse.
func Parse(input string) (ShotList, []Error) {
	sl := ShotList{Sections: []Section{}}
	var errs []Error

	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	current := Section{}
	var open *Shot
	promptOpen := false
	seen := map[[2]int]int{}

	// Patterns
	reHeading := regexp.MustCompile(`^(#+)\s*(.*)$`)
	rePanel := regexp.MustCompile(`^(?i)PANEL\s+(\d+)\s*[, ]\s*(\d+)$`)
	reField := regexp.MustCompile(`^(?i)(PROMPT|SEED|STYLE)\s*:\s*(.*)$`)
	reTag := regexp.MustCompile(`(?i)@([a-z0-9_\-]+)`)

	addErr := func(line int, format string, args ...any) {
		errs = append(errs, Error{Line: line, Column: 1, Message: fmt.Sprintf(format, args...)})
	}

	mergeTags := func(have []string, text string) []string {
		found := reTag.FindAllStringSubmatch(text, -1)
		if len(found) == 0 {
			return have
		}
		m := map[string]struct{}{}
		for _, t := range have {
			m[t] = struct{}{}
		}
		for _, f := range found {
			t := strings.ToLower(strings.TrimSpace(f[1]))
			if t != "" {
				m[t] = struct{}{}
			}
		}
		out := make([]string, 0, len(m))
		for k := range m {
			out = append(out, k)
		}
		sort.Strings(out)
		return out
	}

	closeShot := func() {
		if open != nil {
			current.Shots = append(current.Shots, *open)
			open = nil
		}
		promptOpen = false
	}

	flushSection := func() {
		closeShot()
		if strings.TrimSpace(current.Title) != "" || len(current.Shots) > 0 || len(current.Notes) > 0 {
			sl.Sections = append(sl.Sections, current)
		}
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")

		// Continuation line (indented) -> append to the open shot's prompt
		if strings.HasPrefix(line, "  ") && promptOpen && open != nil {
			cont := strings.TrimSpace(line)
			if cont != "" {
				open.Prompt += "\n" + cont
				open.Tags = mergeTags(open.Tags, cont)
			}
			continue
		}

		trim := strings.TrimSpace(line)
		if trim == "" {
			promptOpen = false
			continue
		}

		// Section heading
		if m := reHeading.FindStringSubmatch(trim); m != nil {
			flushSection()
			current = Section{Title: strings.TrimSpace(m[2])}
			continue
		}

		// Panel marker opens a new shot
		if m := rePanel.FindStringSubmatch(trim); m != nil {
			closeShot()
			row, _ := strconv.Atoi(m[1])
			col, _ := strconv.Atoi(m[2])
			open = &Shot{Row: -1, Col: -1, LineNo: lineNo}
			if !domain.IsValidPanelPosition(row, col) {
				addErr(lineNo, "panel %d,%d is outside the %dx%d grid", row, col, domain.GridRows, domain.GridCols)
				continue
			}
			if first, dup := seen[[2]int{row, col}]; dup {
				addErr(lineNo, "panel %d,%d assigned twice (first at line %d)", row, col, first)
			} else {
				seen[[2]int{row, col}] = lineNo
			}
			open.Row, open.Col = row, col
			continue
		}

		// Shot fields
		if m := reField.FindStringSubmatch(trim); m != nil {
			key := strings.ToUpper(m[1])
			val := strings.TrimSpace(m[2])
			if open == nil || (key == "PROMPT" && open.Prompt != "") {
				// A second PROMPT starts a fresh unassigned shot.
				closeShot()
				open = &Shot{Row: -1, Col: -1, LineNo: lineNo}
			}
			switch key {
			case "PROMPT":
				open.Prompt = val
				open.Tags = mergeTags(open.Tags, val)
				promptOpen = true
				continue
			case "SEED":
				promptOpen = false
				n, err := strconv.ParseInt(val, 10, 64)
				if err != nil {
					addErr(lineNo, "seed %q is not an integer", val)
					continue
				}
				if open.HasSeed {
					addErr(lineNo, "seed set twice for one shot")
				}
				open.Seed = n
				open.HasSeed = true
				continue
			case "STYLE":
				promptOpen = false
				if open.Style != "" {
					addErr(lineNo, "style set twice for one shot")
				}
				open.Style = val
				continue
			}
		}

		// Note line
		if strings.HasPrefix(trim, ";") {
			promptOpen = false
			note := strings.TrimSpace(strings.TrimPrefix(trim, ";"))
			if open != nil {
				open.Notes = append(open.Notes, note)
			} else {
				current.Notes = append(current.Notes, note)
			}
			continue
		}

		// If we reach here and have no section yet, start an implicit one
		if len(sl.Sections) == 0 && strings.TrimSpace(current.Title) == "" && len(current.Shots) == 0 && len(current.Notes) == 0 && open == nil {
			current.Title = "Untitled"
		}
		// Unrecognized content is kept as a note to avoid data loss
		promptOpen = false
		if open != nil {
			open.Notes = append(open.Notes, trim)
		} else {
			current.Notes = append(current.Notes, trim)
		}
	}
	// Append last section
	flushSection()

	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Column: 1, Message: err.Error()})
	}
	return sl, errs
}
