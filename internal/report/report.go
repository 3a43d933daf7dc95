/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package report shapes failures into the envelope the notification
// surfaces consume: a categorized, severity graded message with optional
// technical detail and suggested recovery steps. The JSON field names are
// part of the external contract and must not change.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"storycore/internal/domain"
)

// Category classifies where a failure originated.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryStorage    Category = "storage"
	CategorySync       Category = "sync"
	CategoryGeneration Category = "generation"
	CategoryInternal   Category = "internal"
)

// Severity grades how strongly a failure should interrupt the user.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Context ties a report to the place it happened. Both fields are
// optional; a grid-wide failure carries neither.
type Context struct {
	PanelID   string `json:"panelId,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// Report is one presentable failure. The context object and the recovery
// list are always present in the serialized form, even when empty.
type Report struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Category         Category  `json:"category"`
	Severity         Severity  `json:"severity"`
	Message          string    `json:"message"`
	TechnicalDetails string    `json:"technicalDetails,omitempty"`
	Context          Context   `json:"context"`
	RecoveryOptions  []string  `json:"recoveryOptions"`
}

// New creates a report with a fresh id, the current UTC time and the
// category's stock recovery suggestions.
func New(cat Category, sev Severity, message string) Report {
	return Report{
		ID:              uuid.NewString(),
		Timestamp:       time.Now().UTC(),
		Category:        cat,
		Severity:        sev,
		Message:         message,
		RecoveryOptions: defaultRecovery(cat),
	}
}

// FromValidation maps a failed validation pass onto a report. The first
// failing field becomes the headline and the full list goes into the
// technical details. Callers check Result.OK before reporting; an OK
// result still yields a well-formed report with a generic message.
func FromValidation(res domain.Result) Report {
	msg := "validation failed"
	if n := len(res.Errors); n > 0 {
		msg = res.Errors[0].String()
		if n > 1 {
			msg = fmt.Sprintf("%s (and %d more)", msg, n-1)
		}
	}
	r := New(CategoryValidation, SeverityError, msg)
	if len(res.Errors) > 0 {
		lines := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			lines[i] = e.String()
		}
		r.TechnicalDetails = strings.Join(lines, "\n")
	}
	return r
}

// FromError wraps an operational error under a human headline. The raw
// error text lands in the technical details, never in the message.
func FromError(cat Category, message string, err error) Report {
	r := New(cat, SeverityError, message)
	if err != nil {
		r.TechnicalDetails = err.Error()
	}
	return r
}

// WithContext returns a copy tied to a panel and/or an operation.
func (r Report) WithContext(panelID, operation string) Report {
	r.Context.PanelID = panelID
	r.Context.Operation = operation
	return r
}

// WithRecovery replaces the stock recovery suggestions.
func (r Report) WithRecovery(options ...string) Report {
	r.RecoveryOptions = append([]string{}, options...)
	return r
}

// defaultRecovery suggests next steps per category. Callers with better
// advice replace them via WithRecovery.
func defaultRecovery(cat Category) []string {
	switch cat {
	case CategoryValidation:
		return []string{"Fix the listed fields and retry"}
	case CategoryStorage:
		return []string{"Retry the operation", "Restore from a backup"}
	case CategorySync:
		return []string{"Check the sync server address and token", "Retry the push or pull"}
	case CategoryGeneration:
		return []string{"Retry the generation", "Adjust the prompt or seed"}
	default:
		return []string{"Restart the application", "Send the crash report"}
	}
}
