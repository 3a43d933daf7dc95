/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns an uncaught panic into a forensics trail: an error
// log entry with the stack, crash report files under the project's backups
// folder, an autosaved snapshot of the manifest and an optional telemetry
// upload.
package crash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "storycore/internal/log"
	"storycore/internal/report"
	"storycore/internal/storage"
	"storycore/internal/telemetry"
	"storycore/internal/version"
)

// exitFn is swapped out by tests so Recover can run without terminating
// the test process.
var exitFn = os.Exit

// Recover captures a panic, logs it with the stack, writes the crash
// report files and autosaves a snapshot of the manifest when a project
// handle is present. It must be deferred directly:
//
//	defer crash.Recover(ph)
//
// Wrapped in another deferred closure, recover would have nothing to
// catch.
func Recover(ph *storage.ProjectHandle) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(ph, r, stack)
		if ph != nil {
			if path, err := storage.AutosaveCrashSnapshot(ph); err != nil {
				l.Error("autosave crash snapshot failed", slog.Any("err", err))
			} else {
				l.Info("autosave crash snapshot written", slog.String("path", path))
			}
		}

		fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
		fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
		exitFn(2)
	}
}

// writeReport writes two siblings under the project's backups folder (or
// the temp dir without a handle): crash-<stamp>.log with the human
// readable dump, and crash-<stamp>.json with the structured report the
// notification surfaces consume. The text dump is also handed to
// telemetry for the opt-in crash upload. The returned path is the .log
// file.
func writeReport(ph *storage.ProjectHandle, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if ph != nil && ph.Root != "" {
		dir = filepath.Join(ph.Root, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	base := "crash-" + time.Now().Format("20060102-150405")
	path := filepath.Join(dir, base+".log")

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "StoryCore Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if ph != nil {
		fmt.Fprintf(&buf, "ProjectRoot: %s\n", ph.Root)
		fmt.Fprintf(&buf, "Manifest: %s\n", ph.ManifestPath)
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return path, err
	}
	_ = f.Sync()
	if err := f.Close(); err != nil {
		return path, err
	}

	rep := report.New(report.CategoryInternal, report.SeverityCritical, fmt.Sprintf("panic: %v", panicVal))
	rep.TechnicalDetails = string(stack)
	if b, err := json.MarshalIndent(rep, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(dir, base+".json"), append(b, '\n'), 0o644)
	}

	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
