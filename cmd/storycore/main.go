/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"storycore/internal/backend"
	"storycore/internal/compose"
	"storycore/internal/config"
	"storycore/internal/crash"
	"storycore/internal/domain"
	"storycore/internal/editor"
	applog "storycore/internal/log"
	"storycore/internal/preset"
	"storycore/internal/report"
	"storycore/internal/shotlist"
	"storycore/internal/storage"
	"storycore/internal/telemetry"
	"storycore/internal/version"
)

func usage() {
	fmt.Println("StoryCore — coherence sheet compositor")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  storycore version|-v|--version             Show version")
	fmt.Println("  storycore init <dir> <project-id>          Create a new project at <dir>")
	fmt.Println("  storycore open <dir>                       Open a project and print a summary")
	fmt.Println("  storycore validate <dir> [--json]          Check the manifest; --json emits an error report")
	fmt.Println("  storycore apply-preset <dir> <preset-id>   Apply a preset to all nine panels")
	fmt.Println("  storycore export <dir> <png|pdf|tiles|batch> [out] [--guides] [--annotations]")
	fmt.Println("                                             Export the composited sheet")
	fmt.Println("  storycore history <dir> [panel-id] [limit] Show recorded operations, newest first")
	fmt.Println("  storycore search <dir> <query>             Full-text search over prompts and notes")
	fmt.Println("  storycore shots <dir> <file> [--apply]     Check a shot list; --apply writes panel metadata")
	fmt.Println("  storycore login [subject]                  Fetch a sync token and store it in the keyring")
	fmt.Println("  storycore serve                            Run the sync server")
	fmt.Println("  storycore push <dir>                       Upload the grid to the sync server")
	fmt.Println("  storycore pull <dir>                       Replace the grid with the latest server snapshot")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	defer crash.Recover(nil)

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("StoryCore — coherence sheet compositor")
		fmt.Println(version.String())
	case "init":
		cmdInit(l, args[2:])
	case "open":
		cmdOpen(l, args[2:])
	case "validate":
		cmdValidate(l, args[2:])
	case "apply-preset":
		cmdApplyPreset(l, args[2:])
	case "export":
		cmdExport(l, args[2:])
	case "history":
		cmdHistory(l, args[2:])
	case "search":
		cmdSearch(l, args[2:])
	case "shots":
		cmdShots(l, args[2:])
	case "login":
		cmdLogin(l, args[2:])
	case "serve":
		cmdServe(l)
	case "push":
		cmdPush(l, args[2:])
	case "pull":
		cmdPull(l, args[2:])
	default:
		usage()
	}
}

// fail logs the error, prints it for the user and exits.
func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

func openProject(l *slog.Logger, dir string) *storage.ProjectHandle {
	abs, _ := filepath.Abs(dir)
	l.Info("open project", slog.String("root", abs))
	ph, err := storage.Open(abs)
	if err != nil {
		fail(l, "open failed", err)
	}
	return ph
}

// loadConfig returns persisted settings plus the keyring token. A broken
// config file degrades to defaults rather than blocking the command.
func loadConfig(l *slog.Logger) (config.AppConfig, string) {
	cfg, token, err := config.Load()
	if err != nil {
		l.Warn("config load", slog.Any("err", err))
	}
	return cfg, token
}

func editorOptions(root string, cfg config.AppConfig) editor.Options {
	return editor.Options{
		MaxUndoDepth:   cfg.Editor.UndoDepth,
		CoalesceWindow: time.Duration(cfg.Editor.CoalesceMs) * time.Millisecond,
		Journal:        storage.NewJournalWriter(root),
	}
}

func cmdInit(l *slog.Logger, args []string) {
	if len(args) < 2 {
		fmt.Println("init requires <dir> and <project-id>")
		usage()
		os.Exit(2)
	}
	abs, _ := filepath.Abs(args[0])
	projectID := args[1]
	l.Info("init project", slog.String("root", abs), slog.String("project", projectID))
	ph, err := storage.InitProject(abs, domain.NewGridConfiguration(projectID))
	if err != nil {
		fail(l, "init failed", err)
	}
	defer crash.Recover(ph)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := storage.BuildIndexIfEmpty(ctx, ph.Root, ph.Grid); err != nil {
		l.Warn("index build failed", slog.Any("err", err))
	}
	fmt.Println("Created project at", abs)
}

func cmdOpen(l *slog.Logger, args []string) {
	if len(args) < 1 {
		fmt.Println("open requires <dir>")
		usage()
		os.Exit(2)
	}
	ph := openProject(l, args[0])
	defer crash.Recover(ph)
	telemetry.Event("grid_opened", map[string]any{"panels": len(ph.Grid.Panels)})
	defer telemetry.Flush(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if rebuilt, err := storage.DetectAndRebuildIndex(ctx, ph.Root, ph.Grid); err != nil {
		l.Warn("index check failed", slog.Any("err", err))
	} else if rebuilt {
		l.Info("search index rebuilt")
	}

	withPrompt, withLayers := 0, 0
	for _, p := range ph.Grid.Panels {
		if p.Metadata.Prompt != "" {
			withPrompt++
		}
		if len(p.Layers) > 0 {
			withLayers++
		}
	}
	fmt.Printf("Opened project: %s\n", ph.Grid.ProjectID)
	fmt.Println("Root:", ph.Root)
	fmt.Printf("Schema version: %s\n", ph.Grid.Version)
	fmt.Printf("Panels: %d (%d with prompts, %d with layers)\n", len(ph.Grid.Panels), withPrompt, withLayers)
	fmt.Printf("Presets: %d stored, %d built-in\n", len(ph.Grid.Presets), len(preset.BuiltinPresets()))
}

func cmdValidate(l *slog.Logger, args []string) {
	if len(args) < 1 {
		fmt.Println("validate requires <dir>")
		usage()
		os.Exit(2)
	}
	jsonOut := len(args) >= 2 && args[1] == "--json"
	abs, _ := filepath.Abs(args[0])
	b, err := os.ReadFile(filepath.Join(abs, storage.ManifestFileName))
	if err != nil {
		fail(l, "read manifest failed", err)
	}
	if err := storage.ValidateManifestBytes(b); err != nil {
		if jsonOut {
			printReport(report.FromError(report.CategoryValidation, "manifest does not match the schema", err).WithContext("", "validate"))
		} else {
			fmt.Println("Schema check failed:", err)
		}
		os.Exit(1)
	}
	var g domain.GridConfiguration
	if err := json.Unmarshal(b, &g); err != nil {
		fail(l, "decode manifest failed", err)
	}
	res := domain.ValidateGrid(g)
	if res.OK() {
		fmt.Println("Manifest is valid.")
		return
	}
	if jsonOut {
		printReport(report.FromValidation(res).WithContext("", "validate"))
	} else {
		for _, fe := range res.Errors {
			fmt.Println(" ", fe.String())
		}
		fmt.Printf("%d problem(s) found\n", len(res.Errors))
	}
	os.Exit(1)
}

func printReport(rep report.Report) {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	fmt.Println(string(b))
}

func cmdApplyPreset(l *slog.Logger, args []string) {
	if len(args) < 2 {
		fmt.Println("apply-preset requires <dir> and <preset-id>")
		usage()
		os.Exit(2)
	}
	ph := openProject(l, args[0])
	defer crash.Recover(ph)
	id := args[1]

	pr, ok := findPreset(ph.Grid, id)
	if !ok {
		fmt.Printf("Unknown preset %q. Available:\n", id)
		for _, p := range ph.Grid.Presets {
			fmt.Printf("  %-12s %s (stored)\n", p.ID, p.Name)
		}
		for _, p := range preset.BuiltinPresets() {
			fmt.Printf("  %-12s %s\n", p.ID, p.Name)
		}
		os.Exit(1)
	}

	cfg, _ := loadConfig(l)
	sess, err := editor.NewSession(&ph.Grid, editorOptions(ph.Root, cfg))
	if err != nil {
		fail(l, "session failed", err)
	}
	if err := sess.ApplyPreset(pr); err != nil {
		fail(l, "apply preset failed", err)
	}
	if err := storage.Save(ph); err != nil {
		fail(l, "save failed", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := storage.UpdateIndex(ctx, ph.Root, ph.Grid); err != nil {
		l.Warn("index update failed", slog.Any("err", err))
	}
	telemetry.Event("preset_applied", nil)
	telemetry.Flush(nil)
	fmt.Printf("Applied preset %s to all panels.\n", pr.ID)
}

// findPreset checks grid-stored presets first, then the built-in catalog.
func findPreset(g domain.GridConfiguration, id string) (domain.Preset, bool) {
	for _, p := range g.Presets {
		if p.ID == id {
			return p, true
		}
	}
	return preset.LookupBuiltin(id)
}

func cmdExport(l *slog.Logger, args []string) {
	if len(args) < 2 {
		fmt.Println("export requires <dir> and a format (png, pdf, tiles or batch)")
		usage()
		os.Exit(2)
	}
	ph := openProject(l, args[0])
	defer crash.Recover(ph)
	format := args[1]

	var out string
	var guides, notes bool
	for _, a := range args[2:] {
		switch a {
		case "--guides":
			guides = true
		case "--annotations":
			notes = true
		default:
			if out == "" {
				out = a
			}
		}
	}

	opt := compose.SheetOptions{IncludeGuides: guides, IncludeAnnotations: notes}
	var err error
	var dest string
	switch format {
	case "png":
		err = compose.ExportSheetPNG(ph, out, opt)
		dest = resolvedOut(ph.Root, out, "sheet.png")
	case "pdf":
		err = compose.ExportSheetPDF(ph, out, compose.PDFOptions{IncludeGuides: guides, IncludeAnnotations: notes})
		dest = resolvedOut(ph.Root, out, "sheet.pdf")
	case "tiles":
		err = compose.ExportPanelTiles(ph, out, opt)
		dest = resolvedOut(ph.Root, out, "tiles")
	case "batch":
		name := compose.PresetReview
		if out != "" {
			name = compose.PresetName(out)
		}
		bo := compose.BatchOptions{Preset: name}
		if guides {
			bo.IncludeGuides = &guides
		}
		if notes {
			bo.IncludeAnnotations = &notes
		}
		err = compose.BatchExport(ph, bo)
		dest = filepath.Join(ph.Root, "exports", string(name))
	default:
		fmt.Printf("unknown export format %q\n", format)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fail(l, "export failed", err)
	}
	telemetry.Event("sheet_exported", map[string]any{"format": format})
	telemetry.Flush(nil)
	fmt.Println("Exported", format, "to", dest)
}

// resolvedOut mirrors the compose package's anchoring so the confirmation
// line names the real output path.
func resolvedOut(root, out, def string) string {
	if out == "" {
		out = def
	}
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(root, "exports", out)
}

func cmdHistory(l *slog.Logger, args []string) {
	if len(args) < 1 {
		fmt.Println("history requires <dir>")
		usage()
		os.Exit(2)
	}
	ph := openProject(l, args[0])
	defer crash.Recover(ph)

	panelID := ""
	limit := 20
	for _, a := range args[1:] {
		if n, err := strconv.Atoi(a); err == nil {
			limit = n
		} else {
			panelID = a
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ops, err := storage.ListOperations(ctx, ph.Root, panelID, limit)
	if err != nil {
		fail(l, "list operations failed", err)
	}
	if len(ops) == 0 {
		fmt.Println("No recorded operations.")
		return
	}
	for _, op := range ops {
		target := op.Data.PanelID
		if target == "" {
			target = "(all panels)"
		}
		fmt.Printf("%s  %-20s %s\n", op.Timestamp.Format(time.RFC3339), op.Type, target)
	}
}

func cmdSearch(l *slog.Logger, args []string) {
	if len(args) < 2 {
		fmt.Println("search requires <dir> and <query>")
		usage()
		os.Exit(2)
	}
	ph := openProject(l, args[0])
	defer crash.Recover(ph)
	query := strings.Join(args[1:], " ")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := storage.BuildIndexIfEmpty(ctx, ph.Root, ph.Grid); err != nil {
		l.Warn("index build failed", slog.Any("err", err))
	}
	results, err := storage.Search(ctx, ph.Root, storage.SearchQuery{Text: query})
	if err != nil {
		fail(l, "search failed", err)
	}
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, r := range results {
		loc := r.PanelID
		if loc == "" {
			loc = r.Path
		}
		line := r.Snippet
		if line == "" {
			line = r.Path
		}
		fmt.Printf("%-10s %-12s %s\n", r.Type, loc, line)
	}
	fmt.Printf("%d match(es)\n", len(results))
}

func cmdShots(l *slog.Logger, args []string) {
	if len(args) < 2 {
		fmt.Println("shots requires <dir> and <file>")
		usage()
		os.Exit(2)
	}
	apply := false
	for _, a := range args[2:] {
		if a == "--apply" {
			apply = true
		}
	}
	ph := openProject(l, args[0])
	defer crash.Recover(ph)

	data, err := os.ReadFile(args[1])
	if err != nil {
		fail(l, "read shot list failed", err)
	}
	sl, perrs := shotlist.Parse(string(data))
	for _, e := range perrs {
		fmt.Printf("line %d: %s\n", e.Line, e.Message)
	}
	updates := sl.PanelUpdates()
	unassigned := sl.UnassignedShots()
	fmt.Printf("Shot list plans %d cell(s); %d shot(s) unassigned.\n", len(updates), len(unassigned))
	for _, sh := range unassigned {
		fmt.Printf("  line %d: %s\n", sh.LineNo, sh.Prompt)
	}
	if !apply {
		if len(perrs) > 0 {
			os.Exit(1)
		}
		return
	}
	if len(perrs) > 0 {
		fmt.Println("Not applying: fix the parse problems first.")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	old, err := storage.ReadShotList(ph)
	if err != nil {
		fail(l, "read stored shot list failed", err)
	}
	if old != "" {
		if err := storage.SaveShotListSnapshot(ctx, ph, old, time.Now()); err != nil {
			l.Warn("shot list snapshot failed", slog.Any("err", err))
		}
	}

	cfg, _ := loadConfig(l)
	sess, err := editor.NewSession(&ph.Grid, editorOptions(ph.Root, cfg))
	if err != nil {
		fail(l, "session failed", err)
	}
	for _, u := range updates {
		if err := sess.SetPanelMetadata(u.PanelID, u.Meta); err != nil {
			fail(l, "update panel failed", err)
		}
	}
	if err := storage.WriteShotList(ph, string(data)); err != nil {
		fail(l, "write shot list failed", err)
	}
	if err := storage.Save(ph); err != nil {
		fail(l, "save failed", err)
	}
	if err := storage.UpdateIndex(ctx, ph.Root, ph.Grid); err != nil {
		l.Warn("index update failed", slog.Any("err", err))
	}
	fmt.Printf("Applied %d panel update(s) from %s.\n", len(updates), filepath.Base(args[1]))
}

func cmdLogin(l *slog.Logger, args []string) {
	subject := "storycore-cli"
	if len(args) >= 1 {
		subject = args[0]
	}
	cfg, _ := loadConfig(l)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.Timeout())
	defer cancel()
	// The token endpoint clamps anything above a day down to an hour.
	c := backend.NewClient(cfg.Sync.BaseURL, "")
	token, err := c.FetchToken(ctx, subject, 24*time.Hour)
	if err != nil {
		fail(l, "token fetch failed", err)
	}
	if err := config.SetSyncToken(token); err != nil {
		fail(l, "token store failed", err)
	}
	fmt.Println("Sync token stored for", subject)
}

func cmdServe(l *slog.Logger) {
	l.Info("starting sync server")
	if err := backend.Start(); err != nil {
		fail(l, "server failed", err)
	}
}

func cmdPush(l *slog.Logger, args []string) {
	if len(args) < 1 {
		fmt.Println("push requires <dir>")
		usage()
		os.Exit(2)
	}
	ph := openProject(l, args[0])
	defer crash.Recover(ph)
	cfg, token := loadConfig(l)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.Timeout())
	defer cancel()
	c := backend.NewClient(cfg.Sync.BaseURL, token)
	res, err := c.PushGrid(ctx, ph.Grid.ProjectID, ph.Grid)
	if err != nil {
		if token == "" {
			fmt.Println("Hint: no sync token stored; run 'storycore login' first.")
		}
		fail(l, "push failed", err)
	}
	telemetry.Event("sync_push", nil)
	telemetry.Flush(nil)
	fmt.Printf("Pushed %s as version %d.\n", res.StableID, res.Version)
}

func cmdPull(l *slog.Logger, args []string) {
	if len(args) < 1 {
		fmt.Println("pull requires <dir>")
		usage()
		os.Exit(2)
	}
	ph := openProject(l, args[0])
	defer crash.Recover(ph)
	cfg, token := loadConfig(l)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.Timeout())
	defer cancel()
	c := backend.NewClient(cfg.Sync.BaseURL, token)
	env, err := c.GetGridSnapshot(ctx, ph.Grid.ProjectID)
	if err != nil {
		if token == "" {
			fmt.Println("Hint: no sync token stored; run 'storycore login' first.")
		}
		fail(l, "pull failed", err)
	}
	var remote domain.GridConfiguration
	if err := json.Unmarshal(env.Grid, &remote); err != nil {
		fail(l, "decode snapshot failed", err)
	}
	if res := domain.ValidateGrid(remote); !res.OK() {
		l.Error("remote grid invalid", slog.Any("err", res.Err()))
		printReport(report.FromValidation(res).WithContext("", "pull"))
		os.Exit(1)
	}
	ph.Grid = remote
	if err := storage.Save(ph); err != nil {
		fail(l, "save failed", err)
	}
	if err := storage.UpdateIndex(ctx, ph.Root, ph.Grid); err != nil {
		l.Warn("index update failed", slog.Any("err", err))
	}
	fmt.Printf("Pulled version %d of %s.\n", env.Version, env.StableID)
}
