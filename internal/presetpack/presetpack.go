/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package presetpack bundles framing presets into shareable zip archives:
// a manifest at the root plus one presets/<id>.json per preset. Packs are
// how framing setups travel between projects and teammates.
package presetpack

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"storycore/internal/domain"
	applog "storycore/internal/log"
)

// ManifestName is the human-readable index entry at the archive root.
const ManifestName = "presetpack.manifest.txt"

// maxPresetFileSize caps one archive entry at 1 MiB; a framing preset
// serializes to a few KB.
const maxPresetFileSize = 1 << 20

// ImportIssue records one archive entry that could not be imported.
type ImportIssue struct {
	Name string // entry name inside the archive
	Err  error
}

// ExportPresets writes the given presets to a zip at destZipPath. Every
// preset must be valid with a unique, path-safe id; the whole export fails
// rather than producing a pack with holes.
func ExportPresets(presets []domain.Preset, destZipPath string) error {
	l := applog.WithOperation(applog.WithComponent("presetpack"), "export").With(slog.String("zip", destZipPath))
	if strings.TrimSpace(destZipPath) == "" {
		return errors.New("destZipPath is required")
	}
	seen := make(map[string]bool, len(presets))
	for _, p := range presets {
		if err := domain.ValidatePreset(p).Err(); err != nil {
			return fmt.Errorf("refusing to pack invalid preset %q: %w", p.ID, err)
		}
		if strings.ContainsAny(p.ID, `/\`) || p.ID == "." || p.ID == ".." {
			return fmt.Errorf("preset id %q is not a safe file name", p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate preset id %q", p.ID)
		}
		seen[p.ID] = true
	}

	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZipPath)
	zf, err := os.Create(destZipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	zw := zip.NewWriter(zf)

	fail := func(err error) error {
		_ = zw.Close()
		_ = zf.Close()
		return err
	}

	manifest := fmt.Sprintf("StoryCore Preset Pack\nCreated: %s\nPresets: %d\n\nEach presets/<id>.json holds one framing preset: %d transforms and %d crops, row-major.\n",
		time.Now().Format(time.RFC3339), len(presets), domain.PanelCount, domain.PanelCount)
	w, err := zw.Create(ManifestName)
	if err != nil {
		return fail(fmt.Errorf("add manifest: %w", err))
	}
	if _, err := w.Write([]byte(manifest)); err != nil {
		return fail(fmt.Errorf("write manifest: %w", err))
	}

	for _, p := range presets {
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return fail(fmt.Errorf("encode preset %q: %w", p.ID, err))
		}
		fw, err := zw.Create("presets/" + p.ID + ".json")
		if err != nil {
			return fail(fmt.Errorf("add preset %q: %w", p.ID, err))
		}
		if _, err := fw.Write(data); err != nil {
			return fail(fmt.Errorf("write preset %q: %w", p.ID, err))
		}
	}

	if err := zw.Close(); err != nil {
		_ = zf.Close()
		return fmt.Errorf("finalize zip: %w", err)
	}
	if err := zf.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	l.Info("preset pack exported", slog.Int("presets", len(presets)))
	return nil
}

// ImportPresets reads a pack and returns every preset that parses and
// validates, plus one issue per entry that did not make it. Entries outside
// presets/*.json ride along untouched; only a broken archive itself is a
// hard error.
func ImportPresets(packZipPath string) ([]domain.Preset, []ImportIssue, error) {
	l := applog.WithOperation(applog.WithComponent("presetpack"), "import").With(slog.String("zip", packZipPath))
	if strings.TrimSpace(packZipPath) == "" {
		return nil, nil, errors.New("packZipPath is required")
	}
	r, err := zip.OpenReader(packZipPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	var presets []domain.Preset
	var issues []ImportIssue
	reject := func(name string, err error) {
		issues = append(issues, ImportIssue{Name: name, Err: err})
		l.Warn("skip entry", slog.String("entry", name), slog.Any("err", err))
	}

	seen := map[string]bool{}
	for _, f := range r.File {
		name := f.Name
		if name == ManifestName || f.FileInfo().IsDir() {
			continue
		}
		if !strings.HasPrefix(name, "presets/") || !strings.HasSuffix(name, ".json") {
			continue
		}
		// IsLocal cleans "presets/../x" before judging, so the raw name
		// must also already be in canonical form.
		if path.Clean(name) != name || !filepath.IsLocal(filepath.FromSlash(name)) {
			reject(name, errors.New("entry name is not a clean relative path"))
			continue
		}
		rc, err := f.Open()
		if err != nil {
			reject(name, fmt.Errorf("open entry: %w", err))
			continue
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxPresetFileSize+1))
		_ = rc.Close()
		if err != nil {
			reject(name, fmt.Errorf("read entry: %w", err))
			continue
		}
		if len(data) > maxPresetFileSize {
			reject(name, errors.New("preset file too large"))
			continue
		}
		var p domain.Preset
		if err := json.Unmarshal(data, &p); err != nil {
			reject(name, fmt.Errorf("parse preset: %w", err))
			continue
		}
		if err := domain.ValidatePreset(p).Err(); err != nil {
			reject(name, err)
			continue
		}
		if seen[p.ID] {
			reject(name, fmt.Errorf("duplicate preset id %q", p.ID))
			continue
		}
		seen[p.ID] = true
		presets = append(presets, p)
	}

	l.Info("preset pack imported", slog.Int("presets", len(presets)), slog.Int("issues", len(issues)))
	return presets, issues, nil
}
