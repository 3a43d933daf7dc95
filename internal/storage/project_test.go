package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storycore/internal/domain"
)

func newTestGrid(projectID string) domain.GridConfiguration {
	return domain.NewGridConfiguration(projectID)
}

func TestInitProjectCreatesStructureAndManifest(t *testing.T) {
	root := t.TempDir()
	grid := newTestGrid("proj-init")

	ph, err := InitProject(root, grid)
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	if ph == nil {
		t.Fatalf("InitProject returned nil handle")
	}

	if ph.ManifestPath == "" {
		t.Fatalf("ManifestPath not set")
	}
	b, err := os.ReadFile(ph.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var got domain.GridConfiguration
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if got.ProjectID != grid.ProjectID {
		t.Fatalf("manifest projectId mismatch: got %q want %q", got.ProjectID, grid.ProjectID)
	}
	if len(got.Panels) != domain.PanelCount {
		t.Fatalf("manifest panel count: got %d", len(got.Panels))
	}

	// Standard subdirs should exist
	wantDirs := []string{"panels", "refs", "exports", BackupsDirName}
	for _, d := range wantDirs {
		p := filepath.Join(root, d)
		if fi, err := os.Stat(p); err != nil || !fi.IsDir() {
			t.Fatalf("expected directory %s to exist", p)
		}
	}
}

func TestSaveCreatesTimestampedBackup(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, newTestGrid("proj-backup"))
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}

	// Change something and save again to force a backup
	ph.Grid.Metadata.Title = "changed"
	if err := Save(ph); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups dir: %v", err)
	}
	var bakCount int
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			bakCount++
		}
	}
	if bakCount == 0 {
		t.Fatalf("expected at least one backup file, found 0")
	}
}

func TestSaveRejectsInvalidGrid(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, newTestGrid("proj-reject"))
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	before, err := os.ReadFile(ph.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	ph.Grid.Version = "not-a-version"
	if err := Save(ph); err == nil {
		t.Fatalf("expected Save to reject invalid grid")
	}
	after, err := os.ReadFile(ph.ManifestPath)
	if err != nil {
		t.Fatalf("re-read manifest: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("manifest changed despite rejected save")
	}
}

func TestOpenFallsBackToLatestBackupOnCorruption(t *testing.T) {
	root := t.TempDir()
	grid := newTestGrid("proj-recover")
	ph, err := InitProject(root, grid)
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}

	// Force a backup to exist by saving
	ph.Grid.Metadata.Title = "touch"
	if err := Save(ph); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	// Corrupt the manifest
	if err := os.WriteFile(ph.ManifestPath, []byte("{ this is not json"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}

	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if opened.Grid.ProjectID != grid.ProjectID {
		t.Fatalf("opened projectId mismatch: got %q want %q", opened.Grid.ProjectID, grid.ProjectID)
	}
}

func TestOpenRejectsSchemaInvalidManifestViaBackup(t *testing.T) {
	root := t.TempDir()
	grid := newTestGrid("proj-schema-recover")
	ph, err := InitProject(root, grid)
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	ph.Grid.Metadata.Title = "touch"
	if err := Save(ph); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	// Well-formed JSON that is not a valid manifest
	if err := os.WriteFile(ph.ManifestPath, []byte(`{"version":"1.0","projectId":"x","panels":[]}`), 0o644); err != nil {
		t.Fatalf("overwrite manifest: %v", err)
	}

	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if opened.Grid.ProjectID != grid.ProjectID {
		t.Fatalf("expected recovery from backup, got projectId %q", opened.Grid.ProjectID)
	}
	if len(opened.Grid.Panels) != domain.PanelCount {
		t.Fatalf("recovered grid incomplete: %d panels", len(opened.Grid.Panels))
	}
}

func TestSaveAsAndShotListIO(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, newTestGrid("proj-orig"))
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}

	ph.Grid.Metadata.Title = "Renamed"
	newRoot := filepath.Join(root, "newproj")
	if err := SaveAs(ph, newRoot); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if ph.Root != newRoot || ph.ManifestPath != filepath.Join(newRoot, ManifestFileName) {
		t.Fatalf("ProjectHandle paths not updated: %+v", ph)
	}

	b, err := os.ReadFile(ph.ManifestPath)
	if err != nil {
		t.Fatalf("read new manifest: %v", err)
	}
	var got domain.GridConfiguration
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal new manifest: %v", err)
	}
	if got.Metadata.Title != "Renamed" {
		t.Fatalf("unexpected title in new manifest: %q", got.Metadata.Title)
	}

	// Shot list should be empty when missing
	txt, err := ReadShotList(ph)
	if err != nil || txt != "" {
		t.Fatalf("expected empty shot list, got %q err=%v", txt, err)
	}

	content := "# Act One\nPANEL 0,0\nPROMPT: harbor at dawn"
	if err := WriteShotList(ph, content); err != nil {
		t.Fatalf("WriteShotList: %v", err)
	}
	txt, err = ReadShotList(ph)
	if err != nil || txt != content {
		t.Fatalf("ReadShotList mismatch: %q err=%v", txt, err)
	}
}

func TestAutosaveCrashSnapshotWritesFile(t *testing.T) {
	root := t.TempDir()
	grid := newTestGrid("proj-crash")
	ph, err := InitProject(root, grid)
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}

	path, err := AutosaveCrashSnapshot(ph)
	if err != nil {
		t.Fatalf("AutosaveCrashSnapshot error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot file does not exist: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var got domain.GridConfiguration
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if got.ProjectID != grid.ProjectID {
		t.Fatalf("snapshot content mismatch: got %q want %q", got.ProjectID, grid.ProjectID)
	}
}
