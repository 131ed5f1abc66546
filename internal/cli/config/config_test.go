package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	// Test loading with no config file (should use defaults)
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected config to be non-nil")
	}

	// Check defaults
	if cfg.Generate.Suffix != "_weld.go" {
		t.Errorf("expected default suffix '_weld.go', got %s", cfg.Generate.Suffix)
	}

	if len(cfg.Classify.ServiceSuffixes) != 0 {
		t.Errorf("expected no extra service suffixes, got %v", cfg.Classify.ServiceSuffixes)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	// Create temporary directory with config file
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	// Write config file
	configContent := `
project_name: test-project
generate:
  suffix: _gen.go
  packages:
    - ./services
    - ./repos
classify:
  service_suffixes:
    - Gateway
    - Store
  primitives:
    - decimal.Decimal
`
	os.WriteFile("weld.yml", []byte(configContent), 0644)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.ProjectName != "test-project" {
		t.Errorf("expected project name 'test-project', got %s", cfg.ProjectName)
	}

	if cfg.Generate.Suffix != "_gen.go" {
		t.Errorf("expected suffix '_gen.go', got %s", cfg.Generate.Suffix)
	}

	if len(cfg.Generate.Packages) != 2 {
		t.Errorf("expected 2 packages, got %v", cfg.Generate.Packages)
	}

	if len(cfg.Classify.ServiceSuffixes) != 2 || cfg.Classify.ServiceSuffixes[0] != "Gateway" {
		t.Errorf("expected service suffixes [Gateway Store], got %v", cfg.Classify.ServiceSuffixes)
	}

	if len(cfg.Classify.Primitives) != 1 || cfg.Classify.Primitives[0] != "decimal.Decimal" {
		t.Errorf("expected primitives [decimal.Decimal], got %v", cfg.Classify.Primitives)
	}
}

func TestLoadRejectsBadSuffix(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	os.WriteFile("weld.yml", []byte("generate:\n  suffix: _weld.txt\n"), 0644)

	if _, err := Load(); err == nil {
		t.Error("expected error for suffix not ending in .go, got nil")
	}

	os.WriteFile("weld.yml", []byte("generate:\n  suffix: _test.go\n"), 0644)

	if _, err := Load(); err == nil {
		t.Error("expected error for suffix ending in _test.go, got nil")
	}
}

func TestLoadFindsConfigAtProjectRoot(t *testing.T) {
	// weld.yml at the project root still applies when the command runs
	// from a subdirectory.
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd)

	os.WriteFile(filepath.Join(tmpDir, "weld.yml"), []byte("generate:\n  suffix: _gen.go\n"), 0644)

	subDir := filepath.Join(tmpDir, "internal", "services")
	os.MkdirAll(subDir, 0755)
	os.Chdir(subDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}
	if cfg.Generate.Suffix != "_gen.go" {
		t.Errorf("expected root weld.yml to apply, got suffix %s", cfg.Generate.Suffix)
	}
}

func TestGetProjectRoot(t *testing.T) {
	// Create nested directory structure
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd)

	// Create project root with weld.yml
	os.WriteFile(filepath.Join(tmpDir, "weld.yml"), []byte(""), 0644)

	// Create nested subdirectory
	subDir := filepath.Join(tmpDir, "src", "deep", "nested")
	os.MkdirAll(subDir, 0755)
	os.Chdir(subDir)

	root, err := GetProjectRoot()
	if err != nil {
		t.Fatalf("expected to find project root, got error: %v", err)
	}

	// On macOS, /tmp is symlinked to /private/tmp, so resolve both paths
	resolvedRoot, _ := filepath.EvalSymlinks(root)
	resolvedTmpDir, _ := filepath.EvalSymlinks(tmpDir)

	if resolvedRoot != resolvedTmpDir {
		t.Errorf("expected project root to be %s, got %s", resolvedTmpDir, resolvedRoot)
	}
}

func TestGetProjectRootFallsBackToGoMod(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd)

	os.WriteFile(filepath.Join(tmpDir, "go.mod"), []byte("module example.com/app\n"), 0644)

	subDir := filepath.Join(tmpDir, "internal", "services")
	os.MkdirAll(subDir, 0755)
	os.Chdir(subDir)

	root, err := GetProjectRoot()
	if err != nil {
		t.Fatalf("expected to find project root, got error: %v", err)
	}

	resolvedRoot, _ := filepath.EvalSymlinks(root)
	resolvedTmpDir, _ := filepath.EvalSymlinks(tmpDir)

	if resolvedRoot != resolvedTmpDir {
		t.Errorf("expected project root to be %s, got %s", resolvedTmpDir, resolvedRoot)
	}
}
