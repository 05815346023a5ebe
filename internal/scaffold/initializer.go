package scaffold

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dyluth/swarm/internal/config"
	"github.com/dyluth/swarm/internal/mapio"
)

//go:embed templates/*
var templatesFS embed.FS

// MapPath is where the example floor plan is written, relative to the
// project directory.
var MapPath = filepath.Join("maps", "floor.txt")

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes a starter swarm.yml and example map into dir.
// If force is true, existing copies of those files are replaced.
func Initialize(dir string, force bool, w io.Writer) error {
	if force {
		if err := handleForce(dir, w); err != nil {
			return err
		}
	}

	files, err := getTemplateFiles()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(dir, "maps"), 0755); err != nil {
		return fmt.Errorf("failed to create directory maps: %w", err)
	}

	if err := writeFiles(dir, files); err != nil {
		return err
	}

	return validateCreatedFiles(dir)
}

// handleForce removes existing files if --force was specified
func handleForce(dir string, w io.Writer) error {
	for _, name := range []string{config.DefaultPath, MapPath} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		fmt.Fprintf(w, "⚠️  Removing existing %s...\n", filepath.ToSlash(name))
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

// getTemplateFiles reads all embedded templates
func getTemplateFiles() ([]FileInfo, error) {
	cfg, err := templatesFS.ReadFile("templates/swarm.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read swarm.yml template: %w", err)
	}

	floor, err := templatesFS.ReadFile("templates/floor.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read floor map template: %w", err)
	}

	return []FileInfo{
		{Path: config.DefaultPath, Content: cfg, Permissions: 0644},
		{Path: MapPath, Content: floor, Permissions: 0644},
	}, nil
}

func writeFiles(dir string, files []FileInfo) error {
	for _, file := range files {
		if err := os.WriteFile(filepath.Join(dir, file.Path), file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}
	return nil
}

// validateCreatedFiles loads what was written the same way `swarm run` will
func validateCreatedFiles(dir string) error {
	cfg, err := config.Load(filepath.Join(dir, config.DefaultPath))
	if err != nil {
		return fmt.Errorf("created %s is invalid: %w", config.DefaultPath, err)
	}

	m, err := mapio.Load(filepath.Join(dir, cfg.Map.Path))
	if err != nil {
		return fmt.Errorf("created map is invalid: %w", err)
	}
	if m.Start == nil {
		return fmt.Errorf("created map %s has no start marker", cfg.Map.Path)
	}
	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess(w io.Writer) {
	fmt.Fprintln(w, "\n✅ Successfully initialized swarm project!")
	fmt.Fprintln(w, "\nCreated:")
	fmt.Fprintf(w, "  ✓ %s\n", config.DefaultPath)
	fmt.Fprintf(w, "  ✓ %s\n", filepath.ToSlash(MapPath))
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintln(w, "  1. Draw your own floor plan or point map.path at a PNG")
	fmt.Fprintln(w, "  2. Tune the team and policy in swarm.yml")
	fmt.Fprintln(w, "  3. Run 'swarm run' to explore the map")
}
