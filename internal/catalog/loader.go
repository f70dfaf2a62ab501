// Package catalog loads seed quests from YAML files and upserts them into
// the repository.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"

	"github.com/cvaas/quest-engine/internal/models"
)

// Definition is one quest as written in a catalog file
type Definition struct {
	Title            string               `yaml:"title"`
	Slug             string               `yaml:"slug"`
	Description      string               `yaml:"description"`
	Category         models.QuestCategory `yaml:"category"`
	Difficulty       models.Difficulty    `yaml:"difficulty"`
	PassingScore     int                  `yaml:"passing_score"`
	Skills           []string             `yaml:"skills"`
	TimeLimitMinutes int                  `yaml:"time_limit_minutes"`
	Active           *bool                `yaml:"active"`

	// Source is the file the definition came from
	Source string `yaml:"-"`
}

// IsActive defaults to true when the file does not say
func (d Definition) IsActive() bool {
	return d.Active == nil || *d.Active
}

// catalogFile is the YAML structure of a catalog file. A file holds either
// a list under "quests" or a single quest at the top level.
type catalogFile struct {
	Quests     []Definition `yaml:"quests"`
	Definition `yaml:",inline"`
}

// LoadDir reads *.yaml and *.yml files from dir and its immediate
// subdirectories. A subdirectory named after a category supplies the
// category for quests that omit it. Files that fail to parse or validate are
// logged and skipped; a slug defined twice is an error.
func LoadDir(dir string) ([]Definition, error) {
	slog.Info("loading quest catalog", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*/*.yaml", "*/*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid catalog pattern: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	var defs []Definition
	seen := make(map[string]string)

	for _, file := range files {
		loaded, err := LoadFile(file)
		if err != nil {
			slog.Warn("failed to load catalog file", "file", file, "error", err)
			continue
		}

		for _, def := range loaded {
			if prev, ok := seen[def.Slug]; ok {
				return nil, fmt.Errorf("duplicate quest slug %q in %s and %s", def.Slug, prev, def.Source)
			}
			seen[def.Slug] = def.Source
			defs = append(defs, def)
		}
	}

	slog.Info("quest catalog loaded", "quests", len(defs), "files", len(files))
	return defs, nil
}

// LoadFile parses and validates the quests in one catalog file
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	defs := cf.Quests
	if len(defs) == 0 && cf.Title != "" {
		defs = []Definition{cf.Definition}
	}

	dirCategory := models.QuestCategory(strings.ToLower(filepath.Base(filepath.Dir(path))))

	for i := range defs {
		d := &defs[i]
		d.Source = path
		d.Title = strings.TrimSpace(d.Title)
		if d.Category == "" && dirCategory.Valid() {
			d.Category = dirCategory
		}
		if d.Slug == "" {
			d.Slug = slug.Make(d.Title)
		}
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("quest %d (%q): %w", i, d.Title, err)
		}
	}

	return defs, nil
}

func (d *Definition) validate() error {
	if d.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !slug.IsSlug(d.Slug) {
		return fmt.Errorf("invalid slug %q", d.Slug)
	}
	if !d.Category.Valid() {
		return fmt.Errorf("unknown category %q", d.Category)
	}
	if !d.Difficulty.Valid() {
		return fmt.Errorf("unknown difficulty %q", d.Difficulty)
	}
	if d.PassingScore < 0 || d.PassingScore > 100 {
		return fmt.Errorf("passing_score must be between 0 and 100")
	}
	if d.TimeLimitMinutes < 0 {
		return fmt.Errorf("time_limit_minutes must not be negative")
	}
	return nil
}
