package store

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// GuideFileName is the guide document's name inside the system directory.
const GuideFileName = "llm-guide.md"

// guideTemplate is the static portion of the usage guide, shipped with the
// binary. The generator appends the live directory structure to it.
//
//go:embed guide_template.md
var guideTemplate string

// GuidePath returns the guide document's path relative to the root.
func (s *Store) GuidePath() string {
	return path.Join(s.systemDir, GuideFileName)
}

// EnsureGuide materializes the usage guide if it does not exist yet. It is
// idempotent: an existing guide is left untouched, so its content stays
// stable between explicit regenerations.
func (s *Store) EnsureGuide() error {
	rel, err := s.normalize(s.GuidePath())
	if err != nil {
		return err
	}

	if _, err := s.root.Stat(rel); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot stat guide: %w", err)
	}

	s.logger.Info("Generating usage guide", "path", rel)
	return s.writeGuide()
}

// RegenerateGuide rebuilds the guide from the current directory tree,
// replacing any existing guide.
func (s *Store) RegenerateGuide() error {
	s.logger.Info("Regenerating usage guide", "path", s.GuidePath())
	return s.writeGuide()
}

func (s *Store) writeGuide() error {
	body, err := s.generateGuide()
	if err != nil {
		return err
	}

	_, err = s.Create(s.GuidePath(), body, map[string]any{
		"type":      "system",
		"title":     "LLM Usage Guide",
		"generated": time.Now().Format(time.RFC3339),
	})
	return err
}

// generateGuide builds the guide body: the embedded template followed by a
// listing of the current directory structure and any available templates.
func (s *Store) generateGuide() (string, error) {
	var b strings.Builder
	b.WriteString(guideTemplate)

	b.WriteString("\n## Directory Structure\nCurrent structure:\n")
	if err := s.writeTree(&b); err != nil {
		return "", err
	}

	templates, err := s.listTemplates()
	if err != nil {
		return "", err
	}
	if len(templates) > 0 {
		b.WriteString("\n## Templates\nAvailable templates in " + path.Join(s.systemDir, "templates") + "/:\n")
		for _, name := range templates {
			b.WriteString("- " + name + "\n")
		}
	}

	return b.String(), nil
}

// writeTree renders every directory and markdown file under the root as an
// indented list.
func (s *Store) writeTree(b *strings.Builder) error {
	err := fs.WalkDir(s.root.FS(), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		depth := strings.Count(p, "/")
		if p == "." {
			b.WriteString("- ./\n")
			return nil
		}
		depth++

		indent := strings.Repeat("  ", depth)
		if d.IsDir() {
			b.WriteString(indent + "- " + d.Name() + "/\n")
		} else if strings.HasSuffix(d.Name(), ".md") {
			b.WriteString(indent + "- " + d.Name() + "\n")
		}
		return nil
	})
	return err
}

// listTemplates returns template names under system/templates, if present.
func (s *Store) listTemplates() ([]string, error) {
	templateDir := path.Join(s.systemDir, "templates")
	if _, err := s.root.Stat(templateDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	entries, err := fs.ReadDir(s.root.FS(), templateDir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(e.Name(), ".template.md"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
