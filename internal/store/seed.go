package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"webhook-bot/internal/engine"
	"webhook-bot/internal/model"
)

// SeedFile is the layout of the starter template file.
type SeedFile struct {
	Templates []model.Template `yaml:"templates"`
}

// LoadSeedFile reads starter templates from a YAML file.
func LoadSeedFile(path string) (*SeedFile, error) {
	filename, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &seed, nil
}

// SeedTemplates stores the starter templates from path as public templates
// owned by the default admin. Names the admin already has are skipped, so
// seeding is safe to repeat. It returns the number of templates created.
func (s *Store) SeedTemplates(ctx context.Context, path string) (int, error) {
	seed, err := LoadSeedFile(path)
	if err != nil {
		return 0, err
	}
	admin, err := s.GetUserByEmail(ctx, AdminEmail)
	if err != nil {
		return 0, fmt.Errorf("find admin user: %w", err)
	}

	created := 0
	for i := range seed.Templates {
		t := seed.Templates[i]
		if t.ContentType == "" {
			t.ContentType = model.ContentText
		}
		if t.Status == "" {
			t.Status = model.StatusPublic
		}
		in := engine.ContentInput{ContentType: t.ContentType, Content: t.Content, Params: t.Params, Conditions: t.Conditions}
		if err := engine.ValidateTemplateInput(t.Name, in); err != nil {
			log.Printf("WARN: skipping seed template %q: %v", t.Name, err)
			continue
		}

		exists, err := s.TemplateNameExists(ctx, admin.ID, t.Name)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}

		t.UserID = admin.ID
		if err := s.CreateTemplate(ctx, &t); err != nil {
			return created, fmt.Errorf("seed template %q: %w", t.Name, err)
		}
		created++
	}
	return created, nil
}
