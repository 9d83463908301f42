// Package seed fills the database with built-in groups and synthetic demo content.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed groups.yml
var groupsYAML []byte

// GroupDef is one entry of the built-in group list.
type GroupDef struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

// BuiltInGroups parses the embedded group list.
func BuiltInGroups() ([]GroupDef, error) {
	return ParseGroups(groupsYAML)
}

// ParseGroups decodes and validates a YAML group list.
func ParseGroups(data []byte) ([]GroupDef, error) {
	var defs []GroupDef
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse groups: %w", err)
	}
	seen := make(map[string]bool, len(defs))
	for i, d := range defs {
		form := validation.GroupForm{Title: d.Title, Slug: d.Slug, Description: d.Description}
		if fields := validation.CheckGroup(&form); fields != nil {
			return nil, fmt.Errorf("group #%d (%s): %w", i+1, d.Slug, models.NewFieldValidationError(fields))
		}
		if seen[form.Slug] {
			return nil, fmt.Errorf("group #%d: duplicate slug %q", i+1, form.Slug)
		}
		seen[form.Slug] = true
		defs[i] = GroupDef{Title: form.Title, Slug: form.Slug, Description: form.Description}
	}
	return defs, nil
}

// Groups upserts the built-in groups by slug. Running it twice leaves one row per slug.
func Groups(ctx context.Context, db *gorm.DB) error {
	defs, err := BuiltInGroups()
	if err != nil {
		return err
	}
	return UpsertGroups(ctx, db, defs)
}

// UpsertGroups writes defs in a single transaction.
func UpsertGroups(ctx context.Context, db *gorm.DB, defs []GroupDef) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewGroupRepository(tx)
		for _, d := range defs {
			group := models.Group{Title: d.Title, Slug: d.Slug, Description: d.Description}
			if err := repo.Upsert(ctx, &group); err != nil {
				return fmt.Errorf("upsert group %s: %w", d.Slug, err)
			}
		}
		return nil
	})
}
