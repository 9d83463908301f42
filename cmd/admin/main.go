// Command admin manages community groups.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin groups list                              - List all groups")
	fmt.Println("  go run ./cmd/admin groups create <slug> <title> [description] - Create a group")
	fmt.Println("  go run ./cmd/admin groups delete <slug>                     - Delete a group, keeping its posts")
}

func main() {
	if len(os.Args) < 3 || os.Args[1] != "groups" {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	groups := repository.NewGroupRepository(db)
	ctx := context.Background()
	args := os.Args[3:]

	switch os.Args[2] {
	case "list":
		err = listGroups(ctx, groups)
	case "create":
		if len(args) < 2 {
			printUsage()
			os.Exit(1)
		}
		err = createGroup(ctx, groups, args[0], args[1], strings.Join(args[2:], " "))
	case "delete":
		if len(args) < 1 {
			printUsage()
			os.Exit(1)
		}
		err = deleteGroup(ctx, groups, args[0])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[2])
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func listGroups(ctx context.Context, repo repository.GroupRepository) error {
	groups, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch groups: %w", err)
	}
	if len(groups) == 0 {
		fmt.Println("No groups found")
		return nil
	}

	fmt.Println("─────────────────────────────────────")
	for _, g := range groups {
		fmt.Printf("ID: %d | Slug: %s | Title: %s\n", g.ID, g.Slug, g.Title)
	}
	fmt.Println("─────────────────────────────────────")
	return nil
}

func createGroup(ctx context.Context, repo repository.GroupRepository, slug, title, description string) error {
	form := validation.GroupForm{Title: title, Slug: slug, Description: description}
	if errs := validation.CheckGroup(&form); errs != nil {
		fields := make([]string, 0, len(errs))
		for field, msg := range errs {
			fields = append(fields, field+": "+msg)
		}
		sort.Strings(fields)
		return fmt.Errorf("invalid group: %s", strings.Join(fields, "; "))
	}

	group := &models.Group{Title: form.Title, Slug: form.Slug, Description: form.Description}
	if err := repo.Create(ctx, group); err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	fmt.Printf("Created group %s (ID: %d)\n", group.Slug, group.ID)
	return nil
}

func deleteGroup(ctx context.Context, repo repository.GroupRepository, slug string) error {
	if err := repo.DeleteBySlug(ctx, slug); err != nil {
		if models.IsNotFound(err) {
			return fmt.Errorf("group %s not found", slug)
		}
		return fmt.Errorf("failed to delete group: %w", err)
	}
	fmt.Printf("Deleted group %s\n", slug)
	return nil
}
