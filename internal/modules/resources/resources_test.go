package resources

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/commonshub/core/internal/database"
	"github.com/commonshub/core/internal/pkg/pagination"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func boolPtr(b bool) *bool { return &b }

func TestCreateAndListFiltersUnpublished(t *testing.T) {
	svc := NewService(testDB(t))

	if _, err := svc.Create(&ResourceDTO{Title: "Food bank", URL: "https://food.example.org", Category: "aid"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(&ResourceDTO{Title: "Draft page", URL: "https://draft.example.org", Category: "aid", Published: boolPtr(false)}); err != nil {
		t.Fatalf("create draft: %v", err)
	}

	items, _, err := svc.List(pagination.Query{Page: 1, Size: 10}, "", true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Food bank" {
		t.Fatalf("anonymous list = %+v, want only the published resource", items)
	}

	items, _, err = svc.List(pagination.Query{Page: 1, Size: 10}, "", false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("admin list has %d items, want 2", len(items))
	}
}

func TestCategoryFilterAndDistinct(t *testing.T) {
	svc := NewService(testDB(t))

	seeds := []ResourceDTO{
		{Title: "Tool library", URL: "https://tools.example.org", Category: "tools"},
		{Title: "Seed swap", URL: "https://seeds.example.org", Category: "garden"},
		{Title: "Compost guide", URL: "https://compost.example.org", Category: "garden"},
		{Title: "Hidden", URL: "https://hidden.example.org", Category: "secret", Published: boolPtr(false)},
	}
	for i := range seeds {
		if _, err := svc.Create(&seeds[i]); err != nil {
			t.Fatalf("create %q: %v", seeds[i].Title, err)
		}
	}

	items, _, err := svc.List(pagination.Query{Page: 1, Size: 10}, "garden", true)
	if err != nil {
		t.Fatalf("list garden: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("garden list has %d items, want 2", len(items))
	}

	cats, err := svc.Categories()
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 2 || cats[0] != "garden" || cats[1] != "tools" {
		t.Fatalf("categories = %v, want [garden tools]", cats)
	}
}

func TestCreateRejectsBadURL(t *testing.T) {
	svc := NewService(testDB(t))

	for _, raw := range []string{"", "notaurl", "ftp://files.example.org", "javascript:alert(1)"} {
		if _, err := svc.Create(&ResourceDTO{Title: "x", URL: raw}); err == nil {
			t.Errorf("Create accepted url %q", raw)
		}
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc := NewService(testDB(t))

	res, err := svc.Create(&ResourceDTO{Title: "Old title", URL: "https://old.example.org"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(res.ID, &ResourceDTO{Title: "New title", URL: "https://new.example.org", Published: boolPtr(false)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "New title" || updated.URL != "https://new.example.org" || updated.Published {
		t.Fatalf("updated = %+v", updated)
	}

	if err := svc.Delete(res.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(res.ID); err == nil {
		t.Fatal("second delete should report not found")
	}
	if _, err := svc.GetByID(res.ID); err == nil {
		t.Fatal("GetByID should fail after delete")
	}
}
