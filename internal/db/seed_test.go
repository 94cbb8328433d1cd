package db

import (
	"testing"

	"github.com/partsdesk/procurement-app/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestSeedIdempotent(t *testing.T) {
	d, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.AutoMigrate(&models.Role{}); err != nil {
		t.Fatal(err)
	}
	Seed(d)
	Seed(d)
	var total int64
	d.Model(&models.Role{}).Count(&total)
	if total != 3 {
		t.Fatalf("expected 3 baseline roles got %d", total)
	}
	// Baseline roles exist exactly once each.
	for _, name := range []string{"admin", "manager", "requester"} {
		var c int64
		d.Model(&models.Role{}).Where("name = ?", name).Count(&c)
		if c != 1 {
			t.Fatalf("role %s duplicated or missing: %d", name, c)
		}
	}
	var manager models.Role
	if err := d.Where("name = ?", "manager").First(&manager).Error; err != nil {
		t.Fatal(err)
	}
	if manager.Permissions == "" {
		t.Fatal("manager role seeded without permission grants")
	}
}
