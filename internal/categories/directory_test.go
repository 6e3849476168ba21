package categories

import (
	"testing"

	"chitieu/internal/core"
)

func TestDirectory_UserTierShadowsDefaults(t *testing.T) {
	defaults := []core.Category{
		{ID: "1", Name: "Shopping", Icon: "cart"},
		{ID: "2", Name: "Food", Icon: "burger"},
		{ID: "3", Name: "Travel", Icon: "plane"},
	}
	user := []core.Category{
		{ID: "1", Name: "Groceries", Icon: "basket"},
		{ID: "u9", Name: "  food ", Icon: "noodles"},
	}
	d := NewDirectory(defaults, user)

	c, ok := d.Lookup("1")
	if !ok || c.Name != "Groceries" || c.Tier != core.UserTier {
		t.Fatalf("Lookup(1) = %+v, %v", c, ok)
	}
	c, ok = d.Lookup("2")
	if !ok || c.Name != "Food" || c.Tier != core.DefaultTier {
		t.Fatalf("Lookup(2) = %+v, %v", c, ok)
	}
	if _, ok := d.Lookup("missing"); ok {
		t.Fatalf("Lookup(missing) should fail")
	}

	c, ok = d.LookupName("FOOD")
	if !ok || c.ID != "u9" {
		t.Fatalf("LookupName(FOOD) = %+v, %v", c, ok)
	}
	c, ok = d.LookupName("travel ")
	if !ok || c.ID != "3" {
		t.Fatalf("LookupName(travel) = %+v, %v", c, ok)
	}

	list := d.List()
	var ids []string
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	want := []string{"1", "u9", "3"}
	if len(ids) != len(want) {
		t.Fatalf("List ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("List ids = %v, want %v", ids, want)
		}
	}

	if d.IsDefault("1") || !d.IsDefault("2") || d.IsDefault("u9") {
		t.Errorf("IsDefault mismatch")
	}
}

func TestDirectory_VietnameseNamesFold(t *testing.T) {
	d := NewDirectory(Defaults(), nil)
	c, ok := d.LookupName("ĐỒ ĂN")
	if !ok || c.ID != "2" {
		t.Fatalf("LookupName(ĐỒ ĂN) = %+v, %v", c, ok)
	}
}

func TestDefaults(t *testing.T) {
	got := Defaults()
	if len(got) != 24 {
		t.Fatalf("expected 24 default categories, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, c := range got {
		if err := c.Validate(); err != nil {
			t.Errorf("default %s invalid: %v", c.ID, err)
		}
		if seen[c.ID] {
			t.Errorf("duplicate id %s", c.ID)
		}
		seen[c.ID] = true
	}
	got[0].Name = "changed"
	if Defaults()[0].Name == "changed" {
		t.Errorf("Defaults returned shared storage")
	}
}
