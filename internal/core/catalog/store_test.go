package catalog

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Nutrient{}, &NutrientAlias{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db)
}

func mustUpsertNutrient(t *testing.T, store *Store, externalID int, name string) *Nutrient {
	t.Helper()
	n, _, _, err := store.UpsertNutrientByExternalID(externalID, Nutrient{
		Name:     name,
		Unit:     "mg",
		Category: CategoryMineral,
	}, true)
	if err != nil {
		t.Fatalf("upsert %q: %v", name, err)
	}
	return n
}

// aliasOwners 回傳 alias 名稱 → 擁有它的 canonical 名稱
func aliasOwners(t *testing.T, store *Store) map[string]string {
	t.Helper()
	nutrients, err := store.ListNutrientsWithAliases()
	if err != nil {
		t.Fatalf("list nutrients: %v", err)
	}
	owners := make(map[string]string)
	for _, n := range nutrients {
		for _, a := range n.Aliases {
			if prev, dup := owners[a.Name]; dup {
				t.Fatalf("alias %q owned by both %q and %q", a.Name, prev, n.Name)
			}
			owners[a.Name] = n.Name
		}
	}
	return owners
}

func TestReplaceAliasesSkipsCanonicalNameCollision(t *testing.T) {
	store := testStore(t)
	ca := mustUpsertNutrient(t, store, 1087, "Calcium, Ca")
	mustUpsertNutrient(t, store, 1090, "Magnesium, Mg")

	// 第二個別名撞到 Magnesium 的 canonical 名稱，必須被略過
	created, err := store.ReplaceAliases(ca, []string{"Calcium", "Magnesium, Mg"})
	if err != nil {
		t.Fatalf("ReplaceAliases: %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}

	owners := aliasOwners(t, store)
	if owners["Calcium"] != "Calcium, Ca" {
		t.Errorf("Calcium owned by %q, want Calcium, Ca", owners["Calcium"])
	}
	if _, exists := owners["Magnesium, Mg"]; exists {
		t.Error("alias shadowing another nutrient's canonical name was created")
	}
}

func TestReplaceAliasesKeepsAliasSetsDisjoint(t *testing.T) {
	store := testStore(t)
	ca := mustUpsertNutrient(t, store, 1087, "Calcium, Ca")
	mg := mustUpsertNutrient(t, store, 1090, "Magnesium, Mg")

	if _, err := store.ReplaceAliases(ca, []string{"Calcium"}); err != nil {
		t.Fatalf("ReplaceAliases(ca): %v", err)
	}

	// "Calcium" 已屬於另一個營養素，唯一索引擋下後該別名被略過
	created, err := store.ReplaceAliases(mg, []string{"Calcium", "Magnesium"})
	if err != nil {
		t.Fatalf("ReplaceAliases(mg): %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1 (colliding alias skipped)", created)
	}

	owners := aliasOwners(t, store)
	if owners["Calcium"] != "Calcium, Ca" {
		t.Errorf("Calcium owned by %q, want original owner Calcium, Ca", owners["Calcium"])
	}
	if owners["Magnesium"] != "Magnesium, Mg" {
		t.Errorf("Magnesium owned by %q, want Magnesium, Mg", owners["Magnesium"])
	}
}

func TestReplaceAliasesReplacesOldSet(t *testing.T) {
	store := testStore(t)
	ca := mustUpsertNutrient(t, store, 1087, "Calcium, Ca")

	if _, err := store.ReplaceAliases(ca, []string{"Calcium", "Ca"}); err != nil {
		t.Fatalf("ReplaceAliases: %v", err)
	}
	if _, err := store.ReplaceAliases(ca, []string{"Calcium"}); err != nil {
		t.Fatalf("ReplaceAliases (second run): %v", err)
	}

	owners := aliasOwners(t, store)
	if len(owners) != 1 {
		t.Errorf("aliases = %v, want only Calcium after replacement", owners)
	}
	if _, stale := owners["Ca"]; stale {
		t.Error("stale alias Ca survived replacement")
	}
}
