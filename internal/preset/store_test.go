package preset

import (
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/dokzlo13/lightboard/internal/db"
	"github.com/dokzlo13/lightboard/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.MemoryStore) {
	t.Helper()
	backend := storage.NewMemoryStore()
	return NewStore(NewRecords(backend)), backend
}

func TestStore_SaveWithHint(t *testing.T) {
	s, _ := newTestStore(t)

	in := Preset{Name: "Foo", Color1: "#FF0000", Brightness1: 80, Color2: "#0000FF", Brightness2: 20}
	got, err := s.Save(in)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got != in {
		t.Errorf("Save() = %+v, want %+v", got, in)
	}

	list := s.List()
	if len(list) != 1 || list[0] != in {
		t.Fatalf("List() = %+v, want [%+v]", list, in)
	}
}

func TestStore_SaveTakesPoolName(t *testing.T) {
	s, _ := newTestStore(t)
	s.InitNames([]string{"Aboleth", "Beholder", "Chuul"})

	got, err := s.Save(Preset{Brightness1: 10, Brightness2: 10})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	names := s.Names()
	if len(names.Available) != 2 || len(names.Used) != 1 {
		t.Fatalf("pool after save = %+v, want 2 available, 1 used", names)
	}
	if names.Used[0] != got.Name {
		t.Errorf("used name = %q, returned name = %q", names.Used[0], got.Name)
	}
	for _, n := range names.Available {
		if n == got.Name {
			t.Errorf("name %q is both available and used", n)
		}
	}
}

func TestStore_SaveFallsBackToToken(t *testing.T) {
	s, _ := newTestStore(t)

	got, err := s.Save(Preset{})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !regexp.MustCompile(`^[0-9A-F]{8}$`).MatchString(got.Name) {
		t.Errorf("fallback name = %q, want 8 upper-case hex digits", got.Name)
	}
	if names := s.Names(); len(names.Used) != 0 || len(names.Available) != 0 {
		t.Errorf("fallback must not touch the pool, got %+v", names)
	}
}

func TestStore_SaveSkipsLiveNames(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Save(Preset{Name: "Aboleth"}); err != nil {
		t.Fatal(err)
	}
	s.InitNames([]string{"Aboleth"})

	tokens := []string{"AAAAAAAA"}
	s.newToken = func() string { return tokens[0] }

	got, err := s.Save(Preset{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "AAAAAAAA" {
		t.Errorf("Save() name = %q, want token fallback", got.Name)
	}
	if len(s.List()) != 2 {
		t.Errorf("user preset was overwritten: %+v", s.List())
	}
}

func TestStore_OverwriteKeepsPosition(t *testing.T) {
	s, _ := newTestStore(t)
	for _, name := range []string{"A", "B", "C"} {
		if _, err := s.Save(Preset{Name: name, Brightness1: 1}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Save(Preset{Name: "B", Brightness1: 99}); err != nil {
		t.Fatal(err)
	}

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("List() len = %d, want 3", len(list))
	}
	if list[1].Name != "B" || list[1].Brightness1 != 99 {
		t.Errorf("List()[1] = %+v, want overwritten B in place", list[1])
	}
}

func TestStore_Delete(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Save(Preset{Name: "Foo"}); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Delete("Foo")
	if err != nil || !removed {
		t.Fatalf("first Delete() = %v, %v, want true", removed, err)
	}
	removed, err = s.Delete("Foo")
	if err != nil || removed {
		t.Fatalf("second Delete() = %v, %v, want false", removed, err)
	}
	if _, ok := s.Get("Foo"); ok {
		t.Error("Get() found deleted preset")
	}
}

func TestStore_DeleteRecyclesGeneratedName(t *testing.T) {
	s, _ := newTestStore(t)
	s.InitNames([]string{"Mimic"})

	got, err := s.Save(Preset{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Mimic" {
		t.Fatalf("Save() name = %q, want Mimic", got.Name)
	}

	if removed, _ := s.Delete("Mimic"); !removed {
		t.Fatal("Delete() = false")
	}

	names := s.Names()
	if len(names.Available) != 1 || names.Available[0] != "Mimic" || len(names.Used) != 0 {
		t.Errorf("pool after delete = %+v, want Mimic available", names)
	}
}

func TestStore_DeleteRecyclesWithoutPreset(t *testing.T) {
	s, _ := newTestStore(t)
	s.InitNames([]string{"Owlbear"})
	s.pool.Take()

	removed, err := s.Delete("Owlbear")
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Error("Delete() = true for a name with no preset")
	}
	if !s.pool.IsAvailable("Owlbear") {
		t.Error("used name was not recycled")
	}
}

func TestStore_LoadSkipsMalformed(t *testing.T) {
	backend := storage.NewMemoryStore()
	if err := backend.Set(Kind, "Good", []byte(`{"color1":"#FFFFFF","brightness1":50,"color2":"","brightness2":50}`)); err != nil {
		t.Fatal(err)
	}
	if err := backend.Set(Kind, "Broken", []byte(`{"color1":"#FFFFFF"}`)); err != nil {
		t.Fatal(err)
	}

	s := NewStore(NewRecords(backend))
	n, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("Load() = %d, want 1", n)
	}
	if p, ok := s.Get("Good"); !ok || p.Brightness1 != 50 {
		t.Errorf("Get(Good) = %+v, %v", p, ok)
	}

	// Malformed records can still be removed.
	removed, err := s.Delete("Broken")
	if err != nil || !removed {
		t.Errorf("Delete(Broken) = %v, %v, want true", removed, err)
	}
}

func TestStore_InitNamesMarksLivePresetsUsed(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Save(Preset{Name: "Gelatinous Cube"}); err != nil {
		t.Fatal(err)
	}

	added := s.InitNames([]string{"Gelatinous Cube", "Displacer Beast"})
	if added != 1 {
		t.Errorf("InitNames() = %d, want 1", added)
	}
	if !s.pool.IsUsed("Gelatinous Cube") {
		t.Error("live preset name should be used")
	}
}

func TestStore_PersistsAcrossReload(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "presets.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	backend := storage.NewStore(database.DB)
	s := NewStore(NewRecords(backend))
	for _, name := range []string{"Zeta", "Alpha"} {
		if _, err := s.Save(Preset{Name: name, Color1: "#102030", Brightness1: 30, Brightness2: 70}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Delete("Zeta"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(Preset{Name: "Beta"}); err != nil {
		t.Fatal(err)
	}

	reloaded := NewStore(NewRecords(backend))
	if _, err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	list := reloaded.List()
	if len(list) != 2 || list[0].Name != "Alpha" || list[1].Name != "Beta" {
		t.Fatalf("reloaded List() = %+v", list)
	}
	if list[0].Color1 != "#102030" || list[0].Brightness2 != 70 {
		t.Errorf("reloaded Alpha = %+v", list[0])
	}
}

func TestStore_ReloadKeepsStoredNamesOutOfPool(t *testing.T) {
	// One user-named preset and one saved with the fallback token.
	seed := func(t *testing.T) *storage.MemoryStore {
		t.Helper()
		backend := storage.NewMemoryStore()
		s := NewStore(NewRecords(backend))
		s.newToken = func() string { return "1978258B" }
		for _, p := range []Preset{{Name: "Movie Night"}, {}} {
			if _, err := s.Save(p); err != nil {
				t.Fatal(err)
			}
		}
		return backend
	}

	t.Run("delete", func(t *testing.T) {
		reloaded := NewStore(NewRecords(seed(t)))
		if _, err := reloaded.Load(); err != nil {
			t.Fatal(err)
		}
		reloaded.InitNames([]string{"Lich"})
		for _, name := range []string{"Movie Night", "1978258B"} {
			if removed, err := reloaded.Delete(name); err != nil || !removed {
				t.Fatalf("Delete(%q) = %v, %v", name, removed, err)
			}
		}

		names := reloaded.Names()
		if len(names.Available) != 1 || names.Available[0] != "Lich" || len(names.Used) != 0 {
			t.Errorf("pool = %+v, want only Lich available", names)
		}
		p, err := reloaded.Save(Preset{})
		if err != nil {
			t.Fatal(err)
		}
		if p.Name != "Lich" {
			t.Errorf("generated name = %q, want Lich", p.Name)
		}
	})

	t.Run("clear", func(t *testing.T) {
		reloaded := NewStore(NewRecords(seed(t)))
		if _, err := reloaded.Load(); err != nil {
			t.Fatal(err)
		}
		if err := reloaded.Clear(); err != nil {
			t.Fatal(err)
		}
		if names := reloaded.Names(); len(names.Available) != 0 || len(names.Used) != 0 {
			t.Errorf("pool after Clear = %+v, want empty", names)
		}
	})
}

func TestStore_Clear(t *testing.T) {
	s, _ := newTestStore(t)
	s.InitNames([]string{"Kobold"})
	if _, err := s.Save(Preset{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if len(s.List()) != 0 {
		t.Error("List() not empty after Clear")
	}
	if !s.pool.IsAvailable("Kobold") {
		t.Error("Clear should recycle used names")
	}
}

type failingBackend struct {
	storage.Backend
}

func (failingBackend) Set(string, string, []byte) error {
	return errors.New("disk full")
}

func TestStore_FailedSaveReleasesName(t *testing.T) {
	s := NewStore(NewRecords(failingBackend{Backend: storage.NewMemoryStore()}))
	s.InitNames([]string{"Tarrasque"})

	if _, err := s.Save(Preset{}); err == nil {
		t.Fatal("Save() expected error")
	}
	if !s.pool.IsAvailable("Tarrasque") {
		t.Error("name should return to the pool after a failed save")
	}
	if len(s.List()) != 0 {
		t.Error("failed save must not be visible")
	}
}

func TestStore_RejectsInvalid(t *testing.T) {
	s, _ := newTestStore(t)
	s.InitNames([]string{"Yeti"})

	if _, err := s.Save(Preset{Brightness1: 120}); !errors.Is(err, ErrInvalidBrightness) {
		t.Fatalf("Save() error = %v, want ErrInvalidBrightness", err)
	}
	if !s.pool.IsAvailable("Yeti") {
		t.Error("invalid save must not consume a name")
	}
}

func TestStore_ConcurrentSaves(t *testing.T) {
	s, _ := newTestStore(t)
	pool := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	s.InitNames(pool)

	var wg sync.WaitGroup
	results := make(chan string, len(pool))
	for range pool {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.Save(Preset{})
			if err != nil {
				t.Error(err)
				return
			}
			results <- p.Name
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for name := range results {
		if seen[name] {
			t.Errorf("name %q handed out twice", name)
		}
		seen[name] = true
	}
	if names := s.Names(); len(names.Available) != 0 || len(names.Used) != len(pool) {
		t.Errorf("pool = %+v", names)
	}
}
