package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/faucetdb/foliogate/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("") // in-memory
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSettingsCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetSetting(ctx, "missing")
	if err != nil {
		t.Fatalf("GetSetting missing: %v", err)
	}
	if got != "" {
		t.Errorf("missing key returned %q, want empty", got)
	}

	if err := s.SetSetting(ctx, "k", "v1"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := s.SetSetting(ctx, "k", "v2"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	got, _ = s.GetSetting(ctx, "k")
	if got != "v2" {
		t.Errorf("got %q, want v2", got)
	}

	keys, err := s.ListSettingKeys(ctx)
	if err != nil {
		t.Fatalf("ListSettingKeys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "k" {
		t.Errorf("keys = %v", keys)
	}

	if err := s.DeleteSetting(ctx, "k"); err != nil {
		t.Fatalf("DeleteSetting: %v", err)
	}
	got, _ = s.GetSetting(ctx, "k")
	if got != "" {
		t.Errorf("deleted key returned %q", got)
	}
	if err := s.DeleteSetting(ctx, "k"); err != nil {
		t.Errorf("deleting absent key: %v", err)
	}
}

func TestCompareAndSwapSetting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.CompareAndSwapSetting(ctx, "k", "", "a")
	if err != nil || !ok {
		t.Fatalf("insert swap: ok=%v err=%v", ok, err)
	}
	ok, _ = s.CompareAndSwapSetting(ctx, "k", "", "b")
	if ok {
		t.Error("insert swap should fail when key exists")
	}
	ok, _ = s.CompareAndSwapSetting(ctx, "k", "stale", "b")
	if ok {
		t.Error("swap with stale value should fail")
	}
	ok, _ = s.CompareAndSwapSetting(ctx, "k", "a", "b")
	if !ok {
		t.Error("swap with current value should succeed")
	}
	got, _ := s.GetSetting(ctx, "k")
	if got != "b" {
		t.Errorf("got %q, want b", got)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.SetSetting(ctx, "k", "v"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	s.Close()

	s2, err := NewStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, _ := s2.GetSetting(ctx, "k")
	if got != "v" {
		t.Errorf("got %q after reopen, want v", got)
	}

	var version int
	if err := s2.db.Get(&version, `PRAGMA user_version`); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if version != len(schema) {
		t.Errorf("user_version = %d, want %d", version, len(schema))
	}
}

func TestCatalog(t *testing.T) {
	c := NewCatalog([]model.Project{
		{Slug: "b", Title: "Bravo", Protected: true},
		{Slug: "a", Title: "Alpha"},
		{Slug: ""},
	})

	if got := c.Title("b"); got != "Bravo" {
		t.Errorf("Title(b) = %q", got)
	}
	if got := c.Title("zzz"); got != "zzz" {
		t.Errorf("Title fallback = %q", got)
	}
	if c.IsProtected("a") {
		t.Error("a should be unprotected")
	}
	if !c.IsProtected("zzz") {
		t.Error("unknown project should be protected")
	}
	if _, err := c.Get("zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get unknown: %v, want ErrNotFound", err)
	}
	list := c.List()
	if len(list) != 2 || list[0].Slug != "a" {
		t.Errorf("List = %+v", list)
	}

	var nilCatalog *Catalog
	if got := nilCatalog.Title("x"); got != "x" {
		t.Errorf("nil catalog Title = %q", got)
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := "projects:\n  - slug: secret-work\n    title: Secret Work\n    protected: true\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	p, err := c.Get("secret-work")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Title != "Secret Work" || !p.Protected {
		t.Errorf("got %+v", p)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FOLIOGATE_TEST_DOTENV=loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FOLIOGATE_TEST_DOTENV", "")
	os.Unsetenv("FOLIOGATE_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("FOLIOGATE_TEST_DOTENV"); got != "loaded" {
		t.Errorf("env = %q, want loaded", got)
	}
}
