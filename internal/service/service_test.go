package service_test

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Hussein-Mazeh/aliaser/internal/identity"
	"github.com/Hussein-Mazeh/aliaser/internal/service"
	"github.com/Hussein-Mazeh/aliaser/internal/vault"
)

const masterPassword = "correct horse battery staple"

func newUnlockedService(t *testing.T, dir string) *service.Service {
	t.Helper()
	svc := service.New(dir, nil, zerolog.Nop())
	if err := svc.Initialize([]byte(masterPassword), false); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func TestIdentityLifecycleThroughService(t *testing.T) {
	dir := t.TempDir()
	svc := newUnlockedService(t, dir)

	id := identity.New("github", identity.Credentials{Username: "alice", Password: "pw"})
	if err := svc.AddIdentity(id); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.AddIdentity(id); err == nil {
		t.Fatal("duplicate add succeeded")
	}

	names, err := svc.ListServices()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"github"}) {
		t.Fatalf("services %v, want [github]", names)
	}

	got, err := svc.GetIdentity("github")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Credentials.Password = "rotated"
	if err := svc.UpdateIdentity("github", got); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := svc.DeleteIdentity("github"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetIdentity("github"); err == nil {
		t.Fatal("get after delete succeeded")
	}
}

func TestServicePersistsAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	svc := newUnlockedService(t, dir)

	id := identity.New("demo", identity.Credentials{Username: "bob", Password: "secret"})
	if err := svc.AddIdentity(id); err != nil {
		t.Fatalf("add: %v", err)
	}
	svc.Close()

	svc2 := service.New(dir, nil, zerolog.Nop())
	defer svc2.Close()
	if !svc2.IsInitialized() {
		t.Fatal("second session reports uninitialized")
	}
	if err := svc2.Unlock([]byte(masterPassword)); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	got, err := svc2.GetIdentity("demo")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Credentials.Username != "bob" {
		t.Fatalf("username %q, want bob", got.Credentials.Username)
	}
}

func TestServiceRotateMaster(t *testing.T) {
	dir := t.TempDir()
	svc := newUnlockedService(t, dir)

	id := identity.New("demo", identity.Credentials{Username: "bob", Password: "secret"})
	if err := svc.AddIdentity(id); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.RotateMaster([]byte(masterPassword), []byte("the new master secret")); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	svc.Close()

	svc2 := service.New(dir, nil, zerolog.Nop())
	defer svc2.Close()
	if err := svc2.Unlock([]byte(masterPassword)); !errors.Is(err, vault.ErrAuthentication) {
		t.Fatalf("old password: got %v, want ErrAuthentication", err)
	}
	if err := svc2.Unlock([]byte("the new master secret")); err != nil {
		t.Fatalf("unlock with new password: %v", err)
	}
	if _, err := svc2.GetIdentity("demo"); err != nil {
		t.Fatalf("get after rotation: %v", err)
	}
}

func TestServiceExportImport(t *testing.T) {
	dir := t.TempDir()
	svc := newUnlockedService(t, dir)

	if err := svc.AddIdentity(identity.New("keep", identity.Credentials{Username: "u"})); err != nil {
		t.Fatalf("add: %v", err)
	}

	backup := filepath.Join(t.TempDir(), "backup.vault")
	if err := svc.Export(backup); err != nil {
		t.Fatalf("export: %v", err)
	}

	if err := svc.DeleteIdentity("keep"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Import(backup); err != nil {
		t.Fatalf("import: %v", err)
	}

	if _, err := svc.GetIdentity("keep"); err != nil {
		t.Fatalf("get after import: %v", err)
	}
}

func TestServiceImportRejectsNonCollectionPayload(t *testing.T) {
	dir := t.TempDir()
	svc := newUnlockedService(t, dir)
	if err := svc.AddIdentity(identity.New("keep", identity.Credentials{Username: "u"})); err != nil {
		t.Fatalf("add: %v", err)
	}
	svc.Close()

	// Craft a backup that decrypts under the vault key but does not hold
	// an identity collection.
	mgr := vault.New(dir, nil)
	if err := mgr.Unlock([]byte(masterPassword)); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	orig, err := mgr.ReadStore()
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if err := mgr.WriteStore([]byte("not an identity collection")); err != nil {
		t.Fatalf("write bogus store: %v", err)
	}
	bogus := filepath.Join(t.TempDir(), "bogus.vault")
	if err := mgr.Export(bogus); err != nil {
		t.Fatalf("export bogus: %v", err)
	}
	if err := mgr.WriteStore(orig); err != nil {
		t.Fatalf("restore store: %v", err)
	}
	mgr.Close()

	svc2 := service.New(dir, nil, zerolog.Nop())
	defer svc2.Close()
	if err := svc2.Unlock([]byte(masterPassword)); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := svc2.Import(bogus); !errors.Is(err, vault.ErrFormat) {
		t.Fatalf("import non-collection payload: got %v, want ErrFormat", err)
	}
	if _, err := svc2.GetIdentity("keep"); err != nil {
		t.Fatalf("store damaged by rejected import: %v", err)
	}
}
