package config

import (
	"bytes"
	"errors"
	"testing"

	"github.com/relloyd/obspipe/constants"
	"github.com/relloyd/obspipe/rdbms/shared"
)

func TestEncryptDecrypt(t *testing.T) {
	key := fileKey()
	plain := []byte("api:\n  password: secret\n")
	sealed, err := Encrypt(plain, key)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(sealed, []byte("secret")) {
		t.Fatal("expected the sealed bytes not to contain the plain text")
	}
	got, err := Decrypt(sealed, key)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(plain, got) {
		t.Fatalf("expected %q; got %q", plain, got)
	}
	if _, err = Decrypt(sealed[:4], key); err == nil {
		t.Fatal("expected error decrypting short text")
	}
	other := make([]byte, 32)
	if _, err = Decrypt(sealed, other); err == nil {
		t.Fatal("expected error decrypting with the wrong key")
	}
}

func TestConfigKeyFromEnv(t *testing.T) {
	t.Setenv("OP_CONFIG_KEY", "my passphrase")
	k := fileKey()
	if len(k) != 32 {
		t.Fatalf("expected a 32 byte key; got %v", len(k))
	}
	if bytes.Equal(k, defaultFileKey) {
		t.Fatal("expected the key to be derived from OP_CONFIG_KEY")
	}
}

func TestFileSetGetDelete(t *testing.T) {
	dir := t.TempDir()
	f := NewFile(dir, "test.yaml")
	var s string
	if err := f.Get("missing", &s); !errors.As(err, &KeyNotFoundError{}) {
		t.Fatalf("expected KeyNotFoundError; got %v", err)
	}
	if err := f.Set("b", "two"); err != nil {
		t.Fatal(err)
	}
	if err := f.Set("a", 1); err != nil {
		t.Fatal(err)
	}
	if err := f.Get("b", &s); err != nil || s != "two" {
		t.Fatalf("expected two; got %q (%v)", s, err)
	}
	if err := f.Get("b", s); err == nil {
		t.Fatal("expected error for a non-pointer out value")
	}
	// Reload from disk.
	g := NewFile(dir, "test.yaml")
	keys, err := g.GetAllKeys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if err = g.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if err = g.Delete("a"); !errors.As(err, &KeyNotFoundError{}) {
		t.Fatalf("expected KeyNotFoundError; got %v", err)
	}
	keys, _ = NewFile(dir, "test.yaml").GetAllKeys()
	if len(keys) != 1 || keys[0] != "b" {
		t.Fatalf("unexpected keys after delete %v", keys)
	}
}

func TestConnections(t *testing.T) {
	f := NewFile(t.TempDir(), ConnectionsFileFullName)
	if err := f.SaveConnection(shared.ConnectionDetails{LogicalName: "wh"}); err == nil {
		t.Fatal("expected error saving a connection without a type")
	}
	d := shared.ConnectionDetails{
		Type:        constants.ConnectionTypeDuckDB,
		LogicalName: "wh",
		Data:        map[string]string{"dsn": "/tmp/jcr.duckdb"},
	}
	if err := f.SaveConnection(d); err != nil {
		t.Fatal(err)
	}
	got, err := f.LoadConnection("wh")
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != d.Type || got.LogicalName != "wh" || got.Data["dsn"] != "/tmp/jcr.duckdb" {
		t.Fatalf("unexpected connection %+v", got)
	}
	if _, err = f.LoadConnection("nope"); err == nil {
		t.Fatal("expected error loading a missing connection")
	}
}

func TestAPICredentials(t *testing.T) {
	f := NewFile(t.TempDir(), CredentialsFileFullName)
	if err := SaveAPICredentials(f, APICredentials{BaseURL: "not a url", UserLogonID: "u", Password: "p"}); err == nil {
		t.Fatal("expected error saving an invalid base URL")
	}
	a := APICredentials{BaseURL: "https://api.example.com", UserLogonID: "jcr@example.com", Password: "pw"}
	if err := SaveAPICredentials(f, a); err != nil {
		t.Fatal(err)
	}
	got, err := LoadAPICredentials(NewFile(f.f.Dirname, CredentialsFileFullName))
	if err != nil {
		t.Fatal(err)
	}
	if got != a {
		t.Fatalf("expected %+v; got %+v", a, got)
	}
	if bytes.Contains([]byte(got.String()), []byte("pw")) {
		t.Fatal("expected the password to be hidden")
	}
}

func TestSetHomeDir(t *testing.T) {
	old := obspipeHomeDir
	defer SetHomeDir(old)
	dir := t.TempDir()
	SetHomeDir(dir)
	if err := Main.Set("k", "v"); err != nil {
		t.Fatal(err)
	}
	if !fileExists(Main.FullPath) {
		t.Fatalf("expected config file %v to exist", Main.FullPath)
	}
}
