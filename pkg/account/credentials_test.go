package account

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	// Use mock manager for reliable testing
	manager, mockStore := NewMockManager()

	cred := &Credential{
		Name:         "alice",
		Cookies:      "sessionid=abcdef0123456789; ttwid=xyz",
		Platform:     "douyin",
		LastModified: time.Now(),
	}

	err := manager.Store(cred)
	if err != nil {
		t.Errorf("Failed to store credential: %v", err)
	}

	// Test retrieving
	retrieved, err := manager.Retrieve("alice")
	if err != nil {
		t.Errorf("Failed to retrieve credential: %v", err)
	}

	if retrieved.Name != cred.Name {
		t.Errorf("Name mismatch: got %s, want %s", retrieved.Name, cred.Name)
	}
	if retrieved.Cookies != cred.Cookies {
		t.Errorf("Cookies mismatch: got %s, want %s", retrieved.Cookies, cred.Cookies)
	}

	// Test listing
	creds, err := manager.List()
	if err != nil {
		t.Errorf("Failed to list credentials: %v", err)
	}
	if len(creds) == 0 {
		t.Error("Expected at least one credential in list")
	}

	// Test sanitization
	sanitized := SanitizeCredential(cred)
	if sanitized.Cookies == cred.Cookies {
		t.Error("Cookies should be masked")
	}
	if sanitized.Name != cred.Name {
		t.Error("Name should not be masked")
	}

	// Test deletion
	err = manager.Delete("alice")
	if err != nil {
		t.Errorf("Failed to delete credential: %v", err)
	}

	// Verify deletion
	_, err = manager.Retrieve("alice")
	if err == nil {
		t.Error("Expected error retrieving deleted credential")
	}

	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 credentials after deletion, got %d", mockStore.Count())
	}
}

func TestCredentialValidation(t *testing.T) {
	manager, _ := NewMockManager()

	if err := manager.Store(&Credential{Cookies: "x"}); err == nil {
		t.Error("Expected error storing credential without a name")
	}
	if err := manager.Store(&Credential{Name: "bob"}); err == nil {
		t.Error("Expected error storing credential without cookies")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "test_creds.enc")

	// Set test passphrase
	os.Setenv("DYCRAWLER_PASSPHRASE", "test_passphrase_123")
	defer os.Unsetenv("DYCRAWLER_PASSPHRASE")

	store, err := NewEncryptedFileStore(tempFile)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	cred := &Credential{
		Name:    "encrypted_user",
		Cookies: "sessionid=encrypted_session",
	}

	// Store
	err = store.Store(cred)
	if err != nil {
		t.Errorf("Failed to store in encrypted file: %v", err)
	}

	// Retrieve
	retrieved, err := store.Retrieve("encrypted_user")
	if err != nil {
		t.Errorf("Failed to retrieve from encrypted file: %v", err)
	}

	if retrieved.Cookies != cred.Cookies {
		t.Errorf("Cookies mismatch after encryption/decryption")
	}

	// List
	creds, err := store.List()
	if err != nil {
		t.Errorf("Failed to list encrypted store: %v", err)
	}
	if len(creds) != 1 {
		t.Errorf("Expected 1 credential, got %d", len(creds))
	}

	// The file on disk must not contain the plaintext cookie
	content, err := os.ReadFile(tempFile)
	if err != nil {
		t.Fatalf("Failed to read encrypted file: %v", err)
	}
	if string(content) == "" {
		t.Fatal("Encrypted file is empty")
	}
	if bytes.Contains(content, []byte("encrypted_session")) {
		t.Error("Encrypted file contains plaintext cookie data")
	}

	// Delete
	err = store.Delete("encrypted_user")
	if err != nil {
		t.Errorf("Failed to delete from encrypted file: %v", err)
	}
	if store.Exists("encrypted_user") {
		t.Error("Credential should not exist after deletion")
	}
}

func TestEncryptedFileStoreWithPassphrase(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "test_creds.enc")

	if _, err := NewEncryptedFileStoreWithPassphrase(tempFile, ""); err == nil {
		t.Error("Expected an error for an empty passphrase")
	}

	store, err := NewEncryptedFileStoreWithPassphrase(tempFile, "correct horse")
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	cred := &Credential{
		Name:    "prompted_user",
		Cookies: "sessionid=prompted_session",
	}
	if err := store.Store(cred); err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}

	// A second store keyed on the same passphrase reads the file back.
	reopened, err := NewEncryptedFileStoreWithPassphrase(tempFile, "correct horse")
	if err != nil {
		t.Fatalf("Failed to reopen encrypted store: %v", err)
	}
	retrieved, err := reopened.Retrieve("prompted_user")
	if err != nil {
		t.Fatalf("Failed to retrieve credential: %v", err)
	}
	if retrieved.Cookies != cred.Cookies {
		t.Error("Cookies mismatch after reopening with the same passphrase")
	}

	// A wrong passphrase must not decrypt the file.
	wrong, err := NewEncryptedFileStoreWithPassphrase(tempFile, "battery staple")
	if err != nil {
		t.Fatalf("Failed to open store with different passphrase: %v", err)
	}
	if _, err := wrong.Retrieve("prompted_user"); err == nil {
		t.Error("Expected decryption to fail with a wrong passphrase")
	}
}

func TestCSVStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.csv")
	store := NewCSVStore(path)

	// Empty file is not an error
	creds, err := store.List()
	if err != nil {
		t.Fatalf("List on missing file failed: %v", err)
	}
	if len(creds) != 0 {
		t.Errorf("Expected empty list, got %d", len(creds))
	}

	// Store a few credentials and confirm file order is preserved
	for _, name := range []string{"first", "second", "third"} {
		if err := store.Store(&Credential{Name: name, Cookies: "sessionid=" + name}); err != nil {
			t.Fatalf("Failed to store %s: %v", name, err)
		}
	}

	creds, err = store.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(creds) != 3 {
		t.Fatalf("Expected 3 credentials, got %d", len(creds))
	}
	if creds[0].Name != "first" || creds[2].Name != "third" {
		t.Errorf("File order not preserved: %v, %v", creds[0].Name, creds[2].Name)
	}

	// Upsert keeps a single row per name
	if err := store.Store(&Credential{Name: "second", Cookies: "sessionid=updated"}); err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	updated, err := store.Retrieve("second")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if updated.Cookies != "sessionid=updated" {
		t.Errorf("Expected updated cookies, got %s", updated.Cookies)
	}

	// Delete
	if err := store.Delete("first"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if store.Exists("first") {
		t.Error("Credential should not exist after deletion")
	}
}
