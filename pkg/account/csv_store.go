package account

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"
)

// CSVStore implements Store over a plain CSV file with a
// "name,cookies" header row. This is the operator-facing source: drop
// session cookies into the file and the pool picks them up on reload.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

// NewCSVStore creates a CSV-backed credential store. The file does not
// need to exist yet.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) readAll() ([]*Credential, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse accounts file: %w", err)
	}

	var creds []*Credential
	for i, row := range rows {
		// Skip the header row
		if i == 0 && len(row) > 0 && row[0] == "name" {
			continue
		}
		if len(row) < 2 || row[0] == "" || row[1] == "" {
			continue
		}
		creds = append(creds, &Credential{
			Name:    row[0],
			Cookies: row[1],
			Status:  StatusActive,
		})
	}
	return creds, nil
}

func (s *CSVStore) writeAll(creds []*Credential) error {
	tempFile := s.path + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create accounts file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"name", "cookies"}); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}
	for _, cred := range creds {
		if err := writer.Write([]string{cred.Name, cred.Cookies}); err != nil {
			f.Close()
			os.Remove(tempFile)
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, s.path)
}

// Store saves a credential, replacing any existing row with the same name
func (s *CSVStore) Store(cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cred == nil || cred.Name == "" {
		return ErrInvalidCredentials
	}
	cred.LastModified = time.Now()

	creds, err := s.readAll()
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	replaced := false
	for i, existing := range creds {
		if existing.Name == cred.Name {
			creds[i] = cred
			replaced = true
			break
		}
	}
	if !replaced {
		creds = append(creds, cred)
	}

	return s.writeAll(creds)
}

// Retrieve gets a credential by name
func (s *CSVStore) Retrieve(name string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		return nil, ErrInvalidCredentials
	}

	creds, err := s.readAll()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCredentialsNotFound
		}
		return nil, err
	}

	for _, cred := range creds {
		if cred.Name == name {
			return cred, nil
		}
	}
	return nil, ErrCredentialsNotFound
}

// List returns all credentials in file order
func (s *CSVStore) List() ([]*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.readAll()
	if err != nil {
		if os.IsNotExist(err) {
			return []*Credential{}, nil
		}
		return nil, err
	}
	return creds, nil
}

// Delete removes a credential by name
func (s *CSVStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		return ErrInvalidCredentials
	}

	creds, err := s.readAll()
	if err != nil {
		if os.IsNotExist(err) {
			return ErrCredentialsNotFound
		}
		return err
	}

	kept := creds[:0]
	found := false
	for _, cred := range creds {
		if cred.Name == name {
			found = true
			continue
		}
		kept = append(kept, cred)
	}
	if !found {
		return ErrCredentialsNotFound
	}

	return s.writeAll(kept)
}

// Exists checks if a credential exists for a name
func (s *CSVStore) Exists(name string) bool {
	cred, err := s.Retrieve(name)
	return err == nil && cred != nil
}
