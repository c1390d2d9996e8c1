package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// User is an entry of the users file
type User struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Directory resolves player ids to display names
type Directory struct {
	names map[uuid.UUID]string
	mu    sync.RWMutex
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{names: make(map[uuid.UUID]string)}
}

// LoadDirectory creates a directory seeded from a JSON array of users.
// A missing file yields an empty directory.
func LoadDirectory(path string) (*Directory, error) {
	d := NewDirectory()
	if path == "" {
		return d, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}
	for _, u := range users {
		d.Register(u.ID, u.Name)
	}
	return d, nil
}

// Register records or replaces the name of a player. Blank names are ignored.
func (d *Directory) Register(id uuid.UUID, name string) {
	name = strings.TrimSpace(name)
	if id == uuid.Nil || name == "" {
		return
	}

	d.mu.Lock()
	d.names[id] = name
	d.mu.Unlock()
}

// NameOf returns the display name of a player
func (d *Directory) NameOf(id uuid.UUID) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.names[id]
	return name, ok
}

// Len returns the number of known players
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.names)
}
