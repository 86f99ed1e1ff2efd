// Package identity defines the records kept inside the encrypted store.
// The vault core treats all of this as opaque bytes; only the service
// layer and the CLI ever see the decoded structures.
package identity

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Identity is the complete stored record for one service.
type Identity struct {
	Service      string        `json:"service"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Credentials  Credentials   `json:"credentials"`
	PersonalInfo *PersonalInfo `json:"personal_info,omitempty"`
	Notes        string        `json:"notes,omitempty"`
}

// Credentials holds the authentication material for a service.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Alias    string `json:"alias,omitempty"`
}

// PersonalInfo holds optional profile data attached to an identity.
type PersonalInfo struct {
	FirstName    string        `json:"first_name,omitempty"`
	LastName     string        `json:"last_name,omitempty"`
	Birthdate    string        `json:"birthdate,omitempty"`
	Address      string        `json:"address,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
}

// CustomField is a free-form key-value pair.
type CustomField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// New returns an identity stamped with the current time.
func New(service string, creds Credentials) Identity {
	now := time.Now().UTC()
	return Identity{
		Service:     service,
		CreatedAt:   now,
		UpdatedAt:   now,
		Credentials: creds,
	}
}

// Collection is the serialized mapping of service name to identity that
// lives inside the encrypted store.
type Collection struct {
	Identities map[string]Identity `json:"identities"`
}

// NewCollection returns an empty collection ready for use.
func NewCollection() Collection {
	return Collection{Identities: make(map[string]Identity)}
}

// Decode parses a serialized collection.
func Decode(data []byte) (Collection, error) {
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode identities: %w", err)
	}
	if c.Identities == nil {
		c.Identities = make(map[string]Identity)
	}
	return c, nil
}

// Encode serializes the collection for sealing.
func (c Collection) Encode() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode identities: %w", err)
	}
	return data, nil
}

// Add inserts a new identity; the service name must be unused.
func (c Collection) Add(id Identity) error {
	if _, ok := c.Identities[id.Service]; ok {
		return fmt.Errorf("identity for service %q already exists", id.Service)
	}
	c.Identities[id.Service] = id
	return nil
}

// Get returns the identity for a service.
func (c Collection) Get(service string) (Identity, error) {
	id, ok := c.Identities[service]
	if !ok {
		return Identity{}, fmt.Errorf("identity for service %q not found", service)
	}
	return id, nil
}

// Update replaces an existing identity and bumps its timestamp.
func (c Collection) Update(service string, id Identity) error {
	if _, ok := c.Identities[service]; !ok {
		return fmt.Errorf("identity for service %q not found", service)
	}
	id.UpdatedAt = time.Now().UTC()
	c.Identities[service] = id
	return nil
}

// Delete removes the identity for a service.
func (c Collection) Delete(service string) error {
	if _, ok := c.Identities[service]; !ok {
		return fmt.Errorf("identity for service %q not found", service)
	}
	delete(c.Identities, service)
	return nil
}

// Services returns all service names, sorted.
func (c Collection) Services() []string {
	names := make([]string, 0, len(c.Identities))
	for name := range c.Identities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
