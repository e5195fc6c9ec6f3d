package oauth

import (
	"crypto/subtle"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Client is a registered OAuth application.
type Client struct {
	ID          string   `yaml:"id" json:"id"`
	Secret      string   `yaml:"secret" json:"secret"`
	DisplayName string   `yaml:"display_name" json:"display_name"`
	Scopes      []string `yaml:"scopes" json:"scopes"`
}

// ClientRegistry holds the registered clients. The set is fixed at
// startup; client CRUD belongs to deployment tooling, not this service.
type ClientRegistry struct {
	byID map[string]Client
}

// NewClientRegistry builds a registry from explicit clients (tests, seeds).
func NewClientRegistry(clients ...Client) *ClientRegistry {
	r := &ClientRegistry{byID: map[string]Client{}}
	for _, c := range clients {
		r.byID[c.ID] = c
	}
	return r
}

// LoadClients reads a YAML registry file:
//
//	clients:
//	  - id: web-app
//	    secret: s3cr3t
//	    display_name: Web App
//	    scopes: [openid, profile, email, api]
func LoadClients(path string) (*ClientRegistry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("clients file: %w", err)
	}
	var doc struct {
		Clients []Client `yaml:"clients"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("clients file: %w", err)
	}
	return NewClientRegistry(doc.Clients...), nil
}

// Find returns the client by id.
func (r *ClientRegistry) Find(id string) (Client, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Authenticate checks the client secret in constant time.
func (r *ClientRegistry) Authenticate(id, secret string) (Client, bool) {
	c, ok := r.byID[id]
	if !ok {
		return Client{}, false
	}
	if subtle.ConstantTimeCompare([]byte(c.Secret), []byte(secret)) != 1 {
		return Client{}, false
	}
	return c, true
}
