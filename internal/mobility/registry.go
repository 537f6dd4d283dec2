package mobility

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// EndpointID identifies a radio endpoint.
type EndpointID string

// NewEndpointID returns a random, unique endpoint identity.
func NewEndpointID() EndpointID {
	return EndpointID(uuid.New().String())
}

// ErrDuplicateEndpoint is returned when an identity is registered twice.
var ErrDuplicateEndpoint = errors.New("endpoint already registered")

// PositionProvider reports the current position of an endpoint.
type PositionProvider interface {
	Position() Vector
}

// ConstantPosition is a PositionProvider that only moves when told to.
type ConstantPosition struct {
	pos Vector
}

// NewConstantPosition creates a provider fixed at pos.
func NewConstantPosition(pos Vector) *ConstantPosition {
	return &ConstantPosition{pos: pos}
}

// Position implements PositionProvider.
func (c *ConstantPosition) Position() Vector { return c.pos }

// SetPosition moves the endpoint.
func (c *ConstantPosition) SetPosition(pos Vector) { c.pos = pos }

// Registry maps endpoint identities to their position providers.
// The registry never owns the providers; callers may keep updating them.
type Registry struct {
	providers map[EndpointID]PositionProvider
	order     []EndpointID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[EndpointID]PositionProvider)}
}

// Register binds id to p.
func (r *Registry) Register(id EndpointID, p PositionProvider) error {
	if id == "" {
		return fmt.Errorf("register endpoint: empty id")
	}
	if p == nil {
		return fmt.Errorf("register endpoint %s: nil position provider", id)
	}
	if _, ok := r.providers[id]; ok {
		return fmt.Errorf("register endpoint %s: %w", id, ErrDuplicateEndpoint)
	}
	r.providers[id] = p
	r.order = append(r.order, id)
	return nil
}

// Lookup returns the provider registered for id.
func (r *Registry) Lookup(id EndpointID) (PositionProvider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// Position returns the current position of id.
func (r *Registry) Position(id EndpointID) (Vector, bool) {
	p, ok := r.providers[id]
	if !ok {
		return Vector{}, false
	}
	return p.Position(), true
}

// IDs returns the registered identities in registration order.
func (r *Registry) IDs() []EndpointID {
	ids := make([]EndpointID, len(r.order))
	copy(ids, r.order)
	return ids
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int { return len(r.order) }
