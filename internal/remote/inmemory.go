// Package remote provides RemoteClientSet implementations: an in-memory
// collection used by tests and a JSON-file-backed collection used by the
// CLI for local targets.
package remote

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/confsync/confsync/internal/interfaces"
)

var errResourceExists = errors.New("resource already exists")
var errResourceMissing = errors.New("resource does not exist")

// InMemoryClientSet keeps every collection in process memory. Error
// injection hooks let tests simulate remote failure modes per key.
type InMemoryClientSet struct {
	mu      sync.Mutex
	records map[interfaces.ResourceType]map[string]map[string]interface{}
	// failures maps (op, key) to an injected error returned instead of
	// performing the operation. One-shot entries are removed after use.
	failures map[failureKey]*injectedFailure
	calls    []Call
}

// Call records one mutating operation for test assertions.
type Call struct {
	Op  string
	Key interfaces.ResourceKey
}

type failureKey struct {
	op  string
	key interfaces.ResourceKey
}

type injectedFailure struct {
	err     error
	oneShot bool
}

// NewInMemoryClientSet returns an empty in-memory platform.
func NewInMemoryClientSet() *InMemoryClientSet {
	return &InMemoryClientSet{
		records:  make(map[interfaces.ResourceType]map[string]map[string]interface{}),
		failures: make(map[failureKey]*injectedFailure),
	}
}

// Seed stores a record directly, bypassing the client surface.
func (s *InMemoryClientSet) Seed(resourceType interfaces.ResourceType, externalID string, fields map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.records[resourceType]
	if !ok {
		byID = make(map[string]map[string]interface{})
		s.records[resourceType] = byID
	}
	byID[externalID] = fields
}

// Get returns the stored fields for a key, if present.
func (s *InMemoryClientSet) Get(key interfaces.ResourceKey) (map[string]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.records[key.Type][key.ExternalID]
	return fields, ok
}

// FailWith injects an error for every matching operation until cleared.
func (s *InMemoryClientSet) FailWith(op string, key interfaces.ResourceKey, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[failureKey{op: op, key: key}] = &injectedFailure{err: err}
}

// FailOnce injects an error consumed by the first matching operation;
// subsequent calls succeed. Used to exercise retry behavior.
func (s *InMemoryClientSet) FailOnce(op string, key interfaces.ResourceKey, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[failureKey{op: op, key: key}] = &injectedFailure{err: err, oneShot: true}
}

// Calls returns the mutating operations performed, in order.
func (s *InMemoryClientSet) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]Call, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// ForType implements interfaces.RemoteClientSet.
func (s *InMemoryClientSet) ForType(resourceType interfaces.ResourceType) (interfaces.ResourceClient, error) {
	return &inMemoryClient{set: s, resourceType: resourceType}, nil
}

func (s *InMemoryClientSet) injected(op string, key interfaces.ResourceKey) error {
	fk := failureKey{op: op, key: key}
	if failure, ok := s.failures[fk]; ok {
		if failure.oneShot {
			delete(s.failures, fk)
		}
		return failure.err
	}
	return nil
}

type inMemoryClient struct {
	set          *InMemoryClientSet
	resourceType interfaces.ResourceType
}

// List implements interfaces.ResourceClient.
func (c *inMemoryClient) List(_ context.Context) ([]interfaces.RemoteRecord, error) {
	c.set.mu.Lock()
	defer c.set.mu.Unlock()

	if err := c.set.injected("list", interfaces.MakeResourceKey(c.resourceType, "")); err != nil {
		return nil, err
	}

	byID := c.set.records[c.resourceType]
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]interfaces.RemoteRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, interfaces.RemoteRecord{
			Type:       c.resourceType,
			ExternalID: id,
			Fields:     byID[id],
		})
	}
	return records, nil
}

// Create implements interfaces.ResourceClient.
func (c *inMemoryClient) Create(_ context.Context, externalID string, payload map[string]interface{}) error {
	c.set.mu.Lock()
	defer c.set.mu.Unlock()

	key := interfaces.MakeResourceKey(c.resourceType, externalID)
	c.set.calls = append(c.set.calls, Call{Op: "create", Key: key})
	if err := c.set.injected("create", key); err != nil {
		return err
	}

	byID, ok := c.set.records[c.resourceType]
	if !ok {
		byID = make(map[string]map[string]interface{})
		c.set.records[c.resourceType] = byID
	}
	if _, exists := byID[externalID]; exists {
		return interfaces.NewRemoteError(interfaces.RemoteErrorConflict, "create", key, errResourceExists)
	}
	byID[externalID] = payload
	return nil
}

// Update implements interfaces.ResourceClient.
func (c *inMemoryClient) Update(_ context.Context, externalID string, payload map[string]interface{}) error {
	c.set.mu.Lock()
	defer c.set.mu.Unlock()

	key := interfaces.MakeResourceKey(c.resourceType, externalID)
	c.set.calls = append(c.set.calls, Call{Op: "update", Key: key})
	if err := c.set.injected("update", key); err != nil {
		return err
	}

	byID := c.set.records[c.resourceType]
	if _, exists := byID[externalID]; !exists {
		return interfaces.NewRemoteError(interfaces.RemoteErrorNotFound, "update", key, errResourceMissing)
	}
	byID[externalID] = payload
	return nil
}

// Delete implements interfaces.ResourceClient.
func (c *inMemoryClient) Delete(_ context.Context, externalID string) error {
	c.set.mu.Lock()
	defer c.set.mu.Unlock()

	key := interfaces.MakeResourceKey(c.resourceType, externalID)
	c.set.calls = append(c.set.calls, Call{Op: "delete", Key: key})
	if err := c.set.injected("delete", key); err != nil {
		return err
	}

	byID := c.set.records[c.resourceType]
	if _, exists := byID[externalID]; !exists {
		return interfaces.NewRemoteError(interfaces.RemoteErrorNotFound, "delete", key, errResourceMissing)
	}
	delete(byID, externalID)
	return nil
}
