// Package provider is the data access gateway for courses.
//
// Every request is addressed by a resource identifier. The provider resolves
// the identifier to the course collection or a single course, runs the
// matching single-statement operation against the repository, enforces the
// non-empty name rule, and notifies subscribers after each mutation that
// changed at least one row.
package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coursebook/internal/contract"
	"coursebook/internal/domain"
	"coursebook/internal/notify"
	"coursebook/internal/repository"
)

// Provider routes addressed requests to the repository
type Provider struct {
	repo     repository.Repository
	resolver *notify.Resolver
	log      *zap.Logger
}

// New creates a provider over repo. Notifications go through resolver.
func New(repo repository.Repository, resolver *notify.Resolver, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	if resolver == nil {
		resolver = notify.NewResolver(log)
	}
	return &Provider{
		repo:     repo,
		resolver: resolver,
		log:      log,
	}
}

// Resolver returns the change resolver notifications are sent through
func (p *Provider) Resolver() *notify.Resolver {
	return p.resolver
}

// Query returns a cursor over the courses uri addresses. For an item the
// caller's filter is replaced by the id.
func (p *Provider) Query(ctx context.Context, uri string, args QueryArgs) (*Cursor, error) {
	m, err := Resolve(uri)
	if err != nil {
		return nil, fmt.Errorf("cannot query: %w", err)
	}
	if err := validateColumns(args.Columns); err != nil {
		return nil, err
	}
	if err := validateOrder(args.Order); err != nil {
		return nil, err
	}

	q := repository.Query{
		Columns: args.Columns,
		Filter:  args.Filter,
		Order:   args.Order,
	}
	if m.Kind == Item {
		q.Filter = domain.ByID(m.ID)
	}

	// watch before reading; a write during the query marks the cursor stale
	c := &Cursor{
		uri:     m.URI(),
		changed: make(chan struct{}),
	}
	c.sub = p.resolver.Watch(c.uri, true, c.markStale)

	rows, err := p.repo.Query(ctx, q)
	if err != nil {
		c.sub.Close()
		return nil, fmt.Errorf("query %s: %w", uri, err)
	}
	c.Cursor = rows
	return c, nil
}

// Insert stores a new course under the collection identifier and returns
// the identifier of the new course
func (p *Provider) Insert(ctx context.Context, uri string, values domain.Values) (string, error) {
	m, err := Resolve(uri)
	if err != nil {
		return "", fmt.Errorf("cannot insert: %w", err)
	}
	if m.Kind != Collection {
		return "", fmt.Errorf("cannot insert into %s: %w", uri, ErrUnmatchedResource)
	}
	if err := validateValues(values, true); err != nil {
		return "", err
	}

	id, err := p.repo.Insert(ctx, values)
	if err != nil {
		p.log.Error("failed to insert", zap.String("uri", uri), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	p.resolver.Notify(m.URI())

	item := contract.ItemURI(id)
	p.log.Debug("inserted", zap.String("uri", item))
	return item, nil
}

// Update sets values on the courses uri addresses and returns how many rows
// changed. Empty values are a no-op that never touches the store.
func (p *Provider) Update(ctx context.Context, uri string, values domain.Values, filter domain.Filter) (int64, error) {
	m, err := Resolve(uri)
	if err != nil {
		return 0, fmt.Errorf("cannot update: %w", err)
	}
	if err := validateValues(values, false); err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	if m.Kind == Item {
		filter = domain.ByID(m.ID)
	}

	n, err := p.repo.Update(ctx, values, filter)
	if err != nil {
		p.log.Error("failed to update", zap.String("uri", uri), zap.Error(err))
		return 0, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	if n != 0 {
		p.resolver.Notify(m.URI())
	}
	p.log.Debug("updated", zap.String("uri", uri), zap.Int64("rows", n))
	return n, nil
}

// Delete removes the courses uri addresses and returns how many rows went.
// The collection with an empty filter removes every course.
func (p *Provider) Delete(ctx context.Context, uri string, filter domain.Filter) (int64, error) {
	m, err := Resolve(uri)
	if err != nil {
		return 0, fmt.Errorf("cannot delete: %w", err)
	}
	if m.Kind == Item {
		filter = domain.ByID(m.ID)
	}

	n, err := p.repo.Delete(ctx, filter)
	if err != nil {
		p.log.Error("failed to delete", zap.String("uri", uri), zap.Error(err))
		return 0, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	if n != 0 {
		p.resolver.Notify(m.URI())
	}
	p.log.Debug("deleted", zap.String("uri", uri), zap.Int64("rows", n))
	return n, nil
}

// ResourceType reports whether uri addresses the collection or an item
func (p *Provider) ResourceType(uri string) (contract.ResourceType, error) {
	return ResourceType(uri)
}

// Subscribe registers interest in changes at uri
func (p *Provider) Subscribe(uri string, descendants bool) *notify.Subscription {
	return p.resolver.Subscribe(uri, descendants)
}

// Unsubscribe stops a subscription
func (p *Provider) Unsubscribe(sub *notify.Subscription) {
	p.resolver.Unsubscribe(sub)
}

// Close releases the repository
func (p *Provider) Close() error {
	return p.repo.Close()
}
