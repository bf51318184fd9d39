// Package lookup resolves foreign-key option lists for select and
// multiselect fields. A lookup is backed by another resource's list endpoint;
// results are cached per lookup ID so a form with three selectors does not
// trigger three identical category fetches.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lkpmandiri/backoffice/internal/api"
	"github.com/lkpmandiri/backoffice/internal/definition"
	"github.com/lkpmandiri/backoffice/model"
)

// lookupPageSize bounds a lookup fetch. Reference tables in this system are
// small; a selector with more options than this needs a different control.
const lookupPageSize = 200

// CacheMetrics receives cache hit/miss counts per lookup.
type CacheMetrics interface {
	RecordLookupCacheHit(lookupID string)
	RecordLookupCacheMiss(lookupID string)
}

// Provider resolves LookupDefinitions to option lists with TTL caching.
type Provider struct {
	registry   *definition.Registry
	client     *api.Client
	defaultTTL time.Duration
	metrics    CacheMetrics

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	options   []model.OptionDescriptor
	expiresAt time.Time
}

// NewProvider creates a lookup Provider over the definition registry and the
// shared api client.
func NewProvider(registry *definition.Registry, client *api.Client, defaultTTL time.Duration) *Provider {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &Provider{
		registry:   registry,
		client:     client,
		defaultTTL: defaultTTL,
		cache:      make(map[string]cacheEntry),
	}
}

// SetMetrics attaches cache instrumentation. Call before serving traffic.
func (p *Provider) SetMetrics(m CacheMetrics) {
	p.metrics = m
}

// GetOptions resolves a lookup to its option list, optionally filtered by a
// case-insensitive label query.
func (p *Provider) GetOptions(ctx context.Context, lookupID, query string) ([]model.OptionDescriptor, error) {
	def, ok := p.registry.GetLookup(lookupID)
	if !ok {
		return nil, model.NewNotFoundError(fmt.Sprintf("Lookup %q is not defined", lookupID))
	}

	if options, hit := p.fromCache(lookupID); hit {
		if p.metrics != nil {
			p.metrics.RecordLookupCacheHit(lookupID)
		}
		return filterOptions(options, query), nil
	}
	if p.metrics != nil {
		p.metrics.RecordLookupCacheMiss(lookupID)
	}

	options, err := p.fetch(ctx, def)
	if err != nil {
		return nil, err
	}
	p.store(lookupID, options, p.ttlFor(def))

	return filterOptions(options, query), nil
}

// Invalidate drops the cached options for one lookup. Called after a write to
// the backing resource so a freshly created category shows up immediately.
func (p *Provider) Invalidate(lookupID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, lookupID)
}

// InvalidateResource drops every lookup backed by the given resource.
func (p *Provider) InvalidateResource(resourceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, def := range p.registry.AllResources() {
		for _, lk := range def.Lookups {
			if lk.Resource == resourceID {
				delete(p.cache, lk.ID)
			}
		}
	}
}

// CacheLen returns the number of cached entries. For testing.
func (p *Provider) CacheLen() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.cache)
}

func (p *Provider) ttlFor(def model.LookupDefinition) time.Duration {
	if def.TTL != "" {
		if parsed, err := time.ParseDuration(def.TTL); err == nil && parsed > 0 {
			return parsed
		}
	}
	return p.defaultTTL
}

func (p *Provider) fromCache(key string) ([]model.OptionDescriptor, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, exists := p.cache[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.options, true
}

func (p *Provider) store(key string, options []model.OptionDescriptor, ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for k, v := range p.cache {
		if now.After(v.expiresAt) {
			delete(p.cache, k)
		}
	}
	p.cache[key] = cacheEntry{options: options, expiresAt: now.Add(ttl)}
}

// fetch lists the backing resource and maps records to options.
func (p *Provider) fetch(ctx context.Context, def model.LookupDefinition) ([]model.OptionDescriptor, error) {
	resDef, ok := p.registry.GetResource(def.Resource)
	if !ok {
		// The definition validator rejects dangling lookup resources at load
		// time, so this only fires after a bad hot reload.
		return nil, fmt.Errorf("lookup %q: references unknown resource %q", def.ID, def.Resource)
	}

	res := api.NewResource(p.client, resDef)
	result, err := res.List(ctx, api.Filters{PerPage: lookupPageSize})
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", def.ID, err)
	}

	options := make([]model.OptionDescriptor, 0, len(result.Data))
	for _, rec := range result.Data {
		label := fieldString(rec, def.LabelField)
		value := fieldString(rec, def.ValueField)
		if label == "" || value == "" {
			continue
		}
		options = append(options, model.OptionDescriptor{Label: label, Value: value})
	}
	return options, nil
}

// fieldString renders a record field as an option string. IDs arrive as JSON
// numbers and must keep their exact textual form.
func fieldString(rec model.Record, field string) string {
	switch v := rec[field].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		n, _ := json.Marshal(v)
		return string(n)
	default:
		return ""
	}
}

func filterOptions(options []model.OptionDescriptor, query string) []model.OptionDescriptor {
	if query == "" {
		return options
	}

	q := strings.ToLower(query)
	filtered := make([]model.OptionDescriptor, 0, len(options))
	for _, opt := range options {
		if strings.Contains(strings.ToLower(opt.Label), q) {
			filtered = append(filtered, opt)
		}
	}
	return filtered
}
