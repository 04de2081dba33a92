// Package pipeline loads the three logical catalogs, merges them with the
// curated dataset and serves the read-only accessors consumers use.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/everstacklabs/modelmeter/internal/cache"
	"github.com/everstacklabs/modelmeter/internal/catalog"
	"github.com/everstacklabs/modelmeter/internal/classify"
	"github.com/everstacklabs/modelmeter/internal/diff"
	"github.com/everstacklabs/modelmeter/internal/estimate"
	"github.com/everstacklabs/modelmeter/internal/fetch"
	"github.com/everstacklabs/modelmeter/internal/merge"
	"github.com/everstacklabs/modelmeter/internal/normalize"
	"github.com/everstacklabs/modelmeter/internal/tokenizer"
)

var (
	ErrModelNotFound = errors.New("model not found")
	ErrUnknownSlot   = errors.New("unknown cache slot")
)

// DefaultRetryAfter is how long a failed slot waits before the next access
// tries the upstream again.
const DefaultRetryAfter = time.Minute

// Detailed is one admitted upstream entry with every derived view of it.
type Detailed struct {
	Entry          catalog.Entry            `json:"entry"`
	Provider       string                   `json:"provider"`
	Pricing        catalog.PricingRecord    `json:"pricing"`
	Comparison     catalog.ComparisonRecord `json:"comparison"`
	Classification classify.Classification  `json:"classification"`
	Capabilities   classify.Capabilities    `json:"capabilities"`
}

// Describe builds the detailed view of an entry.
func Describe(e catalog.Entry) Detailed {
	return Detailed{
		Entry:          e,
		Provider:       normalize.Provider(e.ID),
		Pricing:        normalize.ToPricing(e),
		Comparison:     normalize.ToComparison(e),
		Classification: classify.Classify(&e),
		Capabilities:   classify.CapabilitiesOf(&e),
	}
}

// Config holds the collaborators of a Pipeline.
type Config struct {
	Client     fetch.Getter
	Store      *cache.Store[[]catalog.Entry]
	ListingURL string
	// Static is the curated dataset. Nil means no curated records.
	Static *catalog.StaticDataset
	// Estimator defaults to estimate.Default().
	Estimator *estimate.Estimator
	// RetryAfter defaults to DefaultRetryAfter.
	RetryAfter time.Duration
	Now        func() time.Time
}

// Pipeline orchestrates loading, merging and querying the catalogs.
type Pipeline struct {
	static    *catalog.StaticDataset
	estimator *estimate.Estimator
	fetchers  map[Slot]*fetch.Fetcher

	pricing    *slot[catalog.PricingRecord]
	comparison *slot[catalog.ComparisonRecord]
	detailed   *slot[Detailed]

	mu          sync.Mutex
	lastChanges *diff.ChangeSet
}

// New creates a Pipeline. All three slots read the same listing under their
// own cache keys.
func New(cfg Config) *Pipeline {
	static := cfg.Static
	if static == nil {
		static = &catalog.StaticDataset{}
	}
	est := cfg.Estimator
	if est == nil {
		est = estimate.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	retry := cfg.RetryAfter
	if retry <= 0 {
		retry = DefaultRetryAfter
	}

	p := &Pipeline{
		static:    static,
		estimator: est,
		fetchers:  make(map[Slot]*fetch.Fetcher, len(Slots)),
	}
	for _, s := range Slots {
		p.fetchers[s] = fetch.New(cfg.Client, cfg.Store, cfg.ListingURL, string(s))
	}

	p.pricing = &slot[catalog.PricingRecord]{
		name: SlotPricing, fetcher: p.fetchers[SlotPricing], now: now, retryAfter: retry,
		build: func(entries []catalog.Entry) []catalog.PricingRecord {
			return merge.Merge(static.Pricing, normalize.Pricing(entries))
		},
	}
	p.comparison = &slot[catalog.ComparisonRecord]{
		name: SlotComparison, fetcher: p.fetchers[SlotComparison], now: now, retryAfter: retry,
		build: func(entries []catalog.Entry) []catalog.ComparisonRecord {
			return merge.Merge(static.Comparison, normalize.Comparison(entries))
		},
	}
	p.detailed = &slot[Detailed]{
		name: SlotDetailed, fetcher: p.fetchers[SlotDetailed], now: now, retryAfter: retry,
		build: func(entries []catalog.Entry) []Detailed {
			out := make([]Detailed, 0, len(entries))
			for _, e := range entries {
				out = append(out, Describe(e))
			}
			return out
		},
	}
	return p
}

// Static returns the curated dataset.
func (p *Pipeline) Static() *catalog.StaticDataset { return p.static }

// Load loads every slot concurrently, from the cache when it is fresh.
// Slots that fail keep their previous list; the failures are joined.
func (p *Pipeline) Load(ctx context.Context) error {
	return p.loadAll(ctx, false)
}

// Refresh bypasses the cache for every slot, repopulates it and returns the
// pricing changes against the list held before the refresh.
func (p *Pipeline) Refresh(ctx context.Context) (*diff.ChangeSet, error) {
	previous := p.pricingBaseline(ctx)

	err := p.loadAll(ctx, true)

	cs := diff.Compute(previous, p.pricing.snapshot())
	p.mu.Lock()
	p.lastChanges = cs
	p.mu.Unlock()

	slog.Info("catalog refreshed",
		"new", len(cs.New),
		"updated", len(cs.Updated),
		"removed", len(cs.Removed),
		"unchanged", cs.Unchanged,
		"large_price_moves", len(cs.LargeMoves()))
	return cs, err
}

// pricingBaseline is the pricing list a refresh is compared against: the
// loaded list, else the list built from fresh cached entries.
func (p *Pipeline) pricingBaseline(ctx context.Context) []catalog.PricingRecord {
	p.pricing.mu.RLock()
	loaded, items := p.pricing.loaded, p.pricing.items
	p.pricing.mu.RUnlock()
	if loaded {
		return items
	}
	entries, _ := p.fetchers[SlotPricing].Cached(ctx)
	return p.pricing.build(entries)
}

func (p *Pipeline) loadAll(ctx context.Context, force bool) error {
	loaders := []func(context.Context, bool) error{p.pricing.load, p.comparison.load, p.detailed.load}
	errs := make([]error, len(loaders))

	var g errgroup.Group
	for i, load := range loaders {
		g.Go(func() error {
			errs[i] = load(ctx, force)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// LastChanges returns the change set of the most recent refresh, or nil.
func (p *Pipeline) LastChanges() *diff.ChangeSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastChanges
}

// PricingModels returns the merged pricing list. A non-nil error is advisory:
// the list returned with it is the last one available.
func (p *Pipeline) PricingModels(ctx context.Context) ([]catalog.PricingRecord, error) {
	items, err := p.pricing.get(ctx)
	return slices.Clone(items), err
}

// ComparisonModels returns the merged comparison list. Errors are advisory as
// for PricingModels.
func (p *Pipeline) ComparisonModels(ctx context.Context) ([]catalog.ComparisonRecord, error) {
	items, err := p.comparison.get(ctx)
	return slices.Clone(items), err
}

// Models returns the detailed listing of admitted upstream entries.
func (p *Pipeline) Models(ctx context.Context) ([]Detailed, error) {
	items, err := p.detailed.get(ctx)
	return slices.Clone(items), err
}

// Model looks up a detailed entry by identifier. The exact identifier is
// preferred over a case-insensitive match.
func (p *Pipeline) Model(ctx context.Context, id string) (*Detailed, error) {
	items, err := p.detailed.get(ctx)
	if d := findDetailed(items, id); d != nil {
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%w)", ErrModelNotFound, id, err)
	}
	return nil, fmt.Errorf("%w: %s", ErrModelNotFound, id)
}

func findDetailed(items []Detailed, id string) *Detailed {
	for i := range items {
		if items[i].Entry.ID == id {
			d := items[i]
			return &d
		}
	}
	for i := range items {
		if strings.EqualFold(items[i].Entry.ID, id) {
			d := items[i]
			return &d
		}
	}
	return nil
}

// Filter selects detailed entries. Zero-valued fields match everything.
type Filter struct {
	Provider   string           // display name, case-insensitive
	Category   catalog.Category // classified category
	Tier       classify.Tier
	Multimodal *bool
	FreeOnly   bool
	Query      string // full-text terms, all must match
}

// Match reports whether d passes the filter.
func (f Filter) Match(d *Detailed) bool {
	if f.Provider != "" && !strings.EqualFold(d.Provider, f.Provider) {
		return false
	}
	if f.Category != "" && d.Classification.Category != f.Category {
		return false
	}
	if f.Tier != "" && d.Classification.Tier != f.Tier {
		return false
	}
	if f.Multimodal != nil && d.Comparison.Multimodal != *f.Multimodal {
		return false
	}
	if f.FreeOnly && d.Classification.Category != catalog.CategoryFree {
		return false
	}
	return f.Query == "" || matchesQuery(d, f.Query)
}

// MatchPricing reports whether a pricing record passes the filter. Pricing
// records carry no tier, modalities or description, so the filter matches on
// provider, category, price and name only.
func (f Filter) MatchPricing(r catalog.PricingRecord) bool {
	return f.matchRecord(r.Name, r.Provider, r.Category, r.InputCost, r.OutputCost)
}

// MatchComparison is MatchPricing for comparison records, which also carry
// the multimodal flag.
func (f Filter) MatchComparison(r catalog.ComparisonRecord) bool {
	if f.Multimodal != nil && r.Multimodal != *f.Multimodal {
		return false
	}
	return f.matchRecord(r.Name, r.Provider, r.Category, r.InputCost, r.OutputCost)
}

func (f Filter) matchRecord(name, provider string, category catalog.Category, in, out float64) bool {
	if f.Provider != "" && !strings.EqualFold(provider, f.Provider) {
		return false
	}
	if f.Category != "" && category != f.Category {
		return false
	}
	if f.FreeOnly && (in != 0 || out != 0) {
		return false
	}
	return f.Query == "" || strings.Contains(strings.ToLower(name), strings.ToLower(f.Query))
}

// Filter returns the detailed entries matching f, in catalog order.
func (p *Pipeline) Filter(ctx context.Context, f Filter) ([]Detailed, error) {
	items, err := p.detailed.get(ctx)
	var out []Detailed
	for i := range items {
		if f.Match(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out, err
}

// Search returns the entries whose name, identifier or description contain
// every whitespace-separated term of query, case-insensitively.
func (p *Pipeline) Search(ctx context.Context, query string) ([]Detailed, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	return p.Filter(ctx, Filter{Query: query})
}

func matchesQuery(d *Detailed, query string) bool {
	haystack := strings.ToLower(d.Entry.ID + "\n" + d.Entry.Name + "\n" + d.Entry.Description)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// Providers returns the sorted provider names across the curated dataset and
// the detailed listing.
func (p *Pipeline) Providers(ctx context.Context) ([]string, error) {
	items, err := p.detailed.get(ctx)
	names := p.static.Providers()
	for i := range items {
		names = append(names, items[i].Provider)
	}
	slices.Sort(names)
	return slices.Compact(names), err
}

// Profile resolves a tokenizer profile by upstream identifier, then by
// comparison record name.
func (p *Pipeline) Profile(ctx context.Context, model string) (tokenizer.Profile, error) {
	items, derr := p.detailed.get(ctx)
	if d := findDetailed(items, model); d != nil {
		return tokenizer.FromEntry(d.Entry), nil
	}
	records, cerr := p.comparison.get(ctx)
	for _, r := range records {
		if r.Name == model {
			return tokenizer.FromComparison(r), nil
		}
	}
	if err := errors.Join(derr, cerr); err != nil {
		return tokenizer.Profile{}, fmt.Errorf("%w: %s (%w)", ErrModelNotFound, model, err)
	}
	return tokenizer.Profile{}, fmt.Errorf("%w: %s", ErrModelNotFound, model)
}

// Estimate resolves the profile for model and estimates the input against it.
func (p *Pipeline) Estimate(ctx context.Context, model, text string, media estimate.Media, outputWords int) (estimate.Metrics, tokenizer.Profile, error) {
	profile, err := p.Profile(ctx, model)
	if err != nil {
		return estimate.Metrics{}, tokenizer.Profile{}, err
	}
	return p.estimator.Estimate(text, profile, media, outputWords), profile, nil
}

// SlotStatus is the cache state of one slot with its last upstream load.
type SlotStatus struct {
	cache.Status
	Slot     Slot        `json:"slot"`
	LastLoad fetch.Stats `json:"last_load"`
}

// CacheStatus reports every slot, in Slots order.
func (p *Pipeline) CacheStatus(ctx context.Context) []SlotStatus {
	out := make([]SlotStatus, 0, len(Slots))
	for _, s := range Slots {
		f := p.fetchers[s]
		out = append(out, SlotStatus{Status: f.Status(ctx), Slot: s, LastLoad: f.LastStats()})
	}
	return out
}

// ClearCache deletes the cached envelope of one slot, or of every slot when
// s is empty. Lists already built stay available until the next load.
func (p *Pipeline) ClearCache(ctx context.Context, s Slot) error {
	targets := Slots
	if s != "" {
		if _, ok := p.fetchers[s]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSlot, s)
		}
		targets = []Slot{s}
	}

	var errs []error
	for _, t := range targets {
		if err := p.fetchers[t].Invalidate(ctx); err != nil {
			errs = append(errs, err)
		}
		p.expire(t)
		slog.Info("cache cleared", "slot", t)
	}
	return errors.Join(errs...)
}

func (p *Pipeline) expire(s Slot) {
	switch s {
	case SlotPricing:
		p.pricing.expire()
	case SlotComparison:
		p.comparison.expire()
	case SlotDetailed:
		p.detailed.expire()
	}
}
