// Package store owns the product state of one viewer session: the raw
// collection, the selected product, the filters and the fetch lifecycle.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/abgdnv/catalogviewer/internal/catalog"
	catalogerrors "github.com/abgdnv/catalogviewer/internal/errors"
	"github.com/abgdnv/catalogviewer/internal/service"
	"github.com/abgdnv/catalogviewer/internal/view"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/text/language"
)

const (
	opFetchAll        = "fetch_all"
	opFetchByID       = "fetch_by_id"
	opFetchByCategory = "fetch_by_category"
)

// Option configures a Store.
type Option func(*Store)

// WithDefaultToken sets the token used when a fetch supplies none.
func WithDefaultToken(token string) Option {
	return func(s *Store) { s.defaultToken = token }
}

// WithLocale sets the collation locale for name sorting.
func WithLocale(tag language.Tag) Option {
	return func(s *Store) { s.locale = tag }
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMeterProvider sets where fetch counters are recorded.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Store) { s.meterProvider = mp }
}

// Store is safe for concurrent use. Fetch operations return at once; the
// request runs on a goroutine owned by the store and its outcome is committed
// only if no newer request of the same kind was issued in the meantime.
type Store struct {
	svc           service.CatalogService
	defaultToken  string
	locale        language.Tag
	logger        *slog.Logger
	meterProvider metric.MeterProvider
	memo          *view.Memo
	metrics       storeMetrics

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	products    []catalog.Product
	version     uint64
	selected    *catalog.Product
	filters     catalog.FilterSet
	err         string
	collection  resource
	selection   resource
	inflight    int
	idle        chan struct{}
	subscribers map[int]chan struct{}
	nextSubID   int
	disposed    bool
}

type storeMetrics struct {
	started  metric.Int64Counter
	stale    metric.Int64Counter
	failures metric.Int64Counter
}

// New creates a store with an empty collection and the default filters.
func New(svc service.CatalogService, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	s := &Store{
		svc:           svc,
		locale:        language.English,
		logger:        slog.Default(),
		meterProvider: otel.GetMeterProvider(),
		ctx:           ctx,
		cancel:        cancel,
		products:      []catalog.Product{},
		filters:       catalog.DefaultFilters(),
		collection:    newResource("collection"),
		selection:     newResource("selection"),
		idle:          idle,
		subscribers:   make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "product_store")
	s.memo = view.NewMemo(s.locale)
	s.metrics = newStoreMetrics(s.meterProvider.Meter("catalog-store"))
	return s
}

func newStoreMetrics(meter metric.Meter) storeMetrics {
	started, err := meter.Int64Counter("catalog_fetches_started", metric.WithDescription("Total number of catalog fetches issued"))
	if err != nil {
		panic(fmt.Sprintf("failed to create catalog_fetches_started counter: %v", err))
	}
	stale, err := meter.Int64Counter("catalog_fetches_stale", metric.WithDescription("Total number of fetch results discarded as superseded"))
	if err != nil {
		panic(fmt.Sprintf("failed to create catalog_fetches_stale counter: %v", err))
	}
	failures, err := meter.Int64Counter("catalog_fetches_failed", metric.WithDescription("Total number of failed catalog fetches"))
	if err != nil {
		panic(fmt.Sprintf("failed to create catalog_fetches_failed counter: %v", err))
	}
	return storeMetrics{started: started, stale: stale, failures: failures}
}

// FetchAll loads the whole collection. An empty token falls back to the
// default token. On failure the previous collection stays visible.
func (s *Store) FetchAll(params url.Values, token string) {
	if token == "" {
		token = s.defaultToken
	}
	params = cloneParams(params)
	s.fetchCollection(opFetchAll, func(ctx context.Context) ([]catalog.Product, error) {
		return s.svc.FetchAll(ctx, params, token)
	})
}

// FetchByCategory loads the products of one category into the collection.
func (s *Store) FetchByCategory(category string, params url.Values) {
	params = cloneParams(params)
	s.fetchCollection(opFetchByCategory, func(ctx context.Context) ([]catalog.Product, error) {
		return s.svc.FetchByCategory(ctx, category, params, s.defaultToken)
	})
}

// FetchByID loads one product into the selection. An empty id is ignored.
func (s *Store) FetchByID(id catalog.ProductID) {
	if id == "" {
		return
	}
	seq, ok := s.begin(&s.selection, opFetchByID)
	if !ok {
		return
	}
	go func() {
		product, err := s.svc.FetchByID(s.ctx, id, s.defaultToken)
		s.commit(&s.selection, opFetchByID, seq, err, func() {
			s.selected = product
		})
	}()
}

func (s *Store) fetchCollection(op string, fetch func(ctx context.Context) ([]catalog.Product, error)) {
	seq, ok := s.begin(&s.collection, op)
	if !ok {
		return
	}
	go func() {
		products, err := fetch(s.ctx)
		s.commit(&s.collection, op, seq, err, func() {
			if products == nil {
				products = []catalog.Product{}
			}
			s.products = products
			s.version++
		})
	}()
}

// begin issues a sequence number for r and marks it loading. It returns
// false once the store is disposed.
func (s *Store) begin(r *resource, op string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return 0, false
	}
	seq := r.issue()
	s.err = ""
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
	s.metrics.started.Add(s.ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	s.logger.Debug("fetch started", "op", op, "seq", seq)
	s.notifyLocked()
	return seq, true
}

// commit applies the outcome of request seq unless a newer request of the
// same kind was issued or the store was disposed.
func (s *Store) commit(r *resource, op string, seq uint64, err error, apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.settleLocked()

	if s.disposed {
		return
	}
	if !r.isLatest(seq) {
		s.metrics.stale.Add(s.ctx, 1, metric.WithAttributes(attribute.String("op", op)))
		s.logger.Debug("discarding stale result", "op", op, "kind", r.name, "seq", seq, "latest", r.seq)
		return
	}

	if err != nil {
		msg := catalogerrors.Message(err)
		r.state = FetchState{Status: StatusError, Error: msg}
		s.err = msg
		s.metrics.failures.Add(s.ctx, 1, metric.WithAttributes(attribute.String("op", op)))
		s.logger.Warn("fetch failed", "op", op, "kind", r.name, "seq", seq, "error", err)
	} else {
		apply()
		r.state = FetchState{Status: StatusSuccess}
	}
	s.notifyLocked()
}

func (s *Store) settleLocked() {
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}

// UpdateFilters merges the given fields into the current filters.
func (s *Store) UpdateFilters(u catalog.FilterUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}
	next := s.filters.Merge(u)
	if next == s.filters {
		return
	}
	s.filters = next
	s.notifyLocked()
}

// ResetFilters restores the default filters.
func (s *Store) ResetFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed || s.filters == catalog.DefaultFilters() {
		return
	}
	s.filters = catalog.DefaultFilters()
	s.notifyLocked()
}

// Snapshot returns the current state with the derived product view.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Products:   s.memo.View(s.version, s.products, s.filters),
		Loading:    s.collection.loading() || s.selection.loading(),
		Error:      s.err,
		Filters:    s.filters,
		Collection: s.collection.state,
		Selection:  s.selection.state,
	}
	if s.selected != nil {
		selected := *s.selected
		snap.SelectedProduct = &selected
	}
	return snap
}

// Subscribe returns a channel that receives a signal after every state
// change, and a function that cancels the subscription. Signals coalesce:
// a slow reader sees one pending signal, never a backlog. The channel is
// closed on unsubscribe or Dispose.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(c)
		}
	}
}

func (s *Store) notifyLocked() {
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Wait blocks until no fetch is in flight or ctx is done.
func (s *Store) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispose cancels in-flight requests, waits for them to return and closes all
// subscriptions. Later operations are ignored. Dispose is idempotent.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
	idle := s.idle
	s.mu.Unlock()

	s.cancel()
	<-idle
	s.logger.Debug("store disposed")
}

func cloneParams(params url.Values) url.Values {
	if params == nil {
		return nil
	}
	clone := make(url.Values, len(params))
	for k, v := range params {
		clone[k] = append([]string(nil), v...)
	}
	return clone
}
