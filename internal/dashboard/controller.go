// Package dashboard holds the client view controller: the state behind the
// dashboard and the fetch/filter lifecycle that keeps it current. Presentation
// layers read it through Snapshot and drive it through the mutation methods.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/client-dashboard/internal/model"
	"github.com/jwalitptl/client-dashboard/pkg/logger"
	"github.com/jwalitptl/client-dashboard/pkg/metrics"
)

const (
	msgLoadGenders  = "Failed to load gender data"
	msgFetchClients = "Failed to fetch clients. Please try again later."
)

var (
	ErrAlreadyMounted = errors.New("dashboard: controller already mounted")
	ErrUnmounted      = errors.New("dashboard: controller unmounted")
)

// DataSource is the part of the backend client the controller needs.
type DataSource interface {
	ListGenderCategories(ctx context.Context) []string
	GetGenderCount(ctx context.Context, gender string) int
	ListAllClients(ctx context.Context) ([]model.Client, error)
}

type Controller struct {
	src              DataSource
	log              *logger.Logger
	metrics          *metrics.Metrics
	brackets         []model.AgeBracket
	sequentialCounts bool
	compact          bool
	userName         string

	pointer *Bus[Target]
	changes *Bus[Snapshot]

	mu           sync.Mutex
	clients      []model.Client
	loading      bool
	errMsg       string
	catalog      []string
	counts       map[string]int
	selection    model.Selection
	search       string
	viewMode     model.ViewMode
	sidebarOpen  bool
	dropdownOpen bool

	// gen identifies the latest client fetch; older responses are dropped.
	gen         uint64
	cancelFetch context.CancelFunc

	pending int
	settled chan struct{}

	mounted   bool
	unmounted bool
	ctx       context.Context
	cancel    context.CancelFunc
	unsubs    []func()
	wg        sync.WaitGroup
}

func New(src DataSource, opts ...Option) *Controller {
	settled := make(chan struct{})
	close(settled)

	c := &Controller{
		src:      src,
		log:      logger.Nop(),
		brackets: model.DefaultAgeBrackets(),
		userName: "Admin User",
		pointer:  NewBus[Target](),
		changes:  NewBus[Snapshot](),
		clients:  []model.Client{},
		loading:  true,
		catalog:  []string{},
		counts:   map[string]int{},
		viewMode: model.ViewCards,
		settled:  settled,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount starts the controller: it subscribes the outside-click handler, loads
// the gender catalog and counts, and runs the first client fetch. Work is
// bound to ctx and to Unmount, whichever ends first.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	if c.mounted {
		c.mu.Unlock()
		return ErrAlreadyMounted
	}
	c.mounted = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.unsubs = append(c.unsubs, c.pointer.Subscribe(c.handlePointer))

	c.beginLocked()
	c.wg.Add(1)
	go c.loadGenders(c.ctx)

	c.refreshLocked()
	c.mu.Unlock()

	c.log.Debug("dashboard mounted")
	c.notify()
	return nil
}

// Unmount cancels in-flight work, drops the subscriptions made by Mount and
// waits for background fetches to return. Safe to call more than once.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if !c.mounted || c.unmounted {
		c.unmounted = true
		c.mu.Unlock()
		return
	}
	c.unmounted = true
	c.cancel()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	c.wg.Wait()
	c.log.Debug("dashboard unmounted")
}

// Settled blocks until no fetch is in flight or ctx is done.
func (c *Controller) Settled(ctx context.Context) error {
	c.mu.Lock()
	ch := c.settled
	c.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change and must not block.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return c.changes.Subscribe(fn)
}

// PointerDown reports a pointer press on target. It has an effect only while
// the controller is mounted.
func (c *Controller) PointerDown(target Target) {
	c.pointer.Publish(target)
}

func (c *Controller) handlePointer(target Target) {
	c.mu.Lock()
	changed := false
	if c.sidebarOpen && target != TargetSidebar && target != TargetMenuButton {
		c.sidebarOpen = false
		changed = true
	}
	if c.dropdownOpen && target != TargetDropdown {
		c.dropdownOpen = false
		changed = true
	}
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

func (c *Controller) beginLocked() {
	if c.pending == 0 {
		c.settled = make(chan struct{})
	}
	c.pending++
}

func (c *Controller) endLocked() {
	c.pending--
	if c.pending == 0 {
		close(c.settled)
	}
}

// refreshLocked starts a client fetch for the current selection and
// supersedes any fetch still in flight.
func (c *Controller) refreshLocked() {
	if !c.mounted || c.unmounted {
		return
	}
	if c.cancelFetch != nil {
		c.cancelFetch()
	}
	c.gen++
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelFetch = cancel
	c.loading = true
	c.errMsg = ""

	c.beginLocked()
	c.wg.Add(1)
	go c.fetchClients(ctx, cancel, c.gen, c.selection, c.search)
}

func (c *Controller) fetchClients(ctx context.Context, cancel context.CancelFunc, gen uint64, sel model.Selection, search string) {
	defer c.wg.Done()
	defer cancel()

	var clients []model.Client
	err := protect(func() error {
		var err error
		clients, err = c.src.ListAllClients(ctx)
		return err
	})

	c.mu.Lock()
	if c.unmounted {
		c.endLocked()
		c.mu.Unlock()
		return
	}
	if gen != c.gen {
		c.endLocked()
		c.mu.Unlock()
		c.observeFetch("stale")
		if c.metrics != nil {
			c.metrics.StaleResponses.Inc()
		}
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
		c.errMsg = msgFetchClients
		c.log.Error(err, "error fetching clients")
	} else {
		if clients == nil {
			clients = []model.Client{}
		}
		c.clients = sel.Filter(clients, search)
	}
	c.loading = false
	c.cancelFetch = nil
	c.endLocked()
	c.mu.Unlock()

	c.observeFetch(outcome)
	c.notify()
}

func (c *Controller) loadGenders(ctx context.Context) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		c.endLocked()
		c.mu.Unlock()
	}()

	var catalog []string
	err := protect(func() error {
		catalog = c.src.ListGenderCategories(ctx)
		return ctx.Err()
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.log.Error(err, "error initializing genders")
		c.mu.Lock()
		c.errMsg = msgLoadGenders
		c.mu.Unlock()
		c.notify()
		return
	}
	if catalog == nil {
		catalog = []string{}
	}

	c.mu.Lock()
	c.catalog = catalog
	c.mu.Unlock()
	c.notify()

	counts := c.fetchCounts(ctx, catalog)
	if ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	c.counts = counts
	c.mu.Unlock()
	c.notify()
}

// fetchCounts loads the count of every category. A failing category counts 0
// and never stops the others.
func (c *Controller) fetchCounts(ctx context.Context, catalog []string) map[string]int {
	values := make([]int, len(catalog))

	if c.sequentialCounts {
		for i, g := range catalog {
			if ctx.Err() != nil {
				break
			}
			values[i] = c.countOf(ctx, g)
		}
	} else {
		var g errgroup.Group
		for i, gender := range catalog {
			g.Go(func() error {
				values[i] = c.countOf(ctx, gender)
				return nil
			})
		}
		_ = g.Wait()
	}

	counts := make(map[string]int, len(catalog))
	for i, g := range catalog {
		counts[g] = values[i]
	}
	return counts
}

func (c *Controller) countOf(ctx context.Context, gender string) int {
	var n int
	err := protect(func() error {
		n = c.src.GetGenderCount(ctx, gender)
		return nil
	})
	if err != nil {
		c.log.Error(err, "error getting gender count", "gender", gender)
		return 0
	}
	return n
}

func (c *Controller) observeFetch(outcome string) {
	if c.metrics != nil {
		c.metrics.ClientFetches.WithLabelValues(outcome).Inc()
	}
}

func (c *Controller) notify() {
	if c.changes.Len() == 0 {
		return
	}
	c.changes.Publish(c.Snapshot())
}

// protect turns a panic in fn into an error so a misbehaving data source
// cannot take the controller down.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("data source panic: %v", r)
		}
	}()
	return fn()
}
