package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jwalitptl/client-dashboard/internal/model"
	"github.com/jwalitptl/client-dashboard/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	mu           sync.Mutex
	genders      []string
	counts       map[string]int
	panicCatalog bool
	panicCount   string
	countCalls   []string
	clients      []model.Client
	listErr      error
	listCalls    int
	// hold blocks the numbered ListAllClients call (1-based) until the channel
	// is closed, ignoring cancellation so a stale answer still arrives.
	hold map[int]chan struct{}
}

func (f *fakeSource) ListGenderCategories(ctx context.Context) []string {
	if f.panicCatalog {
		panic("catalog exploded")
	}
	return f.genders
}

func (f *fakeSource) GetGenderCount(ctx context.Context, g string) int {
	f.mu.Lock()
	f.countCalls = append(f.countCalls, g)
	f.mu.Unlock()
	if g == f.panicCount {
		panic("count exploded")
	}
	return f.counts[g]
}

func (f *fakeSource) ListAllClients(ctx context.Context) ([]model.Client, error) {
	f.mu.Lock()
	f.listCalls++
	call := f.listCalls
	ch := f.hold[call]
	err := f.listErr
	clients := append([]model.Client(nil), f.clients...)
	f.mu.Unlock()

	if ch != nil {
		<-ch
	}
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	f.listErr = err
	f.mu.Unlock()
}

func threeClients() []model.Client {
	return []model.Client{
		{ID: "1", FirstName: "Ann", LastName: "Lee", Gender: "Female", Age: 30},
		{ID: "2", FirstName: "Bob", LastName: "Ray", Gender: "Male", Age: 40},
		{ID: "3", FirstName: "Cal", LastName: "Day", Gender: "Male", Age: 60},
	}
}

func mount(t *testing.T, src DataSource, opts ...Option) *Controller {
	t.Helper()
	c := New(src, opts...)
	require.NoError(t, c.Mount(context.Background()))
	t.Cleanup(c.Unmount)
	settle(t, c)
	return c
}

func settle(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Settled(ctx))
}

func ids(cs []model.Client) []string {
	out := []string{}
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestInitialState(t *testing.T) {
	c := New(&fakeSource{})
	s := c.Snapshot()

	assert.True(t, s.Loading)
	assert.True(t, s.FullScreenLoading())
	assert.Empty(t, s.Clients)
	assert.Equal(t, model.ViewCards, s.ViewMode)
	assert.False(t, s.SidebarOpen)
	assert.True(t, s.AllSelected)
	assert.Equal(t, "All Clients", s.Title)
	assert.Equal(t, "AU", s.UserInitials)
	c.Unmount()
}

func TestMountLoadsCatalogCountsAndClients(t *testing.T) {
	src := &fakeSource{
		genders: []string{"Male", "Female"},
		counts:  map[string]int{"Male": 2, "Female": 1},
		clients: threeClients(),
	}
	c := mount(t, src)
	s := c.Snapshot()

	assert.False(t, s.Loading)
	assert.Empty(t, s.Error)
	assert.Equal(t, []string{"1", "2", "3"}, ids(s.Clients))
	assert.Equal(t, "3 clients", s.CountText)
	assert.Equal(t, map[string]int{"Male": 2, "Female": 1}, s.GenderCounts)
	require.Len(t, s.Genders, 2)
	assert.Equal(t, GenderOption{Name: "Male", Count: 2}, s.Genders[0])

	assert.ErrorIs(t, c.Mount(context.Background()), ErrAlreadyMounted)
}

func TestSelectGenderToggles(t *testing.T) {
	src := &fakeSource{genders: []string{"Male", "Female"}, clients: threeClients()}
	c := mount(t, src)

	c.SelectGender("Male")
	settle(t, c)
	assert.Equal(t, []string{"2", "3"}, ids(c.Snapshot().Clients))
	assert.True(t, c.IsGenderSelected("Male"))
	assert.False(t, c.IsAllGendersSelected())
	assert.Equal(t, "Male Clients", c.Title())
	assert.Equal(t, "2 clients", c.CountText())

	c.SelectGender("Male")
	settle(t, c)
	assert.Equal(t, []string{"1", "2", "3"}, ids(c.Snapshot().Clients))
	assert.True(t, c.IsAllSelected())

	c.SelectGender("male")
	settle(t, c)
	assert.Empty(t, c.Snapshot().Clients)
	assert.Equal(t, "0 clients", c.CountText())
}

func TestSelectAgeBracketInclusive(t *testing.T) {
	src := &fakeSource{clients: []model.Client{
		{ID: "a", Gender: "Male", Age: 20},
		{ID: "b", Gender: "Male", Age: 36},
		{ID: "c", Gender: "Female", Age: 50},
		{ID: "d", Gender: "Female", Age: 51},
	}}
	c := mount(t, src)

	c.SelectAgeBracket(36, 50)
	settle(t, c)
	assert.Equal(t, []string{"b", "c"}, ids(c.Snapshot().Clients))
	assert.True(t, c.IsAgeBracketSelected(36, 50))
	assert.False(t, c.IsAgeBracketSelected(36, 51))
	assert.Equal(t, "Clients aged 36-50", c.Title())

	c.SelectAgeBracket(36, 50)
	settle(t, c)
	assert.Len(t, c.Snapshot().Clients, 4)
	assert.Nil(t, c.Selection().Age)
}

func TestSelectionAxesAreIndependent(t *testing.T) {
	c := mount(t, &fakeSource{clients: threeClients()})

	c.SelectAgeBracket(36, 100)
	c.SelectGender("Male")
	settle(t, c)
	assert.True(t, c.IsAgeBracketSelected(36, 100))
	assert.Equal(t, []string{"2", "3"}, ids(c.Snapshot().Clients))
	assert.Equal(t, "Clients aged 36-100 (Male)", c.Title())

	c.SelectAllGenders()
	settle(t, c)
	assert.True(t, c.IsAgeBracketSelected(36, 100))
	assert.True(t, c.IsAllGendersSelected())
	assert.False(t, c.IsAllSelected())

	c.SelectGender("Female")
	c.SelectAgeBracket(10, 25)
	settle(t, c)
	assert.True(t, c.IsGenderSelected("Female"))
	assert.Empty(t, c.Snapshot().Clients)
}

func TestSearchNarrowsResults(t *testing.T) {
	c := mount(t, &fakeSource{clients: threeClients()})

	c.SetSearch("  ray ")
	settle(t, c)
	s := c.Snapshot()
	assert.Equal(t, "ray", s.Search)
	assert.Equal(t, []string{"2"}, ids(s.Clients))
	assert.Equal(t, "1 client", s.CountText)

	c.SetSearch("")
	settle(t, c)
	assert.Len(t, c.Snapshot().Clients, 3)
}

func TestFetchFailureKeepsPreviousClients(t *testing.T) {
	src := &fakeSource{clients: threeClients()}
	m := metrics.New("test")
	c := mount(t, src, WithMetrics(m))

	src.setErr(errors.New("backend down"))
	c.SelectGender("Male")
	settle(t, c)

	s := c.Snapshot()
	assert.False(t, s.Loading)
	assert.Equal(t, "Failed to fetch clients. Please try again later.", s.Error)
	assert.Equal(t, []string{"1", "2", "3"}, ids(s.Clients))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClientFetches.WithLabelValues("failure")))

	src.setErr(nil)
	c.SelectGender("Male")
	settle(t, c)
	s = c.Snapshot()
	assert.Empty(t, s.Error)
	assert.Len(t, s.Clients, 3)
}

func TestFirstFetchFailure(t *testing.T) {
	c := mount(t, &fakeSource{listErr: errors.New("refused")})
	s := c.Snapshot()

	assert.False(t, s.Loading)
	assert.NotEmpty(t, s.Error)
	assert.Empty(t, s.Clients)
	assert.False(t, s.FullScreenLoading())
}

func TestCatalogPanicSurfacesError(t *testing.T) {
	c := mount(t, &fakeSource{panicCatalog: true, clients: threeClients()})
	s := c.Snapshot()

	assert.Empty(t, s.Genders)
	assert.Equal(t, "Failed to load gender data", s.Error)
}

func TestCountFailureDefaultsToZero(t *testing.T) {
	for _, sequential := range []bool{false, true} {
		src := &fakeSource{
			genders:    []string{"Male", "Female", "Other"},
			counts:     map[string]int{"Male": 2, "Female": 1, "Other": 4},
			panicCount: "Female",
		}
		c := mount(t, src, WithSequentialCounts(sequential))

		assert.Equal(t, map[string]int{"Male": 2, "Female": 0, "Other": 4}, c.Snapshot().GenderCounts)
		if sequential {
			assert.Equal(t, []string{"Male", "Female", "Other"}, src.countCalls)
		} else {
			assert.ElementsMatch(t, []string{"Male", "Female", "Other"}, src.countCalls)
		}
	}
}

func TestStaleResponseIsDropped(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{clients: threeClients(), hold: map[int]chan struct{}{2: release}}
	m := metrics.New("test")
	c := mount(t, src, WithMetrics(m))

	c.SelectGender("Male") // call 2, held
	require.Eventually(t, func() bool { return src.calls() == 2 }, 2*time.Second, time.Millisecond)
	c.SelectAgeBracket(50, 100)

	assert.Eventually(t, func() bool {
		s := c.Snapshot()
		return !s.Loading && len(s.Clients) == 1
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	settle(t, c)

	assert.Equal(t, []string{"3"}, ids(c.Snapshot().Clients))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleResponses))
}

func TestSettledRespectsContext(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{hold: map[int]chan struct{}{1: release}}
	c := New(src)
	require.NoError(t, c.Mount(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Settled(ctx), context.DeadlineExceeded)
	assert.True(t, c.Snapshot().Loading)

	close(release)
	c.Unmount()
}

func TestViewModeAndDropdown(t *testing.T) {
	c := mount(t, &fakeSource{})

	c.ToggleDropdown()
	assert.True(t, c.Snapshot().DropdownOpen)

	c.SetViewMode(model.ViewTable)
	s := c.Snapshot()
	assert.Equal(t, model.ViewTable, s.ViewMode)
	assert.Equal(t, "≡ Table View", s.ViewModeLabel)
	assert.False(t, s.DropdownOpen)

	c.ToggleDropdown()
	c.CloseDropdown()
	assert.False(t, c.Snapshot().DropdownOpen)
}

func TestPointerOutsideClosesSidebar(t *testing.T) {
	c := mount(t, &fakeSource{})

	c.ToggleSidebar()
	c.PointerDown(TargetSidebar)
	c.PointerDown(TargetMenuButton)
	assert.True(t, c.Snapshot().SidebarOpen)

	c.ToggleDropdown()
	c.PointerDown(TargetDropdown)
	assert.True(t, c.Snapshot().DropdownOpen)

	c.PointerDown(TargetMain)
	s := c.Snapshot()
	assert.False(t, s.SidebarOpen)
	assert.False(t, s.DropdownOpen)
}

func TestUnmountTearsDownPointerSubscription(t *testing.T) {
	c := New(&fakeSource{})
	require.NoError(t, c.Mount(context.Background()))
	assert.Equal(t, 1, c.pointer.Len())

	c.Unmount()
	c.Unmount()
	assert.Equal(t, 0, c.pointer.Len())

	c.ToggleSidebar()
	c.PointerDown(TargetMain)
	assert.True(t, c.Snapshot().SidebarOpen)
	assert.ErrorIs(t, c.Mount(context.Background()), ErrUnmounted)
}

func TestCompactLayoutClosesSidebarOnSelect(t *testing.T) {
	c := mount(t, &fakeSource{}, WithCompactLayout(true))

	c.ToggleSidebar()
	c.SelectGender("Male")
	assert.False(t, c.Snapshot().SidebarOpen)
	settle(t, c)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	c := New(&fakeSource{clients: threeClients()})
	var mu sync.Mutex
	loaded := false
	unsub := c.Subscribe(func(s Snapshot) {
		mu.Lock()
		if !s.Loading && len(s.Rows) == 3 {
			loaded = true
		}
		mu.Unlock()
	})
	defer unsub()

	require.NoError(t, c.Mount(context.Background()))
	defer c.Unmount()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return loaded
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCustomAgeBrackets(t *testing.T) {
	c := mount(t, &fakeSource{}, WithAgeBrackets([]model.AgeBracket{
		{ID: "adults", Label: "Adults", AgeRange: model.AgeRange{Min: 18, Max: 64}},
	}))
	c.SelectAgeBracket(18, 64)
	settle(t, c)

	s := c.Snapshot()
	require.Len(t, s.AgeBrackets, 1)
	assert.True(t, s.AgeBrackets[0].Active)
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "AU", initials("Admin User"))
	assert.Equal(t, "AD", initials("ad"))
	assert.Equal(t, "JO", initials("jo"))
	assert.Equal(t, "", initials("  "))
	assert.Equal(t, "ÉB", initials("éva börg"))
}
