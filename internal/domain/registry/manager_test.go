package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/PortableShelf/internal/domain/store"
	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
)

// memStore records every save.
type memStore struct {
	mu    sync.Mutex
	apps  []types.App
	saves int
	fail  error
}

func (s *memStore) Load() []types.App {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.App(nil), s.apps...)
}

func (s *memStore) Save(apps []types.App) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.fail != nil {
		return s.fail
	}
	s.apps = append([]types.App(nil), apps...)
	return nil
}

func (s *memStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type fixture struct {
	reg     *Manager
	store   *memStore
	appsDir string
	metrics *monitoring.Metrics
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	appsDir := filepath.Join(t.TempDir(), "Portable apps")
	require.NoError(t, os.MkdirAll(appsDir, 0o755))
	opts.AppsDir = appsDir

	st := &memStore{}
	metrics := monitoring.NewMetrics()
	return &fixture{
		reg:     NewManager(st, opts, nil, metrics),
		store:   st,
		appsDir: appsDir,
		metrics: metrics,
	}
}

// exe creates an executable under the fixture's apps dir and returns a candidate for it.
func (f *fixture) exe(t *testing.T, rel string) types.Candidate {
	t.Helper()
	p := filepath.Join(f.appsDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("MZ"), 0o755))
	base := filepath.Base(p)
	return types.Candidate{Name: base[:len(base)-len(filepath.Ext(base))], Path: p}
}

func names(apps []types.App) []string {
	out := make([]string, len(apps))
	for i, a := range apps {
		out[i] = a.Name
	}
	return out
}

func TestReconcileScan(t *testing.T) {
	f := newFixture(t, Options{})
	notepad := f.exe(t, "Notepad.exe")
	calc := f.exe(t, filepath.Join("tools", "Calc.exe"))

	res := f.reg.Reconcile([]types.Candidate{notepad, calc})

	assert.Equal(t, []string{"Notepad", "Calc"}, res.Added)
	assert.Empty(t, res.Pruned)
	apps := f.reg.List()
	require.Len(t, apps, 2)
	for _, a := range apps {
		assert.False(t, a.Favorite)
		assert.Zero(t, a.RunCount)
		assert.Nil(t, a.LastRun)
	}
	assert.Equal(t, 1, f.store.Saves())
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newFixture(t, Options{})
	cands := []types.Candidate{f.exe(t, "Notepad.exe"), f.exe(t, "Calc.exe")}

	f.reg.Reconcile(cands)
	first := f.reg.List()
	res := f.reg.Reconcile(cands)

	assert.False(t, res.Changed())
	assert.Equal(t, first, f.reg.List())
	assert.Equal(t, 1, f.store.Saves(), "no-op reconciliation does not flush")
}

func TestReconcileFirstSeenWins(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.exe(t, filepath.Join("a", "Tool.exe"))
	b := f.exe(t, filepath.Join("b", "Tool.exe"))

	f.reg.Reconcile([]types.Candidate{a, b})

	apps := f.reg.List()
	require.Len(t, apps, 1)
	assert.Equal(t, a.Path, apps[0].Path)
}

func TestReconcilePrunesMissingPaths(t *testing.T) {
	f := newFixture(t, Options{})
	keep := f.exe(t, "Keep.exe")
	f.store.apps = []types.App{
		{Name: "Gone", Path: filepath.Join(f.appsDir, "Gone.exe"), Favorite: true},
		{Name: "Keep", Path: keep.Path, RunCount: 3},
		{Name: "Elsewhere", Path: "/definitely/not/here.exe"},
	}
	f.reg.Hydrate()

	res := f.reg.Reconcile(nil)

	assert.ElementsMatch(t, []string{"Gone", "Elsewhere"}, res.Pruned)
	apps := f.reg.List()
	require.Len(t, apps, 1)
	assert.Equal(t, 3, apps[0].RunCount, "metadata of kept records survives")
	for _, a := range apps {
		assert.FileExists(t, a.Path)
	}
}

func TestReconcileKeepsExistingMetadata(t *testing.T) {
	f := newFixture(t, Options{})
	notepad := f.exe(t, "Notepad.exe")
	f.store.apps = []types.App{{Name: "Notepad", Path: notepad.Path, Favorite: true, RunCount: 9}}
	f.reg.Hydrate()

	f.reg.Reconcile([]types.Candidate{notepad})

	got, err := f.reg.Get("Notepad")
	require.NoError(t, err)
	assert.True(t, got.Favorite)
	assert.Equal(t, 9, got.RunCount)
}

func TestQueryFilters(t *testing.T) {
	f := newFixture(t, Options{})
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(h int) *time.Time { ts := base.Add(time.Duration(h) * time.Hour); return &ts }
	f.store.apps = []types.App{
		{Name: "Notepad", Path: "/a", Favorite: true, LastRun: at(1), RunCount: 1},
		{Name: "Calc", Path: "/b"},
		{Name: "Paint", Path: "/c", Favorite: true, LastRun: at(3), RunCount: 2},
		{Name: "Notes", Path: "/d", LastRun: at(1), RunCount: 1},
	}
	f.reg.Hydrate()

	assert.Equal(t, []string{"Notepad", "Calc", "Paint", "Notes"}, names(f.reg.Query(types.FilterAll, "")))
	assert.Equal(t, []string{"Notepad", "Paint"}, names(f.reg.Query(types.FilterFavorites, "")))
	assert.Equal(t, []string{"Paint", "Notepad", "Notes"}, names(f.reg.Query(types.FilterRecent, "")),
		"recent is newest first and stable on ties")
	assert.Equal(t, []string{"Notepad", "Notes"}, names(f.reg.Query(types.FilterAll, "NOTE")))
	assert.Equal(t, []string{"Notepad"}, names(f.reg.Query(types.FilterFavorites, "note")))
	assert.Empty(t, f.reg.Query(types.FilterAll, "zzz"))
}

func TestQueryRecentBound(t *testing.T) {
	f := newFixture(t, Options{})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		f.store.apps = append(f.store.apps, types.App{Name: fmt.Sprintf("app%02d", i), Path: "/x", LastRun: &ts})
	}
	f.reg.Hydrate()

	recent := f.reg.Query(types.FilterRecent, "")

	require.Len(t, recent, types.RecentLimit)
	assert.Equal(t, "app14", recent[0].Name)
	for i := 1; i < len(recent); i++ {
		assert.False(t, recent[i].LastRun.After(*recent[i-1].LastRun))
	}
}

func TestQueryIsPure(t *testing.T) {
	f := newFixture(t, Options{})
	f.reg.Reconcile([]types.Candidate{f.exe(t, "Notepad.exe"), f.exe(t, "Calc.exe")})
	before := f.reg.List()
	saves := f.store.Saves()

	got := f.reg.Query(types.FilterAll, "calc")
	got[0].Name = "mutated"
	f.reg.Query(types.FilterRecent, "x")
	f.reg.Query(types.FilterFavorites, "")

	assert.Equal(t, before, f.reg.List())
	assert.Equal(t, saves, f.store.Saves())
}

func TestSearchNarrows(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.apps = []types.App{{Name: "Notepad", Path: "/a"}, {Name: "Notes", Path: "/b"}, {Name: "Calc", Path: "/c"}}
	f.reg.Hydrate()

	for _, filter := range []types.Filter{types.FilterAll, types.FilterFavorites, types.FilterRecent} {
		all := f.reg.Query(filter, "")
		narrowed := f.reg.Query(filter, "not")
		assert.Subset(t, names(all), names(narrowed))
	}
}

func TestFind(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.apps = []types.App{{Name: "Notepad++", Path: "/a"}, {Name: "Notepad", Path: "/b"}}
	f.reg.Hydrate()

	got, err := f.reg.Find("notepad")
	require.NoError(t, err)
	assert.Equal(t, "Notepad++", got.Name, "first match in registry order")

	_, err = f.reg.Find("vim")
	assert.True(t, IsNotFound(err))
	_, err = f.reg.Find("  ")
	assert.True(t, IsNotFound(err))
}

func TestAdd(t *testing.T) {
	f := newFixture(t, Options{})
	src := filepath.Join(t.TempDir(), "Bar.exe")
	require.NoError(t, os.WriteFile(src, []byte("MZ-bar"), 0o755))

	app, err := f.reg.Add(src)
	require.NoError(t, err)

	assert.Equal(t, "Bar", app.Name)
	assert.Equal(t, filepath.Join(f.appsDir, "Bar.exe"), app.Path)
	data, err := os.ReadFile(app.Path)
	require.NoError(t, err)
	assert.Equal(t, "MZ-bar", string(data))
	assert.Equal(t, 1, f.store.Saves())
}

func TestAddDuplicateName(t *testing.T) {
	f := newFixture(t, Options{})
	f.reg.Reconcile([]types.Candidate{f.exe(t, "Bar.exe")})
	before := f.reg.List()
	saves := f.store.Saves()

	src := filepath.Join(t.TempDir(), "Bar.exe")
	require.NoError(t, os.WriteFile(src, []byte("other"), 0o755))

	_, err := f.reg.Add(src)

	assert.True(t, IsAlreadyExists(err))
	assert.Equal(t, before, f.reg.List())
	assert.Equal(t, saves, f.store.Saves())
}

func TestAddCopyFailures(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		f := newFixture(t, Options{})
		_, err := f.reg.Add(filepath.Join(t.TempDir(), "Nope.exe"))
		assert.True(t, IsCopyFailed(err))
		assert.Zero(t, f.reg.Len())
	})

	t.Run("destination exists", func(t *testing.T) {
		f := newFixture(t, Options{})
		require.NoError(t, os.WriteFile(filepath.Join(f.appsDir, "Foo.exe"), []byte("old"), 0o644))
		src := filepath.Join(t.TempDir(), "Foo.exe")
		require.NoError(t, os.WriteFile(src, []byte("new"), 0o755))

		_, err := f.reg.Add(src)

		assert.True(t, IsCopyFailed(err))
		assert.Zero(t, f.reg.Len())
		data, _ := os.ReadFile(filepath.Join(f.appsDir, "Foo.exe"))
		assert.Equal(t, "old", string(data), "existing file untouched")
	})

	t.Run("source is a directory", func(t *testing.T) {
		f := newFixture(t, Options{})
		dir := filepath.Join(t.TempDir(), "Dir.exe")
		require.NoError(t, os.Mkdir(dir, 0o755))
		_, err := f.reg.Add(dir)
		assert.True(t, IsCopyFailed(err))
	})
}

func TestAddCopiesWithoutHoldingLock(t *testing.T) {
	f := newFixture(t, Options{})
	f.reg.Reconcile([]types.Candidate{f.exe(t, "Calc.exe")})
	src := filepath.Join(t.TempDir(), "Big.exe")
	require.NoError(t, os.WriteFile(src, []byte("MZ"), 0o755))

	var listed []types.App
	f.reg.copyFile = func(src, dir string) (string, error) {
		done := make(chan struct{})
		go func() {
			listed = f.reg.List()
			_, _ = f.reg.SetFavorite("Calc", true)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("registry stayed locked during the copy")
		}
		return copyInto(src, dir)
	}

	app, err := f.reg.Add(src)
	require.NoError(t, err)
	assert.Equal(t, "Big", app.Name)
	assert.Equal(t, []string{"Calc"}, names(listed))
	assert.Equal(t, []string{"Calc", "Big"}, names(f.reg.List()))
}

func TestAddNameTakenDuringCopy(t *testing.T) {
	f := newFixture(t, Options{})
	src := filepath.Join(t.TempDir(), "Bar.exe")
	require.NoError(t, os.WriteFile(src, []byte("MZ"), 0o755))
	other := f.exe(t, filepath.Join("elsewhere", "Bar.exe"))

	f.reg.copyFile = func(src, dir string) (string, error) {
		f.reg.Reconcile([]types.Candidate{other})
		return copyInto(src, dir)
	}

	_, err := f.reg.Add(src)

	assert.True(t, IsAlreadyExists(err))
	assert.NoFileExists(t, filepath.Join(f.appsDir, "Bar.exe"), "copied file is removed")
	apps := f.reg.List()
	require.Len(t, apps, 1)
	assert.Equal(t, other.Path, apps[0].Path)
}

func TestRemoveKeepsFile(t *testing.T) {
	f := newFixture(t, Options{})
	c := f.exe(t, "Calc.exe")
	f.reg.Reconcile([]types.Candidate{c})

	removed, err := f.reg.Remove("Calc")
	require.NoError(t, err)

	assert.Equal(t, c.Path, removed.Path)
	assert.Zero(t, f.reg.Len())
	assert.FileExists(t, c.Path)

	_, err = f.reg.Remove("Calc")
	assert.True(t, IsNotFound(err))
}

func TestPurgeDeletesFile(t *testing.T) {
	f := newFixture(t, Options{})
	c := f.exe(t, "Calc.exe")
	f.reg.Reconcile([]types.Candidate{c})

	_, err := f.reg.Purge("Calc")
	require.NoError(t, err)

	assert.Zero(t, f.reg.Len())
	assert.NoFileExists(t, c.Path)

	_, err = f.reg.Purge("Calc")
	assert.True(t, IsNotFound(err))
}

func TestRename(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.apps = []types.App{{Name: "Foo", Path: "/a"}, {Name: "Bar", Path: "/b"}}
	f.reg.Hydrate()

	got, err := f.reg.Rename("Foo", "Bar")
	require.NoError(t, err, "duplicates are allowed by default")
	assert.Equal(t, "Bar", got.Name)
	assert.Equal(t, []string{"Bar", "Bar"}, names(f.reg.List()))

	_, err = f.reg.Rename("Missing", "X")
	assert.True(t, IsNotFound(err))
	_, err = f.reg.Rename("Bar", "   ")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = f.reg.Rename("Bar", "../evil")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestRenameStrict(t *testing.T) {
	f := newFixture(t, Options{StrictRename: true})
	f.store.apps = []types.App{{Name: "Foo", Path: "/a"}, {Name: "Bar", Path: "/b"}}
	f.reg.Hydrate()

	_, err := f.reg.Rename("Foo", "Bar")
	assert.ErrorIs(t, err, ErrNameCollision)

	_, err = f.reg.Rename("Foo", "Foo")
	assert.NoError(t, err, "renaming to its own name is not a collision")
}

func TestSetFavorite(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.apps = []types.App{{Name: "Foo", Path: "/a"}}
	f.reg.Hydrate()

	got, err := f.reg.SetFavorite("Foo", true)
	require.NoError(t, err)
	assert.True(t, got.Favorite)
	assert.Equal(t, []string{"Foo"}, names(f.reg.Query(types.FilterFavorites, "")))
	assert.True(t, f.store.apps[0].Favorite, "mutation flushed")

	_, err = f.reg.SetFavorite("Nope", true)
	assert.True(t, IsNotFound(err))
}

func TestRecordLaunch(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.apps = []types.App{{Name: "Foo", Path: "/a", RunCount: 2}}
	f.reg.Hydrate()
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	got, err := f.reg.RecordLaunch("Foo", "/a", at)
	require.NoError(t, err)

	assert.Equal(t, 3, got.RunCount)
	require.NotNil(t, got.LastRun)
	assert.True(t, at.Equal(*got.LastRun))
	assert.Equal(t, 3, f.store.apps[0].RunCount)

	_, err = f.reg.RecordLaunch("Foo", "/missing", at)
	assert.True(t, IsNotFound(err))
}

func TestRecordLaunchSharedPath(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.apps = []types.App{
		{Name: "Bar", Path: "/apps/Foo.exe", RunCount: 5},
		{Name: "Foo", Path: "/apps/Foo.exe"},
	}
	f.reg.Hydrate()
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	got, err := f.reg.RecordLaunch("Foo", "/apps/Foo.exe", at)
	require.NoError(t, err)
	assert.Equal(t, "Foo", got.Name)
	assert.Equal(t, 1, got.RunCount)

	bar, err := f.reg.Get("Bar")
	require.NoError(t, err)
	assert.Equal(t, 5, bar.RunCount)
	assert.Nil(t, bar.LastRun)

	// Two records on the path and neither carries the name: ambiguous.
	_, err = f.reg.RecordLaunch("Baz", "/apps/Foo.exe", at)
	assert.True(t, IsNotFound(err))
}

func TestRecordLaunchAfterConcurrentRename(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.apps = []types.App{{Name: "Foo", Path: "/apps/Foo.exe"}}
	f.reg.Hydrate()

	_, err := f.reg.Rename("Foo", "Bar")
	require.NoError(t, err)

	got, err := f.reg.RecordLaunch("Foo", "/apps/Foo.exe", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Bar", got.Name)
	assert.Equal(t, 1, got.RunCount)
}

func TestSaveFailureDoesNotChangeResult(t *testing.T) {
	var reported error
	f := newFixture(t, Options{OnSaveError: func(err error) { reported = err }})
	f.store.fail = errors.New("disk full")
	f.store.apps = nil

	res := f.reg.Reconcile([]types.Candidate{f.exe(t, "Foo.exe")})
	_, favErr := f.reg.SetFavorite("Foo", true)

	assert.Equal(t, []string{"Foo"}, res.Added)
	assert.NoError(t, favErr)
	assert.EqualError(t, reported, "disk full")
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.StoreSaveErrors))
	got, err := f.reg.Get("Foo")
	require.NoError(t, err)
	assert.True(t, got.Favorite)
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t, Options{})
	var events []types.Event
	unsubscribe := f.reg.Subscribe(func(ev types.Event) { events = append(events, ev) })

	f.reg.Reconcile([]types.Candidate{f.exe(t, "Foo.exe")})
	_, _ = f.reg.Rename("Foo", "Bar")
	unsubscribe()
	_, _ = f.reg.SetFavorite("Bar", true)

	require.Len(t, events, 2)
	assert.Equal(t, types.EventReconciled, events[0].Kind)
	assert.Equal(t, types.EventRenamed, events[1].Kind)
	assert.Equal(t, "Foo", events[1].OldName)
	assert.Equal(t, "Bar", events[1].Name)
}

func TestStats(t *testing.T) {
	f := newFixture(t, Options{})
	assert.Equal(t, types.RegistryStats{}, f.reg.Stats())

	ts := time.Now()
	f.store.apps = []types.App{
		{Name: "A", Path: "/a", RunCount: 2, LastRun: &ts, Favorite: true},
		{Name: "B", Path: "/b", RunCount: 4, LastRun: &ts},
		{Name: "C", Path: "/c"},
	}
	f.reg.Hydrate()

	s := f.reg.Stats()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Favorites)
	assert.Equal(t, 2, s.Launched)
	assert.Equal(t, 6, s.TotalLaunches)
	assert.InDelta(t, 2.0, s.MeanRuns, 1e-9)
	assert.InDelta(t, 2.0, s.StdDevRuns, 1e-9)
	assert.Equal(t, "B", s.MostUsed)
}

func TestWithFileStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portable_apps.json")
	appsDir := filepath.Join(dir, "apps")
	require.NoError(t, os.MkdirAll(appsDir, 0o755))
	exe := filepath.Join(appsDir, "Foo.exe")
	require.NoError(t, os.WriteFile(exe, []byte("MZ"), 0o755))

	first := NewManager(store.NewFile(path, nil), Options{AppsDir: appsDir}, nil, nil)
	first.Hydrate()
	first.Reconcile([]types.Candidate{{Name: "Foo", Path: exe}})
	_, err := first.SetFavorite("Foo", true)
	require.NoError(t, err)

	second := NewManager(store.NewFile(path, nil), Options{AppsDir: appsDir}, nil, nil)
	second.Hydrate()

	got, err := second.Get("Foo")
	require.NoError(t, err)
	assert.True(t, got.Favorite)
}
