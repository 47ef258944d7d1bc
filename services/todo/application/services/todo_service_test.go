package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgcache "github.com/ghuser/todolist/pkg/cache"
	"github.com/ghuser/todolist/pkg/config"
	"github.com/ghuser/todolist/pkg/logger"
	tododomain "github.com/ghuser/todolist/services/todo/domain"
	"github.com/ghuser/todolist/services/todo/domain/models"
	"github.com/ghuser/todolist/services/todo/domain/repositories"
	"github.com/ghuser/todolist/services/todo/infrastructure/persistence/memory"
)

var errConnReset = errors.New("connection reset by peer")

// fakeItemCache is an in-memory ItemCache with the same version rule as
// cache.TodoCache. Every Fill result is reported on fills.
type fakeItemCache struct {
	mu       sync.Mutex
	todos    map[uuid.UUID]pkgcache.CachedTodo
	versions map[uuid.UUID]int64
	fills    chan bool
}

func newFakeItemCache() *fakeItemCache {
	return &fakeItemCache{
		todos:    map[uuid.UUID]pkgcache.CachedTodo{},
		versions: map[uuid.UUID]int64{},
		fills:    make(chan bool, 8),
	}
}

func (c *fakeItemCache) Get(_ context.Context, id uuid.UUID) (*pkgcache.CachedTodo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.todos[id]
	if !ok {
		return nil, redis.Nil
	}
	return &t, nil
}

func (c *fakeItemCache) Version(_ context.Context, id uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[id], nil
}

func (c *fakeItemCache) Fill(_ context.Context, todo *pkgcache.CachedTodo, version int64) (bool, error) {
	c.mu.Lock()
	ok := c.versions[todo.ID] == version
	if ok {
		c.todos[todo.ID] = *todo
	}
	c.mu.Unlock()
	c.fills <- ok
	return ok, nil
}

func (c *fakeItemCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[id]++
	delete(c.todos, id)
	return nil
}

// awaitFill waits for the asynchronous cache warm started by Get.
func awaitFill(t *testing.T, c *fakeItemCache) bool {
	t.Helper()
	select {
	case ok := <-c.fills:
		return ok
	case <-time.After(time.Second):
		t.Fatal("cache warm was not attempted")
		return false
	}
}

// hookedStore runs afterGet once a Get has read the store.
type hookedStore struct {
	repositories.TodoStore
	afterGet func()
}

func (s *hookedStore) Get(ctx context.Context, id uuid.UUID) (models.Todo, error) {
	todo, err := s.TodoStore.Get(ctx, id)
	if s.afterGet != nil {
		s.afterGet()
	}
	return todo, err
}

// fakeSnapshots is an in-memory SnapshotCache.
type fakeSnapshots struct {
	todos []pkgcache.CachedTodo
	saved bool
}

func (s *fakeSnapshots) Load(context.Context) ([]pkgcache.CachedTodo, error) {
	if !s.saved {
		return nil, redis.Nil
	}
	return s.todos, nil
}

func (s *fakeSnapshots) Save(_ context.Context, todos []pkgcache.CachedTodo) error {
	s.todos, s.saved = todos, true
	return nil
}

func steppedClock() func() time.Time {
	t := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestService(opts Options) (*TodoService, *memory.TodoStore) {
	store := memory.NewTodoStore()
	store.SetClock(steppedClock())
	return NewTodoService(store, nil, nil, nil, logger.Discard(), opts), store
}

func names(todos []models.Todo) []string {
	out := make([]string, len(todos))
	for i, t := range todos {
		out[i] = t.Name.String()
	}
	return out
}

func TestTodoService_BuyMilkScenario(t *testing.T) {
	for _, refresh := range []RefreshStrategy{RefreshRefetch, RefreshPatch} {
		t.Run(string(refresh), func(t *testing.T) {
			svc, _ := newTestService(Options{EnableDelete: true, Refresh: refresh})
			ctx := context.Background()
			v := &View{}

			if err := svc.Fetch(ctx, v); err != nil {
				t.Fatalf("fetch: %v", err)
			}
			if len(v.Todos) != 0 {
				t.Fatalf("expected empty list, got %v", names(v.Todos))
			}

			if _, err := svc.Add(ctx, v, "Buy milk"); err != nil {
				t.Fatalf("add: %v", err)
			}
			if len(v.Todos) != 1 || v.Todos[0].Name != "Buy milk" || v.Todos[0].Done {
				t.Fatalf("unexpected list after add: %+v", v.Todos)
			}
			if v.Draft != "" {
				t.Fatalf("expected draft cleared, got %q", v.Draft)
			}
			id := v.Todos[0].ID

			if err := svc.Toggle(ctx, v, id, false); err != nil {
				t.Fatalf("toggle: %v", err)
			}
			if !v.Todos[0].Done {
				t.Fatal("expected done=true after toggle")
			}

			if err := svc.Delete(ctx, v, id); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if len(v.Todos) != 0 {
				t.Fatalf("expected empty list after delete, got %v", names(v.Todos))
			}
		})
	}
}

func TestTodoService_AddBlankIsNoop(t *testing.T) {
	tests := []string{"", " ", "\t\n  "}
	for _, input := range tests {
		t.Run("input="+input, func(t *testing.T) {
			svc, store := newTestService(Options{})
			v := &View{}

			todo, err := svc.Add(context.Background(), v, input)
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if todo != nil {
				t.Fatalf("expected no todo, got %+v", todo)
			}
			if store.Calls() != 0 {
				t.Fatalf("expected no store calls, got %d", store.Calls())
			}
			if v.Draft != input {
				t.Fatalf("draft = %q, want %q", v.Draft, input)
			}
		})
	}
}

func TestTodoService_AddTrimsName(t *testing.T) {
	svc, _ := newTestService(Options{})
	v := &View{}

	todo, err := svc.Add(context.Background(), v, "  Buy milk  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if todo.Name != "Buy milk" {
		t.Fatalf("name = %q, want %q", todo.Name, "Buy milk")
	}
}

func TestTodoService_AddOversizedNameRejected(t *testing.T) {
	svc, store := newTestService(Options{})
	v := &View{}
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'x'
	}

	_, err := svc.Add(context.Background(), v, string(long))
	if !errors.Is(err, tododomain.ErrInvalidTodoName) {
		t.Fatalf("expected ErrInvalidTodoName, got %v", err)
	}
	if store.Calls() != 0 {
		t.Fatalf("expected no store calls, got %d", store.Calls())
	}
	if v.Draft != string(long) {
		t.Fatal("expected draft retained")
	}
}

func TestTodoService_FailureLeavesViewUnchanged(t *testing.T) {
	svc, store := newTestService(Options{EnableDelete: true, Refresh: RefreshPatch})
	ctx := context.Background()
	v := &View{}

	if _, err := svc.Add(ctx, v, "Buy milk"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := append([]models.Todo(nil), v.Todos...)
	id := before[0].ID

	store.FailWith(errConnReset)

	t.Run("fetch", func(t *testing.T) {
		err := svc.Fetch(ctx, v)
		if !errors.Is(err, tododomain.ErrStoreOperation) {
			t.Fatalf("expected ErrStoreOperation, got %v", err)
		}
		assertSameTodos(t, v.Todos, before)
	})

	t.Run("add", func(t *testing.T) {
		_, err := svc.Add(ctx, v, "Eggs")
		if !errors.Is(err, tododomain.ErrStoreOperation) {
			t.Fatalf("expected ErrStoreOperation, got %v", err)
		}
		if v.Draft != "Eggs" {
			t.Fatalf("expected draft retained, got %q", v.Draft)
		}
		assertSameTodos(t, v.Todos, before)
	})

	t.Run("toggle", func(t *testing.T) {
		if err := svc.Toggle(ctx, v, id, false); !errors.Is(err, tododomain.ErrStoreOperation) {
			t.Fatalf("expected ErrStoreOperation, got %v", err)
		}
		assertSameTodos(t, v.Todos, before)
	})

	t.Run("delete", func(t *testing.T) {
		if err := svc.Delete(ctx, v, id); !errors.Is(err, tododomain.ErrStoreOperation) {
			t.Fatalf("expected ErrStoreOperation, got %v", err)
		}
		assertSameTodos(t, v.Todos, before)
	})
}

func assertSameTodos(t *testing.T, got, want []models.Todo) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("list changed: got %v, want %v", names(got), names(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("list changed at %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTodoService_Ordering(t *testing.T) {
	tests := []struct {
		order repositories.SortOrder
		want  []string
	}{
		{repositories.Ascending, []string{"first", "second", "third"}},
		{repositories.Descending, []string{"third", "second", "first"}},
	}
	for _, tt := range tests {
		for _, refresh := range []RefreshStrategy{RefreshRefetch, RefreshPatch} {
			t.Run(tt.order.String()+"/"+string(refresh), func(t *testing.T) {
				svc, _ := newTestService(Options{Order: tt.order, Refresh: refresh})
				v := &View{}
				for _, n := range []string{"first", "second", "third"} {
					if _, err := svc.Add(context.Background(), v, n); err != nil {
						t.Fatalf("add %q: %v", n, err)
					}
				}
				got := names(v.Todos)
				for i := range tt.want {
					if got[i] != tt.want[i] {
						t.Fatalf("order = %v, want %v", got, tt.want)
					}
				}
			})
		}
	}
}

func TestTodoService_DeleteDisabled(t *testing.T) {
	svc, store := newTestService(Options{EnableDelete: false})
	ctx := context.Background()
	v := &View{}
	todo, _ := svc.Add(ctx, v, "Buy milk")
	calls := store.Calls()

	if err := svc.Delete(ctx, v, todo.ID); !errors.Is(err, tododomain.ErrDeleteDisabled) {
		t.Fatalf("expected ErrDeleteDisabled, got %v", err)
	}
	if store.Calls() != calls {
		t.Fatal("expected no store call when delete is disabled")
	}
	if len(v.Todos) != 1 {
		t.Fatal("expected list unchanged")
	}
}

func TestTodoService_ToggleMissingTodo(t *testing.T) {
	svc, _ := newTestService(Options{})
	err := svc.Toggle(context.Background(), &View{}, uuid.New(), false)
	if !errors.Is(err, tododomain.ErrTodoNotFound) {
		t.Fatalf("expected ErrTodoNotFound, got %v", err)
	}
}

func TestTodoService_PatchKeepsListWhenReconcileFails(t *testing.T) {
	store := memory.NewTodoStore()
	svc := NewTodoService(&failingSelect{TodoStore: store}, nil, nil, nil, logger.Discard(),
		Options{Refresh: RefreshPatch})
	v := &View{}

	if _, err := svc.Add(context.Background(), v, "Buy milk"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Todos) != 1 || v.Todos[0].Name != "Buy milk" {
		t.Fatalf("expected patched list, got %+v", v.Todos)
	}
}

func TestTodoService_RefetchKeepsOldListWhenRefreshFails(t *testing.T) {
	store := memory.NewTodoStore()
	svc := NewTodoService(&failingSelect{TodoStore: store}, nil, nil, nil, logger.Discard(),
		Options{Refresh: RefreshRefetch})
	v := &View{}

	if _, err := svc.Add(context.Background(), v, "Buy milk"); err != nil {
		t.Fatalf("insert succeeded, expected nil error, got %v", err)
	}
	if len(v.Todos) != 0 {
		t.Fatalf("expected stale list, got %+v", v.Todos)
	}
	if v.Draft != "" {
		t.Fatalf("expected draft cleared after successful insert, got %q", v.Draft)
	}
}

// failingSelect wraps a store so that only Select fails.
type failingSelect struct {
	*memory.TodoStore
}

func (f *failingSelect) Select(context.Context, repositories.SortOrder) ([]models.Todo, error) {
	return nil, tododomain.ErrStoreOperation
}

func TestTodoService_SnapshotSeedsView(t *testing.T) {
	store := memory.NewTodoStore()
	snaps := &fakeSnapshots{}
	svc := NewTodoService(store, nil, snaps, nil, logger.Discard(), Options{})
	ctx := context.Background()

	empty := svc.NewView(ctx)
	if len(empty.Todos) != 0 || empty.Stale {
		t.Fatalf("expected empty fresh view without snapshot, got %+v", empty)
	}

	v := &View{}
	if _, err := svc.Add(ctx, v, "Buy milk"); err != nil {
		t.Fatalf("add: %v", err)
	}

	store.FailWith(errConnReset)
	seeded := svc.NewView(ctx)
	if err := svc.Fetch(ctx, seeded); err == nil {
		t.Fatal("expected fetch error")
	}
	if !seeded.Stale || len(seeded.Todos) != 1 || seeded.Todos[0].Name != "Buy milk" {
		t.Fatalf("expected stale snapshot view, got %+v", seeded)
	}

	store.FailWith(nil)
	if err := svc.Fetch(ctx, seeded); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if seeded.Stale {
		t.Fatal("expected Stale cleared after successful fetch")
	}
}

func TestTodoService_GetReadThrough(t *testing.T) {
	store := memory.NewTodoStore()
	items := newFakeItemCache()
	svc := NewTodoService(store, items, nil, nil, logger.Discard(), Options{})
	ctx := context.Background()

	created, err := store.Insert(ctx, "Buy milk")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("unexpected todo: %+v", got)
	}

	if !awaitFill(t, items) {
		t.Fatal("expected cache to be warmed")
	}

	store.FailWith(errConnReset)
	cached, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("expected cache hit, got %v", err)
	}
	if cached.Name != "Buy milk" {
		t.Fatalf("unexpected cached todo: %+v", cached)
	}
}

func TestTodoService_ToggleInvalidatesItemCache(t *testing.T) {
	store := memory.NewTodoStore()
	items := newFakeItemCache()
	svc := NewTodoService(store, items, nil, nil, logger.Discard(), Options{})
	ctx := context.Background()

	created, _ := store.Insert(ctx, "Buy milk")
	if _, err := svc.Get(ctx, created.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	awaitFill(t, items)

	if err := svc.Toggle(ctx, &View{}, created.ID, false); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := items.Get(ctx, created.ID); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected cache entry dropped, got %v", err)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after toggle: %v", err)
	}
	if !got.Done {
		t.Fatal("expected done=true after toggle")
	}
}

func TestTodoService_GetDoesNotCacheTodoChangedDuringRead(t *testing.T) {
	tests := []struct {
		name   string
		change func(svc *TodoService, id uuid.UUID) error
	}{
		{"toggled", func(svc *TodoService, id uuid.UUID) error {
			return svc.Toggle(context.Background(), &View{}, id, false)
		}},
		{"deleted", func(svc *TodoService, id uuid.UUID) error {
			return svc.Delete(context.Background(), &View{}, id)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mem := memory.NewTodoStore()
			store := &hookedStore{TodoStore: mem}
			items := newFakeItemCache()
			svc := NewTodoService(store, items, nil, nil, logger.Discard(), Options{EnableDelete: true})

			created, _ := mem.Insert(ctx, "Buy milk")
			store.afterGet = func() {
				store.afterGet = nil
				if err := tt.change(svc, created.ID); err != nil {
					t.Errorf("change: %v", err)
				}
			}

			got, err := svc.Get(ctx, created.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Done {
				t.Fatal("expected the pre-change read to be returned")
			}
			if awaitFill(t, items) {
				t.Fatal("expected the outdated read not to be cached")
			}
			if _, err := items.Get(ctx, created.ID); !errors.Is(err, redis.Nil) {
				t.Fatalf("expected no cache entry, got %v", err)
			}
		})
	}
}

func TestTodoService_GetNotFound(t *testing.T) {
	svc, _ := newTestService(Options{})
	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, tododomain.ErrTodoNotFound) {
		t.Fatalf("expected ErrTodoNotFound, got %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(&config.Config{
		TodoOrder:        config.OrderDescending,
		TodoEnableDelete: true,
		TodoViewRefresh:  config.RefreshPatch,
	})
	if opts.Order != repositories.Descending || !opts.EnableDelete || opts.Refresh != RefreshPatch {
		t.Fatalf("unexpected options: %+v", opts)
	}
}
