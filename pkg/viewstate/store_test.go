package viewstate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type row struct {
	ID   string
	Name string
}

func newStore(opts ...Option[string, row]) *Store[string, row] {
	return New(func(r row) string { return r.ID }, opts...)
}

func TestApplyCurrentTicket(t *testing.T) {
	s := newStore()

	tk := s.Begin("a")
	require.True(t, s.Apply(tk, Upsert[string](row{ID: "a", Name: "first"})))

	got, ok := s.Get("a")
	require.True(t, ok)
	require.Equal(t, "first", got.Name)

	// a ticket is single use
	require.False(t, s.Apply(tk, Upsert[string](row{ID: "a", Name: "again"})))
	got, _ = s.Get("a")
	require.Equal(t, "first", got.Name)
}

func TestStaleTicketDiscarded(t *testing.T) {
	s := newStore()

	older := s.Begin("a")
	newer := s.Begin("a")

	require.True(t, s.Apply(newer, Upsert[string](row{ID: "a", Name: "new"})))
	require.False(t, s.Apply(older, Upsert[string](row{ID: "a", Name: "old"})))

	got, _ := s.Get("a")
	require.Equal(t, "new", got.Name)
}

func TestScopesAreIndependent(t *testing.T) {
	s := newStore()

	ta := s.Begin("a")
	tb := s.Begin("b")

	require.True(t, s.Apply(tb, Upsert[string](row{ID: "b"})))
	require.True(t, s.Apply(ta, Upsert[string](row{ID: "a"})))
	require.Equal(t, 2, s.Len())
}

func TestReplaceRetiresOlderTickets(t *testing.T) {
	s := newStore()

	mutation := s.Begin("x")
	refetch := s.Begin(ScopeAll)

	require.True(t, s.Apply(refetch, Replace[string]([]row{{ID: "y"}, {ID: "z"}})))
	require.False(t, s.Apply(mutation, Upsert[string](row{ID: "x"})))

	_, ok := s.Get("x")
	require.False(t, ok)
	require.Equal(t, 2, s.Len())

	after := s.Begin("x")
	require.True(t, s.Apply(after, Remove[string, row]("y")))
	require.Equal(t, 1, s.Len())
}

func TestCloseDiscardsOutstandingResults(t *testing.T) {
	calls := 0
	s := newStore(OnChange[string, row](func() { calls++ }))

	tk := s.Begin(ScopeAll)
	s.Close()

	require.True(t, s.Closed())
	require.False(t, s.Current(tk))
	require.False(t, s.Apply(tk, Replace[string]([]row{{ID: "a"}})))
	require.False(t, s.Apply(s.Begin("a"), Upsert[string](row{ID: "a"})))
	require.Zero(t, s.Len())
	require.Zero(t, calls)
}

func TestListOrder(t *testing.T) {
	s := newStore(WithOrder[string](func(a, b row) bool { return a.Name < b.Name }))
	s.Apply(s.Begin(ScopeAll), Replace[string]([]row{
		{ID: "1", Name: "charlie"},
		{ID: "2", Name: "alpha"},
		{ID: "3", Name: "bravo"},
	}))

	names := []string{}
	for _, r := range s.List() {
		names = append(names, r.Name)
	}
	require.Equal(t, []string{"alpha", "bravo", "charlie"}, names)
}

func TestConcurrentApply(t *testing.T) {
	s := newStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%26))
			tk := s.Begin(id + string(rune('0'+i/26)))
			s.Apply(tk, Upsert[string](row{ID: id}))
		}(i)
	}
	wg.Wait()
	require.Equal(t, 26, s.Len())
}

func TestMergeKeepsExistingRows(t *testing.T) {
	s := newStore()
	s.Apply(s.Begin(ScopeAll), Replace[string]([]row{{ID: "a", Name: "old"}}))

	require.True(t, s.Apply(s.Begin("batch"), Merge[string]([]row{{ID: "a", Name: "new"}, {ID: "b"}})))

	got, _ := s.Get("a")
	require.Equal(t, "new", got.Name)
	require.Equal(t, 2, s.Len())
}
