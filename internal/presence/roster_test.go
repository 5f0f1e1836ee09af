package presence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoster_AddRemove(t *testing.T) {
	r := NewRoster()
	require.Equal(t, 0, r.Len())

	require.True(t, r.Add("alice"))
	require.False(t, r.Add("alice"), "duplicate add must be a no-op")
	require.True(t, r.Add("bob"))
	require.Equal(t, []string{"alice", "bob"}, r.Users())

	require.False(t, r.Remove("dave"), "removing an absent user must be a no-op")
	require.Equal(t, []string{"alice", "bob"}, r.Users())

	require.True(t, r.Remove("alice"))
	require.False(t, r.Contains("alice"))
	require.True(t, r.Contains("bob"))
	require.Equal(t, 1, r.Len())
}

func TestRoster_Merge(t *testing.T) {
	r := NewRoster()
	r.Add("carol")
	r.Merge([]string{"alice", "bob", "alice"})

	require.Equal(t, []string{"alice", "bob", "carol"}, r.Users())
}

func TestRoster_Replace(t *testing.T) {
	r := NewRoster()
	r.Merge([]string{"alice", "bob", "carol"})
	r.Replace([]string{"bob", "dave"})

	require.Equal(t, []string{"bob", "dave"}, r.Users())

	r.Replace(nil)
	require.Empty(t, r.Users())
}

func TestRoster_Clear(t *testing.T) {
	r := NewRoster()
	r.Merge([]string{"alice", "bob"})
	r.Clear()

	require.Equal(t, 0, r.Len())
	require.Empty(t, r.Users())
}

func TestRoster_Concurrent(t *testing.T) {
	r := NewRoster()
	users := []string{"a", "b", "c", "d", "e"}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Go(func() {
			for _, u := range users {
				r.Add(u)
				_ = r.Users()
			}
		})
	}
	wg.Wait()

	require.Equal(t, users, r.Users())
}
