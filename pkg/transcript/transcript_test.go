package transcript

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContainer_AppendRemoveOrder(t *testing.T) {
	c := NewContainer()
	changes := 0
	c.OnChange(func() { changes++ })

	c.Append(Node{ID: "1", Kind: KindTurn, Role: RoleUser, Raw: "hello"})
	c.Append(Node{ID: "typing", Kind: KindTyping, Role: RoleAssistant})
	c.Append(Node{ID: "2", Kind: KindTurn, Role: RoleAssistant, Raw: "hi"})

	require.Equal(t, 3, c.Len())
	require.Equal(t, 1, c.Count(KindTyping))
	require.True(t, c.Remove("typing"))
	require.False(t, c.Remove("typing"))
	require.Equal(t, []Turn{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
	}, c.Turns())
	require.Equal(t, 4, changes)
}

func TestContainer_AppendUnique(t *testing.T) {
	c := NewContainer()
	require.True(t, c.AppendUnique(Node{ID: "typing", Kind: KindTyping}))
	require.False(t, c.AppendUnique(Node{ID: "typing", Kind: KindTyping}))
	require.Equal(t, 1, c.Count(KindTyping))
	require.True(t, c.Has("typing"))
}

func TestContainer_ClearAndScroll(t *testing.T) {
	c := NewContainer()
	c.Append(Node{ID: "1", Kind: KindTurn})
	c.ScrollToEnd()
	c.ScrollToEnd()
	require.Equal(t, uint64(2), c.ScrollRequests())

	c.Clear()
	require.Equal(t, 0, c.Len())
	require.Empty(t, c.Turns())
}

func TestContainer_NodesIsACopy(t *testing.T) {
	c := NewContainer()
	c.Append(Node{ID: "1", Raw: "a"})
	nodes := c.Nodes()
	nodes[0].Raw = "changed"
	require.Equal(t, "a", c.Nodes()[0].Raw)
}

func TestContainer_ConcurrentAppends(t *testing.T) {
	c := NewContainer()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Append(Node{Kind: KindTurn})
		}()
	}
	wg.Wait()
	require.Equal(t, 50, c.Len())
}
