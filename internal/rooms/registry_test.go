package rooms

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinIsIdempotent(t *testing.T) {
	reg := NewRegistry()

	reg.Join("chat1", "c1", "u1")
	reg.Join("chat1", "c1", "u1")
	reg.Join("chat1", "c2", "u2")

	assert.ElementsMatch(t, []string{"c1", "c2"}, reg.Connections("chat1"))
}

func TestLeaveIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	reg.Join("chat1", "c1", "u1")

	reg.Leave("chat1", "c1")
	reg.Leave("chat1", "c1")
	reg.Leave("never-existed", "c1")

	assert.Empty(t, reg.Connections("chat1"))
}

func TestConnectionMaySubscribeToManyRooms(t *testing.T) {
	reg := NewRegistry()
	reg.Join("chat1", "c1", "u1")
	reg.Join("chat2", "c1", "u1")

	assert.Equal(t, []string{"c1"}, reg.Connections("chat1"))
	assert.Equal(t, []string{"c1"}, reg.Connections("chat2"))

	reg.Leave("chat1", "c1")
	assert.Empty(t, reg.Connections("chat1"))
	assert.Equal(t, []string{"c1"}, reg.Connections("chat2"))
}

func TestLeaveAllReturnsLeftChats(t *testing.T) {
	reg := NewRegistry()
	reg.Join("chat1", "c1", "u1")
	reg.Join("chat2", "c1", "u1")
	reg.Join("chat1", "c2", "u2")

	left := reg.LeaveAll("c1")

	assert.ElementsMatch(t, []string{"chat1", "chat2"}, left)
	assert.Equal(t, []string{"c2"}, reg.Connections("chat1"))
	assert.Empty(t, reg.Connections("chat2"))

	assert.Empty(t, reg.LeaveAll("c1"))
}

func TestConnectionsOfUser(t *testing.T) {
	reg := NewRegistry()
	reg.Join("chat1", "c1", "u1")
	reg.Join("chat1", "c2", "u1")
	reg.Join("chat1", "c3", "u2")

	assert.ElementsMatch(t, []string{"c1", "c2"}, reg.ConnectionsOfUser("chat1", "u1"))
	assert.Equal(t, []string{"c3"}, reg.ConnectionsOfUser("chat1", "u2"))
	assert.Empty(t, reg.ConnectionsOfUser("chat1", "ghost"))
}

func TestEvictRemovesEveryConnectionOfUser(t *testing.T) {
	reg := NewRegistry()
	reg.Join("chat1", "c1", "u1")
	reg.Join("chat1", "c2", "u1")
	reg.Join("chat1", "c3", "u2")
	reg.Join("chat2", "c1", "u1")

	evicted := reg.Evict("chat1", "u1")

	assert.ElementsMatch(t, []string{"c1", "c2"}, evicted)
	assert.Equal(t, []string{"c3"}, reg.Connections("chat1"))
	// Other rooms keep the evicted user's subscriptions.
	assert.Equal(t, []string{"c1"}, reg.Connections("chat2"))

	assert.Nil(t, reg.Evict("chat1", "u1"))
	assert.Nil(t, reg.Evict("ghost-chat", "u1"))
}

func TestSetMembersAndIsMember(t *testing.T) {
	reg := NewRegistry()

	reg.SetMembers("chat1", []string{"u1", "u2"})
	assert.True(t, reg.IsMember("chat1", "u1"))
	assert.True(t, reg.IsMember("chat1", "u2"))
	assert.False(t, reg.IsMember("chat1", "u3"))

	reg.SetMembers("chat1", []string{"u1"})
	assert.True(t, reg.IsMember("chat1", "u1"))
	assert.False(t, reg.IsMember("chat1", "u2"))
}

func TestEmptyRoomIsPruned(t *testing.T) {
	reg := NewRegistry()

	reg.Join("chat1", "c1", "u1")
	reg.Leave("chat1", "c1")
	assert.Empty(t, reg.rooms)

	reg.SetMembers("chat2", []string{"u1"})
	reg.SetMembers("chat2", nil)
	assert.Empty(t, reg.rooms)
}

func TestConcurrentJoinLeave(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			connID := fmt.Sprintf("c%d", n)
			for j := 0; j < 200; j++ {
				reg.Join("chat1", connID, "u1")
				reg.Connections("chat1")
				reg.Leave("chat1", connID)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, reg.Connections("chat1"))
	assert.Empty(t, reg.rooms)
	assert.Empty(t, reg.byConn)
}
