package infra

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lms.com/internal/constants"
	"lms.com/internal/event"
	"lms.com/internal/model"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   []interface{}
	closed bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func startManager(t *testing.T) (*WsManager, context.CancelFunc) {
	t.Helper()
	m := NewWsManager()
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(cancel)
	return m, cancel
}

func connect(t *testing.T, m *WsManager, userID uint, role model.Role) *fakeConn {
	t.Helper()
	conn := &fakeConn{}
	require.True(t, m.Register(NewWsClient(conn, userID, role)))
	require.Eventually(t, func() bool { return m.ConnectionCount(userID) > 0 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestWsManager_RoutesEvents(t *testing.T) {
	m, _ := startManager(t)
	admin := connect(t, m, 1, model.RoleAdmin)
	alice := connect(t, m, 2, model.RoleStudent)
	bob := connect(t, m, 3, model.RoleStudent)

	m.HandleEvent(event.Event{
		Type: constants.EventRequestCreated,
		Data: event.RequestPayload{RequestID: 10, UserID: 2},
	})
	m.HandleEvent(event.Event{
		Type: constants.EventRequestApproved,
		Data: map[string]interface{}{"RequestID": 10, "UserID": 2},
	})
	m.HandleEvent(event.Event{
		Type: constants.EventCopiesAdjusted,
		Data: event.BookPayload{BookID: 5},
	})

	// admin: created + approved + copies; alice: approved + copies; bob: copies
	assert.Eventually(t, func() bool { return admin.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return alice.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return bob.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWsManager_UnregisterAndStop(t *testing.T) {
	m, cancel := startManager(t)
	conn := &fakeConn{}
	client := NewWsClient(conn, 7, model.RoleStudent)
	require.True(t, m.Register(client))
	require.Eventually(t, func() bool { return m.ConnectionCount(7) == 1 }, time.Second, 5*time.Millisecond)

	m.Unregister(client)
	require.Eventually(t, func() bool { return m.ConnectionCount(7) == 0 }, time.Second, 5*time.Millisecond)

	other := connect(t, m, 8, model.RoleAdmin)
	cancel()
	<-m.done
	assert.False(t, m.Register(NewWsClient(&fakeConn{}, 9, model.RoleAdmin)))
	m.Unregister(client) // must not block after stop

	assert.Eventually(t, func() bool {
		other.mu.Lock()
		defer other.mu.Unlock()
		return other.closed
	}, time.Second, 5*time.Millisecond)
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("profiles/3/", "Me.PNG")
	assert.Regexp(t, `^profiles/3/[0-9a-f-]{36}\.png$`, key)
	assert.NotEqual(t, key, ObjectKey("profiles/3/", "Me.PNG"))
}
