package synccache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammedbilalns/LogIt-sub002/internal/models"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func msg(id string, offset time.Duration) *models.Message {
	return &models.Message{
		ID:        id,
		ChatID:    "chat1",
		SenderID:  "u1",
		Content:   "msg " + id,
		CreatedAt: base.Add(offset),
	}
}

func ids(msgs []*models.Message) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestMergePageKeepsChronologicalOrder(t *testing.T) {
	c := New()

	c.MergePage("chat1", []*models.Message{
		msg("m3", 3*time.Minute),
		msg("m1", 1*time.Minute),
		msg("m2", 2*time.Minute),
	})

	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(c.Messages("chat1")))
}

func TestMergePageIsIdempotent(t *testing.T) {
	c := New()
	page := []*models.Message{msg("m1", 0), msg("m2", time.Minute)}

	c.MergePage("chat1", page)
	c.MergePage("chat1", page)

	assert.Equal(t, []string{"m1", "m2"}, ids(c.Messages("chat1")))
}

func TestLiveAndPageArrivalOrderDoesNotMatter(t *testing.T) {
	// The same message may arrive live first and in a history page
	// later, or the other way round. Either way it appears once.
	first := New()
	first.ApplyLive("chat1", msg("m2", 2*time.Minute))
	first.MergePage("chat1", []*models.Message{msg("m1", time.Minute), msg("m2", 2*time.Minute)})

	second := New()
	second.MergePage("chat1", []*models.Message{msg("m1", time.Minute), msg("m2", 2*time.Minute)})
	second.ApplyLive("chat1", msg("m2", 2*time.Minute))

	assert.Equal(t, []string{"m1", "m2"}, ids(first.Messages("chat1")))
	assert.Equal(t, []string{"m1", "m2"}, ids(second.Messages("chat1")))
}

func TestLiveMessageSortsIntoOlderHistory(t *testing.T) {
	c := New()
	c.ApplyLive("chat1", msg("m9", 9*time.Minute))
	c.MergePage("chat1", []*models.Message{msg("m1", time.Minute), msg("m2", 2*time.Minute)})

	assert.Equal(t, []string{"m1", "m2", "m9"}, ids(c.Messages("chat1")))
}

func TestEqualTimestampsBreakTiesByID(t *testing.T) {
	c := New()
	c.ApplyLive("chat1", msg("mb", time.Minute))
	c.ApplyLive("chat1", msg("ma", time.Minute))

	assert.Equal(t, []string{"ma", "mb"}, ids(c.Messages("chat1")))
}

func TestOptimisticSendReconciledByClientRef(t *testing.T) {
	c := New()

	pending := msg("", 5*time.Minute)
	pending.ClientRef = "ref-1"
	c.AddPending("chat1", pending)
	require.Equal(t, []string{""}, ids(c.Messages("chat1")))

	// Server copy of the same send replaces the optimistic one.
	confirmed := msg("m1", 5*time.Minute)
	confirmed.ClientRef = "ref-1"
	c.ApplyLive("chat1", confirmed)

	got := c.Messages("chat1")
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)
}

func TestPendingWithoutClientRefIsIgnored(t *testing.T) {
	c := New()
	c.AddPending("chat1", msg("", 0))

	assert.Empty(t, c.Messages("chat1"))
}

func TestPendingSortsChronologically(t *testing.T) {
	c := New()
	c.MergePage("chat1", []*models.Message{msg("m1", time.Minute), msg("m3", 3*time.Minute)})

	pending := msg("", 2*time.Minute)
	pending.ClientRef = "ref-1"
	c.AddPending("chat1", pending)

	assert.Equal(t, []string{"m1", "", "m3"}, ids(c.Messages("chat1")))
}

func TestPendingSortsAfterConfirmedAtSameInstant(t *testing.T) {
	c := New()
	c.ApplyLive("chat1", msg("m1", time.Minute))

	pending := msg("", time.Minute)
	pending.ClientRef = "ref-1"
	c.AddPending("chat1", pending)

	assert.Equal(t, []string{"m1", ""}, ids(c.Messages("chat1")))
}

func TestSubscribeFlags(t *testing.T) {
	c := New()

	assert.False(t, c.Subscribed("chat1"))
	c.Subscribe("chat1")
	assert.True(t, c.Subscribed("chat1"))
	assert.False(t, c.Removed("chat1"))
}

func TestForceLeaveKeepsHistoryReadable(t *testing.T) {
	c := New()
	c.Subscribe("chat1")
	c.MergePage("chat1", []*models.Message{msg("m1", 0), msg("m2", time.Minute)})

	c.ForceLeave("chat1")

	assert.False(t, c.Subscribed("chat1"))
	assert.True(t, c.Removed("chat1"))
	assert.Equal(t, []string{"m1", "m2"}, ids(c.Messages("chat1")))
}

func TestResubscribeClearsRemoved(t *testing.T) {
	c := New()
	c.ForceLeave("chat1")

	c.Subscribe("chat1")

	assert.True(t, c.Subscribed("chat1"))
	assert.False(t, c.Removed("chat1"))
}

func TestChatsAreIsolated(t *testing.T) {
	c := New()
	c.ApplyLive("chat1", msg("m1", 0))

	assert.Empty(t, c.Messages("chat2"))
	assert.Len(t, c.Messages("chat1"), 1)
}
