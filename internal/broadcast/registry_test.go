package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenchat/stream-platform/internal/model"
	"github.com/lumenchat/stream-platform/pkg/logger"
)

func TestRegistry_PublishAndReceive(t *testing.T) {
	r := NewRegistry(logger.NewNop())

	ch := r.Register("conv-1")
	assert.True(t, r.Active("conv-1"))

	delivered := r.Publish("conv-1", model.SearchStatus{Status: "searching", Query: "go"})
	assert.True(t, delivered)

	ev := <-ch
	assert.Equal(t, model.SearchStatus{Status: "searching", Query: "go"}, ev)
}

func TestRegistry_PublishToIdleConversation(t *testing.T) {
	r := NewRegistry(logger.NewNop())

	delivered := r.Publish("conv-1", model.Thinking{Content: "x"})
	assert.False(t, delivered)
}

func TestRegistry_PublishDropsOnFullBuffer(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	r.Register("conv-1")

	for i := 0; i < channelBuffer; i++ {
		require.True(t, r.Publish("conv-1", model.Thinking{Content: "fill"}))
	}
	assert.False(t, r.Publish("conv-1", model.Thinking{Content: "overflow"}))
}

func TestRegistry_RegisterReplacesAndClosesOld(t *testing.T) {
	r := NewRegistry(logger.NewNop())

	old := r.Register("conv-1")
	replacement := r.Register("conv-1")

	// The displaced channel is closed so its merge loop can exit.
	_, open := <-old
	assert.False(t, open)

	require.True(t, r.Publish("conv-1", model.Thinking{Content: "x"}))
	ev := <-replacement
	assert.Equal(t, model.Thinking{Content: "x"}, ev)
}

func TestRegistry_UnregisterClosesChannel(t *testing.T) {
	r := NewRegistry(logger.NewNop())

	ch := r.Register("conv-1")
	r.Unregister("conv-1", ch)

	assert.False(t, r.Active("conv-1"))
	_, open := <-ch
	assert.False(t, open)
}

func TestRegistry_UnregisterIgnoresDisplacedChannel(t *testing.T) {
	r := NewRegistry(logger.NewNop())

	old := r.Register("conv-1")
	replacement := r.Register("conv-1")

	// The displaced stream tears down with its own stale channel; the
	// successor's entry must survive.
	r.Unregister("conv-1", old)
	assert.True(t, r.Active("conv-1"))

	r.Unregister("conv-1", replacement)
	assert.False(t, r.Active("conv-1"))
}

func TestRegistry_UnregisterUnknownConversation(t *testing.T) {
	r := NewRegistry(logger.NewNop())
	ch := make(chan model.StreamEvent)
	r.Unregister("conv-404", ch)
}
