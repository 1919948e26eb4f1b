package uniform

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/texture"
	"github.com/stretchr/testify/assert"
)

func TestFrameSyncRecord(t *testing.T) {
	a := NewUniformStore(materialPacket(), texture.Builtins{})
	b := NewUniformStore(materialPacket(), texture.Builtins{})
	r := NewFrameSyncRecord()

	assert.True(t, r.TryMark(a, "_time"))
	assert.False(t, r.TryMark(a, "_time"))
	assert.True(t, r.TryMark(b, "_time"))
	assert.True(t, r.TryMark(a, ""))
	assert.True(t, r.Synced(a, "_time"))

	r.Reset()
	assert.Equal(t, uint64(1), r.Frame())
	assert.False(t, r.Synced(a, "_time"))
	assert.True(t, r.TryMark(a, "_time"))
}
