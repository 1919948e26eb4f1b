package allocator

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/device/devicetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateAlignsOffsets(t *testing.T) {
	rec := devicetest.NewRecorder()
	a := NewAllocator(rec)

	v1 := a.AllocateUniformBuffer(16)
	v2 := a.AllocateUniformBuffer(64)
	v3 := a.AllocateUniformBuffer(300)

	require.True(t, v1.IsValid())
	assert.Equal(t, v1.Buffer, v2.Buffer)
	assert.Equal(t, uint64(0), v1.Offset)
	assert.Equal(t, uint64(256), v2.Offset)
	assert.Equal(t, uint64(512), v3.Offset)
	assert.Equal(t, uint64(300), v3.Size)

	s := a.Stats()
	assert.Equal(t, 1, s.Blocks)
	assert.Equal(t, uint64(256+256+512), s.BytesInUse)
	assert.Equal(t, 3, s.Allocations)
}

func TestAllocateGrowsNewBlock(t *testing.T) {
	rec := devicetest.NewRecorder()
	a := NewAllocator(rec, WithBlockSize(512))

	v1 := a.AllocateUniformBuffer(256)
	v2 := a.AllocateUniformBuffer(256)
	v3 := a.AllocateUniformBuffer(16)

	assert.Equal(t, v1.Buffer, v2.Buffer)
	assert.NotEqual(t, v1.Buffer, v3.Buffer)
	assert.Equal(t, uint64(0), v3.Offset)
	assert.Equal(t, 2, a.Stats().Blocks)

	big := a.AllocateUniformBuffer(2048)
	assert.Equal(t, uint64(0), big.Offset)
	assert.Equal(t, uint64(2048), rec.Buffers[big.Buffer])
}

func TestFreeReusesSlot(t *testing.T) {
	rec := devicetest.NewRecorder()
	a := NewAllocator(rec)

	v1 := a.AllocateUniformBuffer(64)
	a.Free(v1)
	assert.Equal(t, 0, a.Stats().Allocations)

	v2 := a.AllocateUniformBuffer(100)
	assert.Equal(t, v1.Buffer, v2.Buffer)
	assert.Equal(t, v1.Offset, v2.Offset)
	assert.Equal(t, uint64(100), v2.Size)

	a.Free(BufferView{})
	assert.Equal(t, 1, a.Stats().Allocations)
}

func TestUniformAndStoragePoolsAreSeparate(t *testing.T) {
	rec := devicetest.NewRecorder()
	a := NewAllocator(rec)

	u := a.AllocateUniformBuffer(16)
	s := a.AllocateStorageBuffer(16)
	assert.NotEqual(t, u.Buffer, s.Buffer)
	assert.Equal(t, 2, a.Stats().Blocks)
}

func TestWriteData(t *testing.T) {
	rec := devicetest.NewRecorder()
	a := NewAllocator(rec)
	v := a.AllocateUniformBuffer(8)

	require.NoError(t, a.WriteData(v, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	data, ok := rec.LastWrite(v.Buffer, v.Offset)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, data)
	assert.Equal(t, 1, a.Stats().Writes)

	assert.ErrorIs(t, a.WriteData(v, make([]byte, 9)), ErrWriteOverflow)
	assert.ErrorIs(t, a.WriteData(BufferView{}, []byte{1}), ErrInvalidView)
}

func TestReleaseFreesBlocks(t *testing.T) {
	rec := devicetest.NewRecorder()
	a := NewAllocator(rec)
	a.AllocateUniformBuffer(16)
	a.AllocateStorageBuffer(16)
	require.Len(t, rec.Buffers, 2)

	a.Release()
	assert.Empty(t, rec.Buffers)
	assert.Equal(t, Stats{}, a.Stats())
}
