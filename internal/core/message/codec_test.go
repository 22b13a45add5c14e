package message

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderReadsWriterLayout(t *testing.T) {
	id := uuid.New()
	w := NewWriter()
	w.WriteU8(7)
	w.WriteBool(true)
	w.WriteU16(0xBEEF)
	w.WriteU32(123456)
	w.WriteU64(1 << 40)
	w.WriteF32(1.5)
	w.WriteF64(-2.25)
	w.WriteString("mesh/cube")
	w.WriteBytes([]byte{1, 2, 3})
	w.WriteUUID(id)

	r := NewReader(w.Bytes())
	assert.Equal(t, uint8(7), r.ReadU8())
	assert.True(t, r.ReadBool())
	assert.Equal(t, uint16(0xBEEF), r.ReadU16())
	assert.Equal(t, uint32(123456), r.ReadU32())
	assert.Equal(t, uint64(1<<40), r.ReadU64())
	assert.Equal(t, float32(1.5), r.ReadF32())
	assert.Equal(t, -2.25, r.ReadF64())
	assert.Equal(t, "mesh/cube", r.ReadString())
	assert.Equal(t, []byte{1, 2, 3}, r.ReadBytes())
	assert.Equal(t, id, r.ReadUUID())
	require.NoError(t, r.Done())
}

func TestReaderShortPayloadIsSticky(t *testing.T) {
	r := NewReader([]byte{1, 0})
	assert.Equal(t, uint32(0), r.ReadU32())
	assert.ErrorIs(t, r.Err(), ErrShortPayload)
	assert.Equal(t, uint8(0), r.ReadU8())
	assert.ErrorIs(t, r.Done(), ErrShortPayload)
}

func TestReaderLengthPrefixPastEnd(t *testing.T) {
	w := NewWriter()
	w.WriteU32(1000)
	w.WriteU8('x')
	r := NewReader(w.Bytes())
	assert.Equal(t, "", r.ReadString())
	assert.ErrorIs(t, r.Err(), ErrShortPayload)
}

func TestReaderTrailingBytes(t *testing.T) {
	r := NewReader([]byte{1, 2})
	r.ReadU8()
	assert.ErrorIs(t, r.Done(), ErrTrailingBytes)
}
