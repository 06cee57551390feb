package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBytesZeroLength(t *testing.T) {
	buf := GetBytes(100)
	assert.Equal(t, 0, len(buf))
	assert.GreaterOrEqual(t, cap(buf), 100)
}

func TestPutBytesNilIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { PutBytes(nil) })
}

func TestRoundTripReusesCapacity(t *testing.T) {
	buf := GetBytes(40000)
	buf = append(buf, make([]byte, 40000)...)
	cap1 := cap(buf)
	PutBytes(buf)
	buf2 := GetBytes(40000)
	assert.Equal(t, 0, len(buf2))
	assert.GreaterOrEqual(t, cap(buf2), cap1-32*1024)
}
