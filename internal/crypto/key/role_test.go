package key

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

type secretHolder struct{}

func (secretHolder) Role() Secret { return Secret{} }

func TestRoles(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "secret", Name[Secret]())
	assert.Equal(t, "public", Name[Public]())
	assert.Equal(t, "secret", fmt.Sprintf("%v", Secret{}))
	assert.Zero(t, unsafe.Sizeof(Secret{}))
	assert.Zero(t, unsafe.Sizeof(Public{}))

	// Copies are free and indistinguishable.
	s := Secret{}
	c := s
	assert.Equal(t, s, c)
}

func TestHolder(t *testing.T) {
	t.Parallel()

	var h Holder[Secret] = secretHolder{}
	assert.Equal(t, Secret{}, h.Role())

	_, isPublic := any(secretHolder{}).(Holder[Public])
	assert.False(t, isPublic, "a secret holder must not satisfy Holder[Public]")
}
