package problem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestList(t *testing.T) {
	var p List
	assert.Empty(t, p.Errors())
	assert.NoError(t, p.Err())

	cause := errors.New("connection refused")
	p.Add("instance %s: %w", "i-1", cause).Add("instance %s failed", "i-2")

	assert.Len(t, p.Errors(), 2)
	err := p.Err()
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "instance i-1: connection refused")
	assert.Contains(t, err.Error(), "instance i-2 failed")
}
