package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoredTotal(t *testing.T) {
	assert.Equal(t, 0, storedTotal(nil))
	assert.Equal(t, 5, storedTotal(map[string]int{"OK": 3, "BLOCK": 1, "FAIL": 1}))
}
