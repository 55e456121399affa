package httpmiddleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucket_ExhaustsCapacity(t *testing.T) {
	// GIVEN: a bucket with capacity 3
	// WHEN: a client makes 4 immediate requests
	// THEN: the fourth is rejected

	l := NewSimpleTokenBucket(3, 60)
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("1.2.3.4"), "request %d", i+1)
	}
	assert.False(t, l.allow("1.2.3.4"))
}

func TestTokenBucket_RefillsOverTime(t *testing.T) {
	l := NewSimpleTokenBucket(2, 60)
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("1.2.3.4"))
	assert.True(t, l.allow("1.2.3.4"))
	assert.False(t, l.allow("1.2.3.4"))

	now = now.Add(2 * time.Second) // 60/min refills 2 tokens in 2s
	assert.True(t, l.allow("1.2.3.4"))
}

func TestTokenBucket_IsolatesClients(t *testing.T) {
	l := NewSimpleTokenBucket(1, 60)
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("1.1.1.1"))
	assert.False(t, l.allow("1.1.1.1"))
	assert.True(t, l.allow("2.2.2.2"))
}
