package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "campus:events:detail:abc", Key("events", "detail", "abc"))
	assert.Equal(t, "campus:", Key())
}
