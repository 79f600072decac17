package functional

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, Map([]string{"a", "b"}, strings.ToUpper))
	assert.Empty(t, Map([]string{}, strings.ToUpper))
}

func TestFilter(t *testing.T) {
	got := Filter([]string{"orders", "", "users"}, func(s string) bool { return s != "" })
	assert.Equal(t, []string{"orders", "users"}, got)
}

func TestDistinct(t *testing.T) {
	assert.Equal(t, []string{"orders", "users"}, Distinct([]string{"orders", "users", "orders"}))
}
