package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenPolicy(t *testing.T) {
	t.Parallel()

	p := NewOpen()
	assert.Equal(t, 20, p.PageSize(0))
	assert.Equal(t, 10, p.PageSize(10))
	assert.Equal(t, 50, p.PageSize(500))
	assert.Equal(t, 30, p.Candidates(10))
}

func TestPremiumPolicy(t *testing.T) {
	t.Parallel()

	p := NewPremium()
	assert.Equal(t, 100, p.PageSize(500))
	assert.Equal(t, 75, p.PageSize(75))
	assert.Equal(t, 50, p.Candidates(10))
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	assert.Equal(t, []string{Open, Premium}, r.Names())

	p, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, Open, p.Name())

	p, err = r.Resolve(Premium)
	require.NoError(t, err)
	assert.Equal(t, Premium, p.Name())

	_, err = r.Resolve("enterprise")
	assert.ErrorContains(t, err, "enterprise")
}

func TestRegistryZeroValue(t *testing.T) {
	t.Parallel()

	var r Registry
	r.Register(NewPremium())
	_, err := r.Resolve(Premium)
	assert.NoError(t, err)
}
