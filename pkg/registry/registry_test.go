package registry

import (
	"testing"

	"github.com/cuemby/strata/pkg/poison"
	"github.com/stretchr/testify/assert"
)

func TestRegisterListRelease(t *testing.T) {
	r := New()
	g1 := r.Register(poison.New(), 100.0)
	g2 := r.Register(poison.New(), 101.0)
	assert.NotEqual(t, g1.ID(), g2.ID())

	entries := r.List()
	assert.Len(t, entries, 2)

	g1.Release()
	entries = r.List()
	assert.Len(t, entries, 1)
	assert.Equal(t, g2.ID(), entries[0].ID)

	// Idempotent release.
	g1.Release()
	assert.Len(t, r.List(), 1)
}

func TestKillTripsPoisonAndReportsStatus(t *testing.T) {
	r := New()
	p := poison.New()
	g := r.Register(p, 0)

	assert.Equal(t, Killing, r.Kill(g.ID()))
	assert.Error(t, p.Check())

	assert.Equal(t, NotFound, r.Kill(g.ID()+999))
}

func TestReleaseTripsPoisonDefensively(t *testing.T) {
	r := New()
	p := poison.New()
	g := r.Register(p, 0)

	g.Release()
	assert.True(t, p.IsSet())
}
