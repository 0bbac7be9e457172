package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPointValidation(t *testing.T) {
	_, err := NewPoint(91, 0)
	require.Error(t, err)

	_, err = NewPoint(0, 181)
	require.Error(t, err)

	p, err := NewPoint(48.85299, 2.36885)
	require.NoError(t, err)
	assert.Len(t, p.Geohash(), 12)
}

func TestGeohashEqualityWithinPrecision(t *testing.T) {
	a, _ := NewPoint(48.85299, 2.36885)
	// ~1e-7 degree shift is well under the ~37mm/12-char geohash cell.
	b, _ := NewPoint(48.85299, 2.368850001)
	assert.True(t, a.Equal(b))
}

func TestDistanceConversions(t *testing.T) {
	km := NewDistance(87, KM)
	mi := km.ToMI()
	assert.InDelta(t, 54.06, mi.Float64(), 0.01)

	back := mi.ToKM()
	assert.InDelta(t, 87, back.Float64(), 0.001)
}

func TestDistanceCompare(t *testing.T) {
	a := NewDistance(1, KM)
	b := NewDistance(0.8, MI) // 0.8 mi ≈ 1.2875 km
	assert.Equal(t, -1, a.Compare(b))
	assert.True(t, a.LessEqual(b))
}

func TestHaversineKnownCities(t *testing.T) {
	london, _ := NewPoint(51.5074, -0.1278)
	oxford, _ := NewPoint(51.8773, -1.2475878)

	d := Haversine(london, oxford)
	assert.InDelta(t, 87.4, d.Float64(), 0.5)
}
