package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandEdgesAreLogSpaced(t *testing.T) {
	edges := BandEdges(12, 512)

	require.Len(t, edges, 13)
	assert.Equal(t, []int{1, 2, 3, 5, 8, 13, 23, 38, 64, 108, 181, 304, 512}, edges)
}

func TestBandEdgesDegenerateBandsAreWidened(t *testing.T) {
	// 16-sample blocks give only 8 positive bins, so several edges collide
	edges := BandEdges(12, 8)
	assert.Equal(t, 1, edges[0])
	assert.Equal(t, 8, edges[12])

	s := NewSpectrumAnalyzer(12, 1)
	tone := make([]int16, 16)
	for i := range tone {
		tone[i] = int16(16000 * math.Sin(2*math.Pi*float64(i)/4))
	}
	bands := s.Bands(tone)
	require.Len(t, bands, 12)

	// every band reads at least one bin, so none is left unset by a zero width
	nonZero := 0
	for _, v := range bands {
		if v > 0 {
			nonZero++
		}
	}
	assert.Greater(t, nonZero, 0)
}

func TestSpectrumPeaksInToneBand(t *testing.T) {
	const rate = 16000
	samples := make([]int16, 1024)
	for i := range samples {
		// 1kHz lands exactly on bin 64, the first bin of band 8
		samples[i] = int16(0.5 * 32767 * math.Sin(2*math.Pi*1000*float64(i)/rate))
	}

	s := NewSpectrumAnalyzer(12, 4)
	bands := s.Bands(samples)
	require.Len(t, bands, 12)

	peak := 0
	for i, v := range bands {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
		if v > bands[peak] {
			peak = i
		}
	}
	assert.Equal(t, 8, peak)
}

func TestSpectrumSilenceIsZero(t *testing.T) {
	s := NewSpectrumAnalyzer(12, 4)
	for _, v := range s.Bands(make([]int16, 1024)) {
		assert.Zero(t, v)
	}
}

func TestSpectrumClampsLoudInput(t *testing.T) {
	samples := make([]int16, 256)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = math.MaxInt16
		} else {
			samples[i] = math.MinInt16
		}
	}

	s := NewSpectrumAnalyzer(12, 100)
	for _, v := range s.Bands(samples) {
		assert.LessOrEqual(t, v, 1.0)
	}
}
