package audio

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// DefaultBands is the number of visualizer bands
const DefaultBands = 12

// SpectrumAnalyzer turns a block of samples into logarithmically spaced
// magnitude bands in [0, 1].
type SpectrumAnalyzer struct {
	bands int
	gain  float64

	// rebuilt whenever the block length changes
	size   int
	fft    *fourier.FFT
	edges  []int
	input  []float64
	coeffs []complex128
}

// NewSpectrumAnalyzer creates an analyzer producing the given number of bands.
// gain scales the normalized magnitudes before clamping to 1.
func NewSpectrumAnalyzer(bands int, gain float64) *SpectrumAnalyzer {
	if bands <= 0 {
		bands = DefaultBands
	}
	if gain <= 0 {
		gain = 1
	}
	return &SpectrumAnalyzer{bands: bands, gain: gain}
}

// BandEdges returns bands+1 bin indices, logarithmically spaced from 1 to maxBin:
// edges[i] = round(10^(i/bands * log10(maxBin)))
func BandEdges(bands, maxBin int) []int {
	edges := make([]int, bands+1)
	if maxBin < 1 {
		return edges
	}
	logMax := math.Log10(float64(maxBin))
	for i := range edges {
		edges[i] = int(math.Round(math.Pow(10, float64(i)/float64(bands)*logMax)))
	}
	return edges
}

func (s *SpectrumAnalyzer) resize(n int) {
	s.size = n
	s.fft = fourier.NewFFT(n)
	s.edges = BandEdges(s.bands, n/2)
	s.input = make([]float64, n)
	s.coeffs = make([]complex128, n/2+1)
}

// Bands applies a Hann window, takes the FFT and averages the magnitude of
// the positive-frequency bins inside each band. Zero-width bands are
// widened to one bin.
func (s *SpectrumAnalyzer) Bands(samples []int16) []float64 {
	out := make([]float64, s.bands)
	n := len(samples)
	if n < 2 {
		return out
	}
	if n != s.size {
		s.resize(n)
	}

	for i, v := range samples {
		s.input[i] = float64(v) / 32768.0
	}
	window.Hann(s.input)
	s.coeffs = s.fft.Coefficients(s.coeffs, s.input)

	maxBin := n / 2
	// A full-scale sine under a Hann window peaks at n/4
	norm := float64(n) / 4

	for b := 0; b < s.bands; b++ {
		lo := s.edges[b]
		hi := s.edges[b+1]
		if hi <= lo {
			hi = lo + 1
		}
		if hi > maxBin+1 {
			hi = maxBin + 1
		}
		if lo >= hi {
			continue
		}

		var sum float64
		for k := lo; k < hi; k++ {
			sum += cmplx.Abs(s.coeffs[k])
		}
		v := sum / float64(hi-lo) / norm * s.gain
		out[b] = math.Min(v, 1)
	}
	return out
}
