// Package analysis provides post-processing of node logs.
//
//   - [Summarize]: min, max, mean, RMS and final value of a series
//   - [SettlingTime]: time after which a series stays near its final value
//   - [NewSpectrum]: one-sided magnitude spectrum via [FFT]
//   - [NewPhasePortrait]: two series plotted against each other
//   - [Crossings] and [Period]: threshold crossings of an oscillation
//
// # Oscillation
//
// Pressure waves in a transmission line ring at a frequency set by the wave
// travel time:
//
//	spec := analysis.NewSpectrum(log.Series("Pressure"), dt)
//	f := spec.Dominant()
package analysis
