// Package spectrum provides the frequency-domain measurements used to
// judge what survives a codec round trip: single-tone power probes for
// tests and a windowed FFT analysis for offline inspection.
package spectrum
