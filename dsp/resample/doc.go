// Package resample provides streaming sample-rate conversion.
//
// Resampler is a rational polyphase FIR converter for a single channel.
// Bridge pairs two converters for interleaved stereo and adds the
// bookkeeping a fixed-rate codec pipeline needs: push/pull streaming,
// reset, and an empirically measured priming latency.
package resample
