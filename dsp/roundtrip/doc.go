// Package roundtrip adapts a host-driven stereo stream through a
// fixed-rate, fixed-frame lossy codec round trip.
//
// The host delivers audio in arbitrarily sized blocks at an arbitrary
// sample rate; the codec consumes exact 20 ms frames at 48 kHz. Processor
// bridges the two with streaming rate converters and FIFO queues, applies
// parameter automation at the correct sub-block positions, skips codec
// work across silence without breaking latency accounting, and reports the
// resulting fixed delay for host compensation.
package roundtrip
