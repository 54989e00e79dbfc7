// Package codec runs fixed-length audio frames through a lossy codec
// round trip: encode, simulated transmission with optional packet loss,
// decode. The codec itself sits behind the Engine interface; OpusEngine
// provides the default implementation on a pure-Go Opus codec.
package codec
