// Package buffer provides FIFO sample queues for streaming DSP pipelines.
//
// A Queue holds interleaved stereo samples between processing stages whose
// block sizes do not line up, such as a host callback feeding a fixed-frame
// codec. Pops reuse the ring storage, so steady-state operation does not
// allocate.
package buffer
