// Package sim is a behavioral stand-in for the HDL simulation of the
// SPI-to-Wishbone bridge.
//
// Ownership boundary:
// - Bridge: SPI slave decoding frames into Wishbone accesses on a register
//   file, usable as a session transport
// - bus clock: every access is a strobe cycle, an acknowledge cycle and an
//   idle cycle, each published as a Signals sample
// - Monitor: passive observer turning strobe+ack samples into log entries
// - Harness: runs the monitor next to the bridge and tears both down
//
// Only bus accesses, Delay and Settle advance the bus clock. Byte exchanges
// themselves are instantaneous.
package sim
