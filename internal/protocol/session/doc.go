// Package session drives frames across an SPI byte transport.
//
// Ownership boundary:
// - chip-select framing of one frame
// - byte-at-a-time full-duplex exchange in encode order
// - frame spacing between the address and data phases
// - reassembly of the response into bus words
//
// A session never retries: link failures surface as *TransportError and the
// caller decides whether the scenario is lost.
package session
