// Package protocol owns the SPI-to-Wishbone wire contract.
//
// Ownership boundary:
// - address mode (word width, extended address, burst capability)
// - frame encoding into the SPI byte stream
// - response decoding back into bus words
//
// Every multi-byte field goes out most significant byte first:
//
//	simple:          [W a6..a0]
//	simple, burst:   [W B a5..a0]
//	extended:        [W a14..a8][a7..a0]
//	extended, burst: [W B a13..a8][a7..a0]
//
// followed by one byte (8-bit words) or two bytes (16-bit words) per value.
// W is the write flag and B the burst flag; both live in the first address
// byte.
package protocol
