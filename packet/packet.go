// Package packet implements the Minecraft: Java Edition wire format: VarInt
// and VarLong, fixed-width big endian integers, length-prefixed UTF-8
// strings, and records encoded field by field in declaration order.
//
// Packet shapes are declared as structs marked with an @gen comment; their
// MarshalWire/UnmarshalWire methods and per-phase registries are generated.
//
//go:generate go run ../codegen/gen_packet_codec.go -- .
package packet
