// Package protocol implements the control-message wire format spoken
// on the daemon socket.
//
// Every message, in both directions, is a 4-byte little-endian length
// prefix followed by that many bytes of CBOR.  Payloads are not
// self-describing: the reader decodes into whatever message the
// protocol state expects at that point.
//
//	client                         daemon
//	  | ConnectHeader{attach,name}   |
//	  |----------------------------->|
//	  |        AttachReply{status}   |
//	  |<-----------------------------|
//	  |   [Chunk{data}] if reply.Motd|
//	  |<-----------------------------|
//	  |   raw shell bytes, both ways |
//	  |<============================>|
//
// A List header is answered with a single ListReply and the daemon
// closes the connection.
package protocol
