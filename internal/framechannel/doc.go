// Package framechannel implements a single-slot frame mailbox in shared memory.
//
// One producer process creates a named region and keeps overwriting the one frame
// it holds. Any number of consumer processes attach to the same name, block until
// a frame is flagged ready, copy it out and clear the flag. There is no queue: a
// consumer that reads slower than the producer writes only ever sees the newest frame.
//
// # Layout
//
// The region is a fixed byte arena so that independently built processes agree on it:
//
//	offset  size  field
//	0       4     lock word (futex mutex: 0 free, 1 held, 2 contended)
//	4       4     condition word (futex sequence)
//	8       4     frame-ready flag
//	12      4     width
//	16      4     height
//	20      4     channels (always 3)
//	24      4     magic, written last by Create
//	32      8     publish sequence
//	64      ...   payload, MaxWidth*MaxHeight*MaxChannels bytes
//
// The lock and the condition are plain integers driven by futex(2) without the
// private flag, so they stay valid wherever each process maps the region.
//
// # Usage
//
// Producer:
//
//	ch, err := framechannel.Create(framechannel.DefaultName, 640, 480)
//	defer framechannel.Destroy(framechannel.DefaultName)
//	defer ch.Close()
//	for {
//		overwrote, err := ch.Publish(frame)
//	}
//
// Consumer:
//
//	ch, err := framechannel.Open(framechannel.DefaultName) // ErrNotExist until created
//	buf, hdr, err := ch.ReadInto(ctx, buf)
package framechannel
