package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// WriteBuffers queues the writes. Writes with no data, or whose provider holds no buffer at the
// binding, are skipped.
//
// Parameters:
//   - queue: the device queue
//   - writes: the writes in submission order
//
// Returns:
//   - int: the number of writes queued
func WriteBuffers(queue *wgpu.Queue, writes []BufferWrite) int {
	n := 0
	for _, w := range writes {
		if len(w.Data) == 0 || w.Provider == nil {
			continue
		}
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		queue.WriteBuffer(buf, w.Offset, w.Data)
		n++
	}
	return n
}
