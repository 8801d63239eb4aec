package store

// DefaultChunkSize bounds how many rows a single upsert statement carries.
const DefaultChunkSize = 1000

// Chunks partitions items into ordered chunks of at most size elements, the
// last possibly smaller. Chunks share backing storage with items. A size
// below 1 falls back to DefaultChunkSize.
func Chunks[T any](items []T, size int) [][]T {
	if size < 1 {
		size = DefaultChunkSize
	}
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
