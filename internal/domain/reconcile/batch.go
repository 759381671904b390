package reconcile

// DefaultBatchSize is the number of inventory items sent to the vendor in
// one call. Chosen to respect the vendor API's practical per-call limit.
const DefaultBatchSize = 50

// Chunk splits items into contiguous, non-overlapping chunks of at most
// size elements. The final chunk may be shorter. Empty input yields nil.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
