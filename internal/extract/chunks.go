package extract

import "time"

// splitDates partitions a field's resolved dates into numChunks contiguous,
// roughly equal partitions. Chunk size is the floor of len/numChunks; the
// last chunk absorbs the remainder, which skews load slightly but loses no
// dates.
func splitDates(dates []time.Time, numChunks int) [][]time.Time {
	if len(dates) == 0 {
		return nil
	}
	if numChunks < 1 {
		numChunks = 1
	}
	if numChunks > len(dates) {
		numChunks = len(dates)
	}

	chunkSize := len(dates) / numChunks
	chunks := make([][]time.Time, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if i == numChunks-1 {
			end = len(dates)
		}
		chunks = append(chunks, dates[start:end])
	}
	return chunks
}
