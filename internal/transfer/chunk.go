package transfer

// Chunk sizes used in practice: the relay accepts requests well under the
// serverless body limit, resumable sessions want small multiples of 256 KiB.
const (
	RelayChunkSize     int64 = 4 * 1024 * 1024
	ResumableChunkSize int64 = 256 * 1024
)

// Range is one contiguous byte range [Start, End) of a file.
type Range struct {
	Start int64
	End   int64
}

func (r Range) Len() int64 {
	return r.End - r.Start
}

// Split partitions a file of the given size into ordered, gapless,
// non-overlapping ranges of at most chunkSize bytes. It is a pure function of
// (size, chunkSize); a retried chunk must byte-match the original range.
func Split(size, chunkSize int64) []Range {
	if size <= 0 || chunkSize <= 0 {
		return nil
	}
	ranges := make([]Range, 0, TotalChunks(size, chunkSize))
	for start := int64(0); start < size; start += chunkSize {
		end := start + chunkSize
		if end > size {
			end = size
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges
}

// TotalChunks is ceil(size/chunkSize).
func TotalChunks(size, chunkSize int64) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize)
}
