package partitioner

// HashFn hashes an item for partition assignment.
type HashFn[T any] func(T) uint64

// Partitioner assigns items to a fixed number of partitions by hash, so that
// items with equal hashes always land in the same partition.
type Partitioner[T any] struct {
	// Number of partitions
	partitions int
	// Hashing function
	hashFn HashFn[T]
	// Buffer size of each partition's queue
	bufferSize int
}

type PartitionerOption[T any] func(*Partitioner[T])

// WithBufferSize sets the queue size callers should use per partition.
func WithBufferSize[T any](size int) PartitionerOption[T] {
	return func(p *Partitioner[T]) {
		if size >= 0 {
			p.bufferSize = size
		}
	}
}

// NewPartitioner creates a Partitioner. partitions below one are raised to one.
func NewPartitioner[T any](partitions int, hashFn HashFn[T], opts ...PartitionerOption[T]) *Partitioner[T] {
	if partitions < 1 {
		partitions = 1
	}
	p := &Partitioner[T]{
		partitions: partitions,
		hashFn:     hashFn,
		bufferSize: 100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Partition returns the partition index of item.
func (p *Partitioner[T]) Partition(item T) int {
	if p.partitions == 1 {
		return 0
	}
	return int(p.hashFn(item) % uint64(p.partitions))
}

// Partitions returns the number of partitions.
func (p *Partitioner[T]) Partitions() int {
	return p.partitions
}

// BufferSize returns the configured per-partition queue size.
func (p *Partitioner[T]) BufferSize() int {
	return p.bufferSize
}
