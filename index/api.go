package index

// GetIterator is an alias for Begin.
func (b *BPlusTree[K, V]) GetIterator() (*IndexIterator[K, V], error) {
	return b.Begin()
}

// GetKeyRange returns every value whose key falls in [start, stop],
// walking leaves left to right starting from the first leaf that could
// contain start.
func (b *BPlusTree[K, V]) GetKeyRange(start, stop K) ([]V, error) {
	it, err := b.BeginAt(start)
	if err != nil {
		return nil, err
	}

	res := []V{}
	for !it.IsEnd() {
		key, val, err := it.Next()
		if err != nil {
			return res, err
		}
		if key > stop {
			break
		}
		res = append(res, val)
	}

	return res, nil
}

// BatchInsert inserts every item, stopping at the first error. It
// makes no attempt to roll back partial inserts from a failed batch.
func (b *BPlusTree[K, V]) BatchInsert(items map[K]V) error {
	for k, v := range items {
		if _, err := b.Insert(k, v); err != nil {
			return err
		}
	}

	return nil
}
