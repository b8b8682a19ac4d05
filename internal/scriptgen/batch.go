// SPDX-License-Identifier: MPL-2.0

package scriptgen

// Batches partitions inputs into consecutive groups of at most size
// elements, preserving order. N inputs yield ceil(N/size) batches; zero
// inputs yield none. size must be positive.
func Batches[T any](inputs []T, size int) [][]T {
	if size <= 0 || len(inputs) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(inputs)+size-1)/size)
	for start := 0; start < len(inputs); start += size {
		end := min(start+size, len(inputs))
		out = append(out, inputs[start:end:end])
	}
	return out
}
