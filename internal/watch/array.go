package watch

import "github.com/roach88/objwatch/internal/ir"

// Array-mutation primitives. Each validates its bounds against the current
// length and reports false, leaving the array untouched, when they do not
// hold. They never notify; the watcher and the pass-through handle both build
// on them.

func validSplice(n, index, deleteCount int) bool {
	return index >= 0 && index <= n && deleteCount >= 0 && index+deleteCount <= n
}

func validRemoveAt(n, index, count int) bool {
	return index >= 0 && count >= 1 && index+count <= n
}

func validMove(n, fromIndex, toIndex, count int) bool {
	return fromIndex >= 0 && toIndex >= 0 && count >= 1 &&
		fromIndex+count <= n && toIndex <= n-count
}

// arySplice removes deleteCount items at index and inserts values.
func arySplice(arr *ir.Array, index, deleteCount int, values []ir.Value) bool {
	if arr == nil || !validSplice(arr.Len(), index, deleteCount) {
		return false
	}
	arr.Splice(index, deleteCount, values...)
	return true
}

// aryRemoveAt removes count items at index.
func aryRemoveAt(arr *ir.Array, index, count int) bool {
	if arr == nil || !validRemoveAt(arr.Len(), index, count) {
		return false
	}
	arr.Splice(index, count)
	return true
}

// aryRemove removes the first item Same as v and returns its index.
func aryRemove(arr *ir.Array, v ir.Value) (int, bool) {
	i := arr.IndexOf(v)
	if i < 0 {
		return -1, false
	}
	arr.Splice(i, 1)
	return i, true
}

// aryMove moves count items from fromIndex so the first lands at toIndex.
func aryMove(arr *ir.Array, fromIndex, toIndex, count int) bool {
	if arr == nil || !validMove(arr.Len(), fromIndex, toIndex, count) {
		return false
	}
	arr.Move(fromIndex, toIndex, count)
	return true
}
