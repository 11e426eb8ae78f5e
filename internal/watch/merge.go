package watch

import (
	"errors"
	"fmt"

	"github.com/roach88/objwatch/internal/ir"
)

// MergeObj deep-merges value into current field by field. Nested object
// pairs merge recursively and keep current's identity; arrays and scalars
// are replaced. Keys of current missing from value are deleted.
//
// Every watched object the walk touches is batched until the walk ends,
// so no listener sees a half-merged tree. Batches close innermost first:
// current's recursive listeners get current's own changes, then those of
// nested objects.
func (r *Registry) MergeObj(current, value *ir.Object, opts ...MutationOption) error {
	return r.mergeBatch(current, value, false, opts)
}

// MergeKeepObj is MergeObj that keeps keys missing from value.
func (r *Registry) MergeKeepObj(current, value *ir.Object, opts ...MutationOption) error {
	return r.mergeBatch(current, value, true, opts)
}

func (r *Registry) mergeBatch(current, value *ir.Object, keep bool, opts []MutationOption) (err error) {
	if current == nil || value == nil {
		return nil
	}
	var batched []*Watcher
	defer func() {
		for i := len(batched) - 1; i >= 0; i-- {
			err = errors.Join(err, batched[i].RequestDequeueChanges())
		}
	}()
	return r.merge(current, value, keep, opts, 0, &batched)
}

func (r *Registry) merge(current, value *ir.Object, keep bool, opts []MutationOption, depth int, batched *[]*Watcher) error {
	if depth > r.maxDepth {
		return fmt.Errorf("merge: %w", ir.ErrTooDeep)
	}
	if w := r.Get(current, false); w != nil {
		w.RequestQueueChanges()
		*batched = append(*batched, w)
	}
	h := r.Handle(current)
	for _, k := range value.SortedKeys() {
		next := value.Get(k)
		cur, _ := current.Lookup(k)
		curObj, curOK := cur.(*ir.Object)
		nextObj, nextOK := next.(*ir.Object)
		if curOK && nextOK && curObj != nil && nextObj != nil && curObj != nextObj {
			if err := r.merge(curObj, nextObj, keep, opts, depth+1, batched); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			continue
		}
		h.SetProp(k, next, opts...)
	}
	if keep {
		return nil
	}
	for _, k := range current.SortedKeys() {
		if !value.Has(k) {
			h.DeleteProp(k, opts...)
		}
	}
	return nil
}
