package harness

import (
	"errors"
	"fmt"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/watch"
)

// ErrNotArray is returned for an array op whose target is not an array.
var ErrNotArray = errors.New("target is not an array")

// executeStep applies one mutation through the registry's free functions.
// Ops that report success are checked against step.Noop.
func (h *Harness) executeStep(index int, step Step) error {
	target, err := h.resolveWatchable(step.At)
	if err != nil {
		return err
	}

	value, err := h.stepValue(step.Value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	values, err := h.stepValues(step.Values)
	if err != nil {
		return fmt.Errorf("values: %w", err)
	}

	ok := true
	switch step.Op {
	case OpSet:
		h.reg.SetProp(target, step.Prop, value)
	case OpSetOrMerge:
		h.reg.SetOrMergeProp(target, step.Prop, value)
	case OpToggle:
		h.reg.ToggleProp(target, step.Prop)
	case OpSetOrDelete:
		h.reg.SetPropOrDeleteFalsy(target, step.Prop, value)
	case OpDelete:
		ok = h.reg.DeleteProp(target, step.Prop)
	case OpDeleteAll:
		h.reg.DeleteAllProps(target)
	case OpPush:
		if err := requireArray(target); err != nil {
			return err
		}
		ok = h.reg.AryPush(target, values)
	case OpInsert:
		if err := requireArray(target); err != nil {
			return err
		}
		ok = h.reg.AryInsert(target, step.Index, values)
	case OpSplice:
		if err := requireArray(target); err != nil {
			return err
		}
		deleteCount := 0
		if step.DeleteCount != nil {
			deleteCount = *step.DeleteCount
		}
		ok = h.reg.ArySplice(target, step.Index, deleteCount, values)
	case OpRemove:
		if err := requireArray(target); err != nil {
			return err
		}
		ok = h.reg.AryRemove(target, h.findItem(target.(*ir.Array), value))
	case OpRemoveAt:
		if err := requireArray(target); err != nil {
			return err
		}
		count := step.Count
		if count == 0 {
			count = 1
		}
		ok = h.reg.AryRemoveAt(target, step.Index, count)
	case OpMove:
		if err := requireArray(target); err != nil {
			return err
		}
		count := step.Count
		if count == 0 {
			count = 1
		}
		ok = h.reg.AryMove(target, step.From, step.To, count)
	case OpChange:
		h.reg.TriggerChange(target)
	case OpEvent:
		h.reg.TriggerEvent(target, step.Event, value)
	case OpLoad:
		h.reg.TriggerLoad(target, step.Prop)
	case OpMerge, OpMergeKeep:
		current, isObj := target.(*ir.Object)
		incoming, inObj := value.(*ir.Object)
		if !isObj || !inObj {
			return fmt.Errorf("%s needs an object target and value", step.Op)
		}
		if step.Op == OpMerge {
			err = h.reg.MergeObj(current, incoming)
		} else {
			err = h.reg.MergeKeepObj(current, incoming)
		}
		if err != nil {
			return err
		}
	case OpQueue:
		h.reg.Get(target, true).RequestQueueChanges()
	case OpDequeue:
		if err := h.reg.Get(target, true).RequestDequeueChanges(); err != nil {
			if !watch.IsUnbalancedQueue(err) || !step.Noop {
				return err
			}
			ok = false
		}
	case OpUnlisten:
		h.disposes[step.Listener]()
	case OpUnbind:
		h.bindings[step.Binding].Dispose()
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	if ok == step.Noop {
		if step.Noop {
			h.result.AddError(fmt.Sprintf("steps[%d] (%s): expected a no-op, but it applied", index, step.Op))
		} else {
			h.result.AddError(fmt.Sprintf("steps[%d] (%s): rejected by the target", index, step.Op))
		}
	}
	return nil
}

// findItem returns the array element equal to v, preferring identity so
// aggregates can be removed by value.
func (h *Harness) findItem(arr *ir.Array, v ir.Value) ir.Value {
	for _, item := range arr.Items() {
		if ir.DeepEqual(item, v) {
			return item
		}
	}
	return v
}

func (h *Harness) stepValue(raw any) (ir.Value, error) {
	if raw == nil {
		return ir.Null{}, nil
	}
	return ir.FromAny(raw)
}

func (h *Harness) stepValues(raw []any) ([]ir.Value, error) {
	out := make([]ir.Value, 0, len(raw))
	for i, r := range raw {
		v, err := ir.FromAny(r)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func requireArray(target ir.Watchable) error {
	if _, ok := target.(*ir.Array); !ok {
		return fmt.Errorf("%w (%s)", ErrNotArray, ir.TypeName(target))
	}
	return nil
}
