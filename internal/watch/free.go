package watch

import "github.com/roach88/objwatch/internal/ir"

// Free functions. Each resolves obj's Handle and delegates: watched objects
// notify, unwatched aggregates are mutated silently, nil and scalars are
// ignored.

func (r *Registry) SetProp(obj ir.Value, prop string, v ir.Value, opts ...MutationOption) ir.Value {
	return r.Handle(obj).SetProp(prop, v, opts...)
}

func (r *Registry) SetOrMergeProp(obj ir.Value, prop string, v ir.Value, opts ...MutationOption) ir.Value {
	return r.Handle(obj).SetOrMergeProp(prop, v, opts...)
}

func (r *Registry) ToggleProp(obj ir.Value, prop string, opts ...MutationOption) bool {
	return r.Handle(obj).ToggleProp(prop, opts...)
}

func (r *Registry) SetPropOrDeleteFalsy(obj ir.Value, prop string, v ir.Value, opts ...MutationOption) ir.Value {
	return r.Handle(obj).SetPropOrDeleteFalsy(prop, v, opts...)
}

func (r *Registry) SetPropOrDeleteWhen(obj ir.Value, prop string, v, deleteWhen ir.Value, opts ...MutationOption) ir.Value {
	return r.Handle(obj).SetPropOrDeleteWhen(prop, v, deleteWhen, opts...)
}

func (r *Registry) DeleteProp(obj ir.Value, prop string, opts ...MutationOption) bool {
	return r.Handle(obj).DeleteProp(prop, opts...)
}

func (r *Registry) DeleteAllProps(obj ir.Value, opts ...MutationOption) {
	r.Handle(obj).DeleteAllProps(opts...)
}

func (r *Registry) AryPush(obj ir.Value, values []ir.Value, opts ...MutationOption) bool {
	return r.Handle(obj).AryPush(values, opts...)
}

func (r *Registry) AryInsert(obj ir.Value, index int, values []ir.Value, opts ...MutationOption) bool {
	return r.Handle(obj).AryInsert(index, values, opts...)
}

func (r *Registry) ArySplice(obj ir.Value, index, deleteCount int, values []ir.Value, opts ...MutationOption) bool {
	return r.Handle(obj).ArySplice(index, deleteCount, values, opts...)
}

func (r *Registry) AryRemove(obj ir.Value, v ir.Value, opts ...MutationOption) bool {
	return r.Handle(obj).AryRemove(v, opts...)
}

func (r *Registry) AryRemoveAt(obj ir.Value, index, count int, opts ...MutationOption) bool {
	return r.Handle(obj).AryRemoveAt(index, count, opts...)
}

func (r *Registry) AryMove(obj ir.Value, fromIndex, toIndex, count int, opts ...MutationOption) bool {
	return r.Handle(obj).AryMove(fromIndex, toIndex, count, opts...)
}

func (r *Registry) TriggerChange(obj ir.Value, opts ...MutationOption) {
	r.Handle(obj).TriggerChange(opts...)
}

func (r *Registry) TriggerEvent(obj ir.Value, eventType string, value ir.Value, opts ...MutationOption) {
	r.Handle(obj).TriggerEvent(eventType, value, opts...)
}

func (r *Registry) TriggerLoad(obj ir.Value, prop string, opts ...MutationOption) {
	r.Handle(obj).TriggerLoad(prop, opts...)
}

// Package-level wrappers over Default.

// Watch gets or creates obj's watcher in Default and takes a ref.
func Watch(obj ir.Watchable) *Watcher { return Default.Watch(obj) }

// StopWatching releases a ref taken with Watch.
func StopWatching(obj ir.Watchable) (*Watcher, error) { return Default.StopWatching(obj) }

// GetWatcher looks up obj's watcher in Default.
func GetWatcher(obj ir.Watchable, autoCreate bool) *Watcher { return Default.Get(obj, autoCreate) }

func SetProp(obj ir.Value, prop string, v ir.Value, opts ...MutationOption) ir.Value {
	return Default.SetProp(obj, prop, v, opts...)
}

func SetOrMergeProp(obj ir.Value, prop string, v ir.Value, opts ...MutationOption) ir.Value {
	return Default.SetOrMergeProp(obj, prop, v, opts...)
}

func ToggleProp(obj ir.Value, prop string, opts ...MutationOption) bool {
	return Default.ToggleProp(obj, prop, opts...)
}

func SetPropOrDeleteFalsy(obj ir.Value, prop string, v ir.Value, opts ...MutationOption) ir.Value {
	return Default.SetPropOrDeleteFalsy(obj, prop, v, opts...)
}

func SetPropOrDeleteWhen(obj ir.Value, prop string, v, deleteWhen ir.Value, opts ...MutationOption) ir.Value {
	return Default.SetPropOrDeleteWhen(obj, prop, v, deleteWhen, opts...)
}

func DeleteProp(obj ir.Value, prop string, opts ...MutationOption) bool {
	return Default.DeleteProp(obj, prop, opts...)
}

func DeleteAllProps(obj ir.Value, opts ...MutationOption) {
	Default.DeleteAllProps(obj, opts...)
}

func AryPush(obj ir.Value, values []ir.Value, opts ...MutationOption) bool {
	return Default.AryPush(obj, values, opts...)
}

func AryInsert(obj ir.Value, index int, values []ir.Value, opts ...MutationOption) bool {
	return Default.AryInsert(obj, index, values, opts...)
}

func ArySplice(obj ir.Value, index, deleteCount int, values []ir.Value, opts ...MutationOption) bool {
	return Default.ArySplice(obj, index, deleteCount, values, opts...)
}

func AryRemove(obj ir.Value, v ir.Value, opts ...MutationOption) bool {
	return Default.AryRemove(obj, v, opts...)
}

func AryRemoveAt(obj ir.Value, index, count int, opts ...MutationOption) bool {
	return Default.AryRemoveAt(obj, index, count, opts...)
}

func AryMove(obj ir.Value, fromIndex, toIndex, count int, opts ...MutationOption) bool {
	return Default.AryMove(obj, fromIndex, toIndex, count, opts...)
}

func TriggerChange(obj ir.Value, opts ...MutationOption) {
	Default.TriggerChange(obj, opts...)
}

func TriggerEvent(obj ir.Value, eventType string, value ir.Value, opts ...MutationOption) {
	Default.TriggerEvent(obj, eventType, value, opts...)
}

func TriggerLoad(obj ir.Value, prop string, opts ...MutationOption) {
	Default.TriggerLoad(obj, prop, opts...)
}

func MergeObj(current, value *ir.Object, opts ...MutationOption) error {
	return Default.MergeObj(current, value, opts...)
}

func MergeKeepObj(current, value *ir.Object, opts ...MutationOption) error {
	return Default.MergeKeepObj(current, value, opts...)
}
