package journal

import (
	"fmt"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/watch"
)

// marshalEvent converts a recursive event to canonical JSON TEXT.
func marshalEvent(evt watch.RecursiveEvent) (string, error) {
	data, err := ir.MarshalCanonical(evt.ToValue())
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	return string(data), nil
}

// unmarshalEvent parses canonical JSON TEXT back into a recursive event.
func unmarshalEvent(data string) (watch.RecursiveEvent, error) {
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return watch.RecursiveEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	evt, err := watch.RecursiveEventFromValue(v)
	if err != nil {
		return watch.RecursiveEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return evt, nil
}

// marshalState converts a state value to canonical JSON TEXT.
func marshalState(v ir.Value) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return string(data), nil
}

// eventID is the content address of an event at a stream position.
func eventID(stream string, seq int64, payload string) string {
	return ir.DomainHash(ir.DomainEvent, fmt.Appendf(nil, "%s\x00%d\x00%s", stream, seq, payload))
}
