package event

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// DomainEvent separates event hashes from any other content hash.
const DomainEvent = "idarling/event/v1"

// typeKey carries the kind in the encoded object.
const typeKey = "type"

// Encode returns the canonical JSON encoding of e. Payload strings are kept
// byte for byte; an event carrying invalid UTF-8 cannot be encoded.
func Encode(e Event) ([]byte, error) {
	data, err := MarshalCanonical(object(e))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind(), err)
	}
	return data, nil
}

func object(e Event) map[string]any {
	fields := e.Fields()
	obj := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		obj[k] = v
	}
	obj[typeKey] = string(e.Kind())
	return obj
}

// ID returns the content-addressed identity of e.
// Format: hex(SHA256(domain + 0x00 + canonical)), where the canonical form
// has its strings NFC-normalised so equivalent spellings share an ID.
func ID(e Event) (string, error) {
	data, err := MarshalCanonical(normalizeNFC(object(e)))
	if err != nil {
		return "", fmt.Errorf("id %s: %w", e.Kind(), err)
	}
	h := sha256.New()
	h.Write([]byte(DomainEvent))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Decode parses an encoded event.
func Decode(data []byte) (Event, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	f := fields(obj)
	kind := Kind(f.str(typeKey))

	var e Event
	switch kind {
	case KindMakeCode:
		e = MakeCode{EA: f.u64("ea")}
	case KindMakeData:
		e = MakeData{EA: f.u64("ea"), Flags: f.u64("flags"), TID: f.u64("tid"), Size: f.u64("size")}
	case KindRenamed:
		e = Renamed{EA: f.u64("ea"), NewName: f.str("new_name"), Local: f.boolean("local")}
	case KindFuncAdded:
		e = FuncAdded{StartEA: f.u64("start_ea"), EndEA: f.u64("end_ea")}
	case KindDeletingFunc:
		e = DeletingFunc{StartEA: f.u64("start_ea")}
	case KindSetFuncStart:
		e = SetFuncStart{StartEA: f.u64("start_ea"), NewStart: f.u64("new_start")}
	case KindSetFuncEnd:
		e = SetFuncEnd{StartEA: f.u64("start_ea"), NewEnd: f.u64("new_end")}
	case KindCmtChanged:
		e = CmtChanged{EA: f.u64("ea"), Repeatable: f.boolean("repeatable"), Comment: f.str("comment")}
	case KindUndefined:
		e = Undefined{EA: f.u64("ea")}
	case KindLocationChanged:
		e = LocationChanged{EA: f.u64("ea")}
	default:
		return nil, fmt.Errorf("decode event: unknown type %q", kind)
	}

	if f.err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, f.err)
	}
	return e, nil
}

// fieldReader reads typed values out of a decoded object, keeping the first error.
type fieldReader struct {
	obj map[string]any
	err error
}

func fields(obj map[string]any) *fieldReader {
	return &fieldReader{obj: obj}
}

func (f *fieldReader) fail(key, want string) {
	if f.err == nil {
		f.err = fmt.Errorf("field %q: expected %s, got %T", key, want, f.obj[key])
	}
}

func (f *fieldReader) str(key string) string {
	v, ok := f.obj[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		f.fail(key, "string")
	}
	return s
}

func (f *fieldReader) boolean(key string) bool {
	v, ok := f.obj[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		f.fail(key, "bool")
	}
	return b
}

func (f *fieldReader) u64(key string) uint64 {
	v, ok := f.obj[key]
	if !ok {
		return 0
	}
	num, ok := v.(json.Number)
	if !ok {
		f.fail(key, "number")
		return 0
	}
	n, err := strconv.ParseUint(num.String(), 10, 64)
	if err != nil {
		f.fail(key, "unsigned integer")
		return 0
	}
	return n
}
