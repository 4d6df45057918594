package types

import "encoding/json"

// FromJSON converts a decoded JSON value (as produced by encoding/json's
// map[string]interface{}/[]interface{} unmarshaling) into a DataValue. It is
// used both for run_script params and for import payloads.
func FromJSON(v interface{}) DataValue {
	switch x := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case float64:
		if x == float64(int64(x)) {
			return Int(int64(x))
		}
		return Float(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i)
		}
		f, _ := x.Float64()
		return Float(f)
	case string:
		return Str(x)
	case []byte:
		return Bytes(x)
	case []interface{}:
		out := make([]DataValue, len(x))
		for i, e := range x {
			out[i] = FromJSON(e)
		}
		return List(out...)
	case map[string]interface{}:
		out := make(map[string]DataValue, len(x))
		for k, e := range x {
			out[k] = FromJSON(e)
		}
		return Map(out)
	default:
		return Null()
	}
}

// ToJSON converts a DataValue back into a plain Go value suitable for
// json.Marshal.
func ToJSON(v DataValue) interface{} {
	switch v.Kind {
	case KindNull, KindBot:
		return nil
	case KindBool:
		return v.B
	case KindInt:
		return v.I
	case KindFloat:
		return v.F
	case KindString:
		return v.S
	case KindBytes:
		return v.Byt
	case KindList:
		out := make([]interface{}, len(v.List))
		for i, e := range v.List {
			out[i] = ToJSON(e)
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.Map))
		for k, e := range v.Map {
			out[k] = ToJSON(e)
		}
		return out
	default:
		return nil
	}
}

// TupleToJSON projects a tuple into a JSON-ready row.
func TupleToJSON(t Tuple) []interface{} {
	out := make([]interface{}, len(t))
	for i, v := range t {
		out[i] = ToJSON(v)
	}
	return out
}
