// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cbor

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Value is a helpful wrapper for parsing arbitrary CBOR data which may contain types
// that cannot be easily represented in Go (such as maps with bytestring keys). It is
// used to present payloads that are otherwise opaque, like transaction rejection
// reasons and raw query results
type Value struct {
	Value any
	// We store this as a string so that the type is still hashable for use as map keys
	cborData string
}

func (v *Value) UnmarshalCBOR(data []byte) (err error) {
	if len(data) == 0 {
		return errors.New("cannot decode empty value")
	}
	// Save the original CBOR
	v.cborData = string(data)
	switch data[0] & CborTypeMask {
	case CborTypeMap:
		// There are certain types that cannot be used as map keys in Go but are valid in CBOR. Trying to
		// parse CBOR containing a map with keys of one of those types will cause a panic. We setup this
		// deferred function to recover from a possible panic and return an error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("decode failure, probably due to type unsupported by Go: %v", r)
			}
		}()
		tmpValue := map[Value]Value{}
		if _, err := Decode(data, &tmpValue); err != nil {
			return err
		}
		// Extract actual value from each child value
		newValue := make(map[any]any, len(tmpValue))
		for key, value := range tmpValue {
			newValue[key.Value] = value.Value
		}
		v.Value = newValue
	case CborTypeArray:
		tmpValue := []Value{}
		if _, err := Decode(data, &tmpValue); err != nil {
			return err
		}
		// Extract actual value from each child value
		newValue := make([]any, 0, len(tmpValue))
		for _, value := range tmpValue {
			newValue = append(newValue, value.Value)
		}
		v.Value = newValue
	case CborTypeTextString:
		var tmpValue string
		if _, err := Decode(data, &tmpValue); err != nil {
			return err
		}
		v.Value = tmpValue
	case CborTypeByteString:
		// Use our custom type which stores the bytestring in a way that allows it to be used as a map key
		var tmpValue ByteString
		if _, err := Decode(data, &tmpValue); err != nil {
			return err
		}
		v.Value = tmpValue
	case CborTypeTag:
		// Parse as a raw tag to get number and nested CBOR data
		tmpTag := RawTag{}
		if _, err := Decode(data, &tmpTag); err != nil {
			return err
		}
		// Parse the tag value via our custom Value object to handle problem types
		tmpValue := Value{}
		if _, err := Decode(tmpTag.Content, &tmpValue); err != nil {
			return err
		}
		v.Value = Tag{
			Number:  tmpTag.Number,
			Content: tmpValue.Value,
		}
	default:
		var tmpValue any
		if _, err := Decode(data, &tmpValue); err != nil {
			return err
		}
		v.Value = tmpValue
	}
	return nil
}

// Cbor returns the original CBOR
func (v Value) Cbor() []byte {
	return []byte(v.cborData)
}

// MarshalJSON renders the value as JSON. Bytestrings become hex strings, map keys
// are stringified and tags become {"tag": N, "value": ...}
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonValue(v.Value))
}

func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", v.Value)
	}
	return string(data)
}

func jsonValue(v any) any {
	switch t := v.(type) {
	case ByteString:
		return t.String()
	case []any:
		ret := make([]any, 0, len(t))
		for _, item := range t {
			ret = append(ret, jsonValue(item))
		}
		return ret
	case map[any]any:
		ret := make(map[string]any, len(t))
		for key, val := range t {
			ret[jsonKey(key)] = jsonValue(val)
		}
		return ret
	case Tag:
		return map[string]any{
			"tag":   t.Number,
			"value": jsonValue(t.Content),
		}
	default:
		return v
	}
}

func jsonKey(k any) string {
	switch t := k.(type) {
	case string:
		return t
	case ByteString:
		return t.String()
	default:
		return fmt.Sprintf("%v", jsonValue(k))
	}
}
