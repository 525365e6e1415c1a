package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

// VisSpec is a visualization specification in canonical JSON form.
//
// The properties the engine cares about are "encoding" (a map from
// channel to {field,value,type,scale,...}), the view properties
// ("width", "height", "depth", "position", "rotation"), and "data",
// which is carried along but never diffed.
type VisSpec map[string]interface{}

// ParseVisSpec parses JSON into a VisSpec.
func ParseVisSpec(js []byte) (VisSpec, error) {
	var s VisSpec
	if err := json.Unmarshal(js, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Copy makes a deep copy.  The "data" block is shared, not copied.
func (s VisSpec) Copy() VisSpec {
	if s == nil {
		return nil
	}
	acc := make(VisSpec, len(s))
	for k, v := range s {
		if k == "data" {
			acc[k] = v
			continue
		}
		acc[k] = Copy(v)
	}
	return acc
}

// WithoutData returns a deep copy without the "data" block along
// with that block.
func (s VisSpec) WithoutData() (VisSpec, interface{}) {
	data, have := s["data"]
	acc := s.Copy()
	delete(acc, "data")
	if !have {
		return acc, nil
	}
	return acc, data
}

// Encoding returns the encoding map, which might be nil.
func (s VisSpec) Encoding() map[string]interface{} {
	m, _ := s["encoding"].(map[string]interface{})
	return m
}

// Channel finds an encoding channel by case-insensitive name and
// returns the key actually used.
func (s VisSpec) Channel(name string) (string, interface{}, bool) {
	return FindKey(s.Encoding(), name)
}

// Get looks up a dotted path like "encoding.x.field" or
// "position[1]".
func (s VisSpec) Get(path string) (interface{}, bool) {
	return GetPath(map[string]interface{}(s), SplitPath(path))
}

func (s VisSpec) String() string {
	js, err := json.Marshal(map[string]interface{}(s))
	if err != nil {
		return err.Error()
	}
	return string(js)
}

// Copy makes a deep copy of a canonical JSON value.
func Copy(x interface{}) interface{} {
	switch vv := x.(type) {
	case map[string]interface{}:
		acc := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			acc[k] = Copy(v)
		}
		return acc
	case VisSpec:
		return vv.Copy()
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, v := range vv {
			acc[i] = Copy(v)
		}
		return acc
	default:
		return x
	}
}

// FindKey looks up a key case-insensitively, preferring an exact
// match.
func FindKey(m map[string]interface{}, name string) (string, interface{}, bool) {
	if m == nil {
		return "", nil, false
	}
	if v, have := m[name]; have {
		return name, v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return k, v, true
		}
	}
	return "", nil, false
}

// SplitPath turns "a.b[2].c" into ["a","b","2","c"].
func SplitPath(path string) []string {
	path = strings.ReplaceAll(path, "[", ".")
	path = strings.ReplaceAll(path, "]", "")
	parts := strings.Split(path, ".")
	acc := parts[:0]
	for _, p := range parts {
		if p != "" {
			acc = append(acc, p)
		}
	}
	return acc
}

// GetPath walks maps and arrays.
func GetPath(x interface{}, path []string) (interface{}, bool) {
	for _, p := range path {
		switch vv := x.(type) {
		case map[string]interface{}:
			v, have := vv[p]
			if !have {
				return nil, false
			}
			x = v
		case VisSpec:
			v, have := vv[p]
			if !have {
				return nil, false
			}
			x = v
		case []interface{}:
			i, err := strconv.Atoi(p)
			if err != nil || i < 0 || len(vv) <= i {
				return nil, false
			}
			x = vv[i]
		default:
			return nil, false
		}
	}
	return x, true
}

// SetPath sets a value at a path, creating intermediate maps as
// needed.  Array elements can be replaced but arrays are never
// grown.
func SetPath(m map[string]interface{}, path []string, v interface{}) bool {
	if len(path) == 0 {
		return false
	}
	var x interface{} = m
	for i, p := range path {
		last := i == len(path)-1
		switch vv := x.(type) {
		case map[string]interface{}:
			if last {
				vv[p] = v
				return true
			}
			next, have := vv[p]
			if !have || next == nil {
				next = map[string]interface{}{}
				vv[p] = next
			}
			x = next
		case []interface{}:
			j, err := strconv.Atoi(p)
			if err != nil || j < 0 || len(vv) <= j {
				return false
			}
			if last {
				vv[j] = v
				return true
			}
			x = vv[j]
		default:
			return false
		}
	}
	return false
}
