package core

import (
	"fmt"
	"math"
	"strconv"
)

// Kind says which field of a Value is meaningful.
type Kind int

const (
	Nil Kind = iota
	Bool
	Number
	Vector3
	Quaternion
	String
	ObjectRef
)

var kindNames = []string{"nil", "bool", "number", "vector3", "quaternion", "string", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind" + strconv.Itoa(int(k))
}

// PropertyAccessor exposes an external object's properties by name.
//
// Hosts implement this interface for whatever objects they want
// signals to observe.  The engine never looks inside an object
// except through this interface.
type PropertyAccessor interface {
	ObjectName() string
	Property(name string) (Value, error)
}

// Value is what signals carry.
type Value struct {
	Kind Kind
	B    bool
	N    float64
	V    [4]float64
	S    string
	Obj  PropertyAccessor
}

func BoolValue(b bool) Value      { return Value{Kind: Bool, B: b} }
func NumberValue(n float64) Value { return Value{Kind: Number, N: n} }
func StringValue(s string) Value  { return Value{Kind: String, S: s} }

func Vector3Value(x, y, z float64) Value {
	return Value{Kind: Vector3, V: [4]float64{x, y, z, 0}}
}

func QuaternionValue(x, y, z, w float64) Value {
	return Value{Kind: Quaternion, V: [4]float64{x, y, z, w}}
}

func ObjectValue(o PropertyAccessor) Value {
	if o == nil {
		return Value{}
	}
	return Value{Kind: ObjectRef, Obj: o}
}

// Of converts a Go value (usually canonical JSON) into a Value.
//
// Arrays of three or four numbers become vectors or quaternions, as
// do maps with numeric "x", "y", "z" (and "w") properties.  Anything
// else that isn't a primitive is an UnconvertibleValue.
func Of(x interface{}) (Value, error) {
	switch vv := x.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return vv, nil
	case bool:
		return BoolValue(vv), nil
	case float64:
		return NumberValue(vv), nil
	case float32:
		return NumberValue(float64(vv)), nil
	case int:
		return NumberValue(float64(vv)), nil
	case int64:
		return NumberValue(float64(vv)), nil
	case int32:
		return NumberValue(float64(vv)), nil
	case string:
		return StringValue(vv), nil
	case PropertyAccessor:
		return ObjectValue(vv), nil
	case []float64:
		return vector(vv, x)
	case []interface{}:
		fs := make([]float64, len(vv))
		for i, y := range vv {
			f, ok := number(y)
			if !ok {
				return Value{}, &UnconvertibleValue{X: x}
			}
			fs[i] = f
		}
		return vector(fs, x)
	case map[string]interface{}:
		var fs []float64
		for _, k := range []string{"x", "y", "z", "w"} {
			y, have := vv[k]
			if !have {
				break
			}
			f, ok := number(y)
			if !ok {
				return Value{}, &UnconvertibleValue{X: x}
			}
			fs = append(fs, f)
		}
		if len(fs) != len(vv) {
			return Value{}, &UnconvertibleValue{X: x}
		}
		return vector(fs, x)
	}
	return Value{}, &UnconvertibleValue{X: x}
}

func vector(fs []float64, x interface{}) (Value, error) {
	switch len(fs) {
	case 3:
		return Vector3Value(fs[0], fs[1], fs[2]), nil
	case 4:
		return QuaternionValue(fs[0], fs[1], fs[2], fs[3]), nil
	}
	return Value{}, &UnconvertibleValue{X: x}
}

func number(x interface{}) (float64, bool) {
	switch vv := x.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int64:
		return float64(vv), true
	}
	return 0, false
}

// Native returns the document representation: nil, bool, float64,
// string, or an array of numbers.  Objects are represented by their
// names.
func (v Value) Native() interface{} {
	switch v.Kind {
	case Bool:
		return v.B
	case Number:
		return v.N
	case Vector3:
		return []interface{}{v.V[0], v.V[1], v.V[2]}
	case Quaternion:
		return []interface{}{v.V[0], v.V[1], v.V[2], v.V[3]}
	case String:
		return v.S
	case ObjectRef:
		return v.Obj.ObjectName()
	}
	return nil
}

// Truthy is how a trigger reads a value.
func (v Value) Truthy() bool {
	switch v.Kind {
	case Bool:
		return v.B
	case Number:
		return v.N != 0 && !math.IsNaN(v.N)
	case String:
		return v.S != "" && v.S != "false"
	case Vector3, Quaternion, ObjectRef:
		return true
	}
	return false
}

// Float returns a number if the value is one.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case Number:
		return v.N, true
	case Bool:
		if v.B {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Equal compares values.  Objects are equal when they are the same
// accessor.
func (v Value) Equal(w Value) bool {
	if v.Kind != w.Kind {
		return false
	}
	switch v.Kind {
	case Nil:
		return true
	case Bool:
		return v.B == w.B
	case Number:
		return v.N == w.N
	case Vector3, Quaternion:
		return v.V == w.V
	case String:
		return v.S == w.S
	case ObjectRef:
		return v.Obj == w.Obj
	}
	return false
}

func (v Value) String() string {
	switch v.Kind {
	case Nil:
		return "nil"
	case ObjectRef:
		return "object:" + v.Obj.ObjectName()
	case Vector3:
		return fmt.Sprintf("(%g,%g,%g)", v.V[0], v.V[1], v.V[2])
	case Quaternion:
		return fmt.Sprintf("(%g,%g,%g,%g)", v.V[0], v.V[1], v.V[2], v.V[3])
	}
	return Literal(v.Native())
}
