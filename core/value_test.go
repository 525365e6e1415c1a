package core

import (
	"errors"
	"testing"
)

type box struct{ name string }

func (b *box) ObjectName() string { return b.name }

func (b *box) Property(name string) (Value, error) {
	return StringValue(b.name + "." + name), nil
}

func TestOf(t *testing.T) {
	b := &box{"cube"}
	tests := []struct {
		x    interface{}
		kind Kind
	}{
		{nil, Nil},
		{true, Bool},
		{3.5, Number},
		{7, Number},
		{"hi", String},
		{[]interface{}{1.0, 2.0, 3.0}, Vector3},
		{[]float64{0, 0, 0, 1}, Quaternion},
		{map[string]interface{}{"x": 1.0, "y": 2.0, "z": 3.0}, Vector3},
		{b, ObjectRef},
	}
	for _, tc := range tests {
		v, err := Of(tc.x)
		if err != nil {
			t.Fatalf("%#v: %v", tc.x, err)
		}
		if v.Kind != tc.kind {
			t.Fatalf("%#v: %s != %s", tc.x, v.Kind, tc.kind)
		}
	}
}

func TestOfUnconvertible(t *testing.T) {
	for _, x := range []interface{}{
		[]interface{}{1.0, 2.0},
		[]interface{}{"a", "b", "c"},
		map[string]interface{}{"q": 1.0},
		struct{}{},
	} {
		_, err := Of(x)
		var u *UnconvertibleValue
		if !errors.As(err, &u) {
			t.Fatalf("%#v: expected UnconvertibleValue, got %v", x, err)
		}
	}
}

func TestNative(t *testing.T) {
	v := Vector3Value(1, 2, 3)
	x := v.Native()
	w, err := Of(x)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Equal(w) {
		t.Fatal(v, w)
	}
	if ObjectValue(&box{"sphere"}).Native() != "sphere" {
		t.Fatal("object native")
	}
}

func TestTruthy(t *testing.T) {
	if !BoolValue(true).Truthy() || BoolValue(false).Truthy() {
		t.Fatal("bool")
	}
	if NumberValue(0).Truthy() || !NumberValue(0.1).Truthy() {
		t.Fatal("number")
	}
	if (Value{}).Truthy() {
		t.Fatal("nil")
	}
	if StringValue("false").Truthy() {
		t.Fatal("string")
	}
}

func TestLiteral(t *testing.T) {
	if Literal(3.0) != "3" || Literal(3) != "3" || Literal(true) != "true" {
		t.Fatal("literals")
	}
	if Literal([]interface{}{1.0, "a"}) != `[1,"a"]` {
		t.Fatal(Literal([]interface{}{1.0, "a"}))
	}
}
