package core

import (
	"testing"
)

func TestVisSpecCopy(t *testing.T) {
	s, err := ParseVisSpec([]byte(`{"encoding":{"x":{"field":"a"}},"data":{"url":"u"},"position":[0,1,2]}`))
	if err != nil {
		t.Fatal(err)
	}
	c := s.Copy()
	c.Encoding()["x"].(map[string]interface{})["field"] = "b"
	if v, _ := s.Get("encoding.x.field"); v != "a" {
		t.Fatal("copy isn't deep")
	}

	noData, data := s.WithoutData()
	if _, have := noData["data"]; have {
		t.Fatal("data not stripped")
	}
	if data == nil {
		t.Fatal("data lost")
	}
}

func TestGetPath(t *testing.T) {
	s, err := ParseVisSpec([]byte(`{"encoding":{"X":{"field":"a"}},"position":[0,1,2]}`))
	if err != nil {
		t.Fatal(err)
	}
	if v, have := s.Get("position[1]"); !have || v != 1.0 {
		t.Fatal(v)
	}
	if _, have := s.Get("position.7"); have {
		t.Fatal("out of range")
	}
	if k, _, have := s.Channel("x"); !have || k != "X" {
		t.Fatal(k)
	}
}

func TestSetPath(t *testing.T) {
	m := map[string]interface{}{}
	if !SetPath(m, []string{"encoding", "z", "field"}, "p") {
		t.Fatal("set failed")
	}
	if v, _ := GetPath(m, SplitPath("encoding.z.field")); v != "p" {
		t.Fatal(v)
	}
	m["position"] = []interface{}{0.0, 0.0, 0.0}
	if SetPath(m, []string{"position", "3"}, 1.0) {
		t.Fatal("array grew")
	}
}
