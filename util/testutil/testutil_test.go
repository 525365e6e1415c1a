package testutil

import (
	"testing"
)

func TestDwimSpec(t *testing.T) {
	s := DwimSpec(`{"mark":"geoshape","encoding":{"x":{"field":"Longitude"}}}`)
	if field, _ := s.Get("encoding.x.field"); field != "Longitude" {
		t.Fatal(JS(s))
	}
	if _, have := s.Get("encoding.y"); have {
		t.Fatal("y")
	}

	// Already parsed.
	if got := DwimSpec(map[string]interface{}{"mark": "bar"}); got["mark"] != "bar" {
		t.Fatal(JS(got))
	}
}

func TestDwimMapNotAnObject(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("no panic")
		}
	}()
	DwimMap(`[1,2]`)
}

func TestJSVisSpec(t *testing.T) {
	s := DwimSpec([]byte(`{"width":400,"data":{"url":"states.json"}}`))
	if got, want := JS(s), `{"data":{"url":"states.json"},"width":400}`; got != want {
		t.Fatalf("%s != %s", got, want)
	}
}
