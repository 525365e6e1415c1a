/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package testutil has helpers for writing specs and patterns in
// tests as JSON text.
package testutil

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/Comcast/morphs/core"
)

// JS renders its argument as JSON or as a string indicating an error.
func JS(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		log.Printf("warning: testutil.JS error %s for %#v", err, x)
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Dwimjs, when given a string or bytes, parses that data as JSON.
// When given anything else, just returns what's given.
//
// Panics on bad JSON.
func Dwimjs(x interface{}) interface{} {
	switch vv := x.(type) {
	case []byte:
		return Dwimjs(string(vv))
	case string:
		var v interface{}
		if err := json.Unmarshal([]byte(vv), &v); err != nil {
			panic(err)
		}
		return v
	default:
		return x
	}
}

// DwimMap is Dwimjs for a JSON object: a state pattern or a match
// binding.  Panics on anything else.
func DwimMap(x interface{}) map[string]interface{} {
	m, is := Dwimjs(x).(map[string]interface{})
	if !is {
		panic(fmt.Sprintf("not an object: %s", JS(x)))
	}
	return m
}

// DwimSpec is DwimMap for a visualization spec.
func DwimSpec(x interface{}) core.VisSpec {
	return core.VisSpec(DwimMap(x))
}
