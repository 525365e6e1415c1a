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

package core

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Canonicalize is ... hey, look over there!
//
// Round-trips x through JSON so that numbers are float64s, maps are
// map[string]interface{}, and arrays are []interface{}.
func Canonicalize(x interface{}) (interface{}, error) {
	var err error

	js, err := json.Marshal(&x)
	if err != nil {
		return nil, err
	}
	var y interface{}
	if err = json.Unmarshal(js, &y); err != nil {
		return nil, err
	}

	return y, nil
}

// Timestamp returns a string representing the current time in
// RFC3339Nano.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Literal renders a leaf the way pattern matching compares leaves:
// strings as themselves, numbers in their shortest form, and
// everything else as JSON.
func Literal(x interface{}) string {
	switch vv := x.(type) {
	case nil:
		return "null"
	case string:
		return vv
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(vv), 'f', -1, 32)
	case int:
		return strconv.Itoa(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	case bool:
		return strconv.FormatBool(vv)
	}
	js, err := json.Marshal(x)
	if err != nil {
		return ""
	}
	return string(js)
}

// IsReference reports whether s is a this. or other. path
// reference.
func IsReference(s string) bool {
	return strings.HasPrefix(s, "this.") || strings.HasPrefix(s, "other.")
}
