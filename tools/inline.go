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

package tools

import (
	"io/ioutil"
	"path/filepath"
	"regexp"

	"github.com/Comcast/morphs/core"
)

var inlinePattern = regexp.MustCompile(`(?s)(.*?)(%inline *\("([^"]*)"\))`)

// Inline replaces '%inline("NAME")' with f(NAME).
//
// Morph docs get long, so a morph file can pull a doc (or a big data
// value in a state pattern) from another file.
func Inline(bs []byte, f func(string) ([]byte, error)) ([]byte, error) {
	i := 0
	acc := make([]byte, 0, len(bs))
	for {
		part := inlinePattern.FindSubmatch(bs[i:])
		if part == nil {
			acc = append(acc, bs[i:]...)
			break
		}
		i += len(part[0])
		acc = append(acc, part[1]...)
		replacement, err := f(string(part[3]))
		if err != nil {
			return nil, err
		}
		acc = append(acc, replacement...)
	}

	return acc, nil
}

// ReadFileWithInlines is a replacement for ioutil.ReadFile that adds
// automation Inline()ing based on the directory obtained from the
// filename.
//
// '%inline("NAME")' is replaced with ReadFile(NAME).
func ReadFileWithInlines(filename string) ([]byte, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(filename)
	return Inline(bs, func(name string) ([]byte, error) {
		return ioutil.ReadFile(filepath.Join(dir, name))
	})
}

// ReadMorphs reads a morph file, with inlining, and compiles the
// morphs.
func ReadMorphs(filename string) ([]*core.Morph, error) {
	bs, err := ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	ms, err := core.ParseMorphs(bs)
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		if err := m.Compile(); err != nil {
			return nil, err
		}
	}
	return ms, nil
}
