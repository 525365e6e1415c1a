package core

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jsccast/yaml"
)

// MorphExtensions are the filename extensions that ReadMorphDir
// considers.
var MorphExtensions = []string{".yaml", ".yml", ".json"}

// ParseMorphs parses YAML (or JSON, which is YAML) that is either a
// single morph, an array of morphs, or an object with a "morphs"
// array.
//
// The morphs are not compiled.
func ParseMorphs(bs []byte) ([]*Morph, error) {
	var x interface{}
	if err := yaml.Unmarshal(bs, &x); err != nil {
		return nil, err
	}

	if m, is := x.(map[string]interface{}); is {
		if ms, have := m["morphs"]; have {
			x = ms
		}
	}

	// Go through JSON so that State.UnmarshalJSON does its thing.
	js, err := json.Marshal(&x)
	if err != nil {
		return nil, err
	}

	switch x.(type) {
	case []interface{}:
		var ms []*Morph
		if err := json.Unmarshal(js, &ms); err != nil {
			return nil, err
		}
		return ms, nil
	case map[string]interface{}:
		var m Morph
		if err := json.Unmarshal(js, &m); err != nil {
			return nil, err
		}
		return []*Morph{&m}, nil
	}
	return nil, errors.New("morph source is neither an object nor an array")
}

// ReadMorphFiles reads and parses the given files.
//
// Returns all the morphs that parsed.  A file that fails to parse
// contributes an error, and the other files are still read.
func ReadMorphFiles(filenames ...string) ([]*Morph, []error) {
	var (
		acc  []*Morph
		errs []error
	)
	for _, filename := range filenames {
		bs, err := ioutil.ReadFile(filename)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ms, err := ParseMorphs(bs)
		if err != nil {
			errs = append(errs, errors.New(filename+": "+err.Error()))
			continue
		}
		acc = append(acc, ms...)
	}
	return acc, errs
}

// MorphFilenames lists the morph files in a directory in lexical
// order.
func MorphFilenames(dir string) ([]string, error) {
	fis, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var acc []string
	for _, fi := range fis {
		if fi.IsDir() || !IsMorphFile(fi.Name()) {
			continue
		}
		acc = append(acc, filepath.Join(dir, fi.Name()))
	}
	sort.Strings(acc)
	return acc, nil
}

// IsMorphFile checks the filename extension.
func IsMorphFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range MorphExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ReadMorphDir reads all morph files in a directory.
func ReadMorphDir(dir string) ([]*Morph, []error) {
	filenames, err := MorphFilenames(dir)
	if err != nil {
		return nil, []error{err}
	}
	return ReadMorphFiles(filenames...)
}
