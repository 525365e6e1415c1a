package match

// Fuzz patterns and specs.  Match and then verify that results are
// idempotent and that a spec always matches itself.

import (
	"fmt"
	"math/rand"
	"testing"
	"time"
)

// Fuzz has parameters used to generate random patterns and specs.
type Fuzz struct {
	MapWidth    int
	ArrayWidth  int
	Alphabet    string
	StringWidth int
	MaxNumber   float64

	Nils      float64
	Strings   float64
	Wildcards float64
	Bools     float64
	Numbers   float64
	Arrays    float64
	Maps      float64

	// generate counts the number of atomic values generated.
	generated int64
}

// NoWildcards sets Wildcards to zero so that the generated value
// can be used as a live spec.
func (f *Fuzz) NoWildcards() {
	f.Wildcards = 0
}

// NewFuzz returns a reasonable, general-purpose Fuzz.
func NewFuzz() *Fuzz {
	return &Fuzz{
		MapWidth:    5,
		ArrayWidth:  3,
		Alphabet:    "abcde",
		StringWidth: 4,
		MaxNumber:   10,

		Nils:      1,
		Strings:   3,
		Wildcards: 1,
		Bools:     1,
		Numbers:   4,
		Arrays:    1,
		Maps:      3,
	}
}

// Gen generates a random pattern or spec fragment.
//
// If Wildcards is zero, the value contains no wildcards.
func (f *Fuzz) Gen(r *rand.Rand, d int) interface{} {
	f.generated++

	m := f.Strings + f.Bools + f.Numbers + f.Nils + f.Wildcards
	if 0 < d {
		m += f.Arrays + f.Maps
	}

	t := r.Float64() * m
	if t < f.Strings {
		return f.genString(r)
	} else if t < f.Strings+f.Bools {
		return f.genBool(r)
	} else if t < f.Strings+f.Bools+f.Numbers {
		return f.genNumber(r)
	} else if t < f.Strings+f.Bools+f.Numbers+f.Nils {
		return nil
	} else if t < f.Strings+f.Bools+f.Numbers+f.Nils+f.Wildcards {
		return "*"
	} else if t < f.Strings+f.Bools+f.Numbers+f.Nils+f.Wildcards+f.Arrays {
		return f.genArray(r, d-1)
	} else {
		return f.genMap(r, d-1)
	}
}

func (f *Fuzz) genString(r *rand.Rand) string {
	n := r.Intn(f.StringWidth-1) + 1
	s := make([]byte, n)
	for i := range s {
		s[i] = f.Alphabet[r.Intn(len(f.Alphabet))]
	}
	return string(s)
}

func (f *Fuzz) genBool(r *rand.Rand) interface{} {
	return r.Intn(1024)%2 == 0
}

func (f *Fuzz) genNumber(r *rand.Rand) interface{} {
	return float64(r.Intn(int(f.MaxNumber)))
}

func (f *Fuzz) genArray(r *rand.Rand, d int) interface{} {
	xs := make([]interface{}, r.Intn(f.ArrayWidth))
	for i := range xs {
		xs[i] = f.Gen(r, d)
	}
	return xs
}

func (f *Fuzz) genMap(r *rand.Rand, d int) map[string]interface{} {
	n := r.Intn(f.MapWidth)
	m := make(map[string]interface{}, n)
	for i := 0; i < n; i++ {
		m[f.genString(r)] = f.Gen(r, d)
	}
	return m
}

// TestMatchFuzz matches a bunch of patterns against a bunch of specs.
//
// Verifies some of the results.
func TestMatchFuzz(t *testing.T) {
	var (
		pats        = 300
		specsPerPat = 300

		d = 3
		r = rand.New(rand.NewSource(42))
		p = NewFuzz()
		m = NewFuzz()

		matched   = 0
		attempted = 0
	)
	m.NoWildcards()

	then := time.Now()
	for i := 0; i < pats; i++ {
		pat := p.genMap(r, d)
		for j := 0; j < specsPerPat; j++ {
			spec := m.genMap(r, d)
			attempted++
			got := Matches(spec, pat, nil)
			if got {
				matched++
			}
			if again := Matches(spec, pat, nil); again != got {
				t.Fatalf("not idempotent for %v %v", pat, spec)
			}
			if !Matches(spec, spec, nil) {
				t.Fatalf("spec doesn't match itself: %v", spec)
			}
		}
	}
	elapsed := time.Now().Sub(then)

	fmt.Printf(`fuzzed      %d
matched     %f%%
elapsed     %fms
generated   %d
`,
		attempted,
		100*float64(matched)/float64(attempted),
		elapsed.Seconds()*1000,
		p.generated+m.generated)
}
