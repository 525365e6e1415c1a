package crew

import (
	"github.com/Comcast/morphs/core"
)

// Vis is a snapshot of one visualization instance: its spec, the
// state of each candidate morph, and what's animating.
type Vis struct {
	Id   string       `json:"id,omitempty"`
	Spec core.VisSpec `json:"spec,omitempty"`

	// Candidates maps morph names to state names.
	Candidates map[string]string `json:"candidates,omitempty"`

	// Active lists the active transitions in the order they
	// were applied.
	Active []string `json:"active,omitempty"`

	// Subscriptions counts the instance's live signal
	// subscriptions.
	Subscriptions int `json:"subscriptions"`
}

// Update overlays the given data on the target record.
//
// The spec and candidates (if any) are copied.  Active and
// Subscriptions are always taken from the overlay.
//
// Not thread-safe.
func (v *Vis) Update(overlay *Vis) {
	if overlay.Id != "" {
		v.Id = overlay.Id
	}
	if overlay.Spec != nil {
		v.Spec = overlay.Spec.Copy()
	}
	if overlay.Candidates != nil {
		v.Candidates = copyStrings(overlay.Candidates)
	}
	v.Active = append([]string(nil), overlay.Active...)
	v.Subscriptions = overlay.Subscriptions
}

// Copy returns a deep copy.
func (v *Vis) Copy() *Vis {
	acc := &Vis{
		Id:            v.Id,
		Candidates:    copyStrings(v.Candidates),
		Active:        append([]string(nil), v.Active...),
		Subscriptions: v.Subscriptions,
	}
	if v.Spec != nil {
		acc.Spec = v.Spec.Copy()
	}
	return acc
}

func copyStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	acc := make(map[string]string, len(m))
	for k, v := range m {
		acc[k] = v
	}
	return acc
}

// MorphSource aspires to hold the origin of a set of morphs.
//
// Morphs can be given by a URL (including "file://"), as YAML or
// JSON source text, or inline.
//
// Just how a MorphSource is used is up to the application.
type MorphSource struct {
	// Name is an optional label.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// URL is an optional pointer to morph definitions.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Source is optional YAML or JSON text.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Inline is optional definitions right here.
	Inline []*core.Morph `json:"inline,omitempty" yaml:",omitempty"`
}

// Copy makes a shallow copy.  The inline morphs are shared.
func (s *MorphSource) Copy() *MorphSource {
	return &MorphSource{
		Name:   s.Name,
		URL:    s.URL,
		Source: s.Source,
		Inline: s.Inline,
	}
}
