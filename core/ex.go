package core

// ChoroplethMorph makes an example Morph that's useful to have
// around.
//
// A flat choropleth map (no z channel) can be extruded into a prism
// map where the height of each region encodes population.  The
// transition runs both ways while the "grab" signal is true.
func ChoroplethMorph() (*Morph, error) {

	m := &Morph{
		Name: "choropleth-prism",
		Doc:  "Extrude a choropleth map into a prism map.",
		States: []*State{
			{
				Name: "choropleth",
				Pattern: map[string]interface{}{
					"encoding": map[string]interface{}{
						"x": map[string]interface{}{
							"field": "Longitude",
						},
						"z": nil,
					},
				},
			},
			{
				Name: "prism",
				Pattern: map[string]interface{}{
					"encoding": map[string]interface{}{
						"z": map[string]interface{}{
							"field": "Population",
							"type":  "quantitative",
						},
					},
				},
			},
		},
		Signals: []*SignalSpec{
			{
				Name:   "grab",
				Source: "input",
				Value:  false,
			},
		},
		Transitions: []*Transition{
			{
				Name:          "extrude",
				States:        []string{"choropleth", "prism"},
				Bidirectional: true,
				Triggers:      []string{"grab"},
				Timing: &Timing{
					Duration: 1,
					Easing:   "inOutQuad",
				},
				Interrupt: &Interrupt{
					Control: "reset",
					Value:   "end",
				},
			},
		},
	}

	if err := m.Compile(); err != nil {
		return nil, err
	}

	return m, nil
}
