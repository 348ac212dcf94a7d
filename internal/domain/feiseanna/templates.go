package feiseanna

import (
	"fmt"
	"io"

	"github.com/ifeis/server/internal/domain/events"
	"gopkg.in/yaml.v3"
)

type templateFile struct {
	Templates []templateDoc `yaml:"templates"`
}

type templateDoc struct {
	Name   string          `yaml:"name"`
	Events []templateEntry `yaml:"events"`
}

type templateEntry struct {
	Name           string `yaml:"name"`
	Code           string `yaml:"code"`
	Level          string `yaml:"level"`
	Age            string `yaml:"age"`
	Type           string `yaml:"type"`
	AgeMin         *int   `yaml:"age_min"`
	AgeMax         *int   `yaml:"age_max"`
	Fee            *int64 `yaml:"fee"`
	ExcludeFromMax bool   `yaml:"exclude_from_max"`
	Recall         bool   `yaml:"recall"`
	Places         *int   `yaml:"places"`
	Rounds         *int   `yaml:"rounds"`
	Details        string `yaml:"details"`
}

// ParseTemplates reads syllabus templates from a YAML document of the form
//
//	templates:
//	  - name: Grades
//	    events:
//	      - name: Beginner Reel U8
//	        code: "101"
//	        type: R
//	        fee: 1000
func ParseTemplates(r io.Reader) ([]Template, error) {
	var doc templateFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	out := make([]Template, 0, len(doc.Templates))
	for _, t := range doc.Templates {
		tpl := Template{Name: t.Name, Events: make([]events.Input, 0, len(t.Events))}
		for _, e := range t.Events {
			tpl.Events = append(tpl.Events, events.Input{
				Name:           e.Name,
				Code:           e.Code,
				Level:          e.Level,
				Age:            e.Age,
				Type:           e.Type,
				AgeMin:         e.AgeMin,
				AgeMax:         e.AgeMax,
				Fee:            e.Fee,
				ExcludeFromMax: e.ExcludeFromMax,
				Recall:         e.Recall,
				Places:         e.Places,
				Rounds:         e.Rounds,
				Details:        e.Details,
			})
		}
		out = append(out, tpl)
	}
	return out, nil
}
