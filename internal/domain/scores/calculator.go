package scores

import (
	"math"
	"sort"

	"github.com/ifeis/server/internal/domain/events"
)

const epsilon = 1e-9

// irishPoints holds the points for positions 1 to 50.
var irishPoints = func() []float64 {
	table := []float64{100, 75, 65, 60, 56, 53, 50, 47, 45, 43, 41, 39}
	for p := 38.0; p >= 1; p-- {
		table = append(table, p)
	}
	return table
}()

// IrishPoints returns the points awarded for a 1-based position, 0 past 50.
func IrishPoints(position int) float64 {
	if position < 1 || position > len(irishPoints) {
		return 0
	}
	return irishPoints[position-1]
}

// Mark is one adjudicator's verdict on a competitor.
type Mark struct {
	AdjudicatorID string  `json:"adjudicator"`
	Raw           float64 `json:"raw"`
	Rank          int     `json:"rank"`
	Points        float64 `json:"points"`
	Scores        []Score `json:"scores"`
}

// Result is a competitor's combined outcome across all scoresheets.
type Result struct {
	PersonID      string  `json:"id"`
	Competitor    *int    `json:"competitor"`
	Total         float64 `json:"total"`
	ComputedTotal float64 `json:"computed_total"`
	Placement     int     `json:"placement"`
	Placed        bool    `json:"placed"`
	Marks         []Mark  `json:"scores,omitempty"`
}

// Calculator ranks the participants of one event by Irish points.
type Calculator struct {
	places       *int
	participants map[string]*int
	sheets       []sheet
}

type sheet struct {
	adjudicatorID string
	rows          []SheetRow
}

func NewCalculator(event events.Event, participants []events.Competitor) *Calculator {
	c := &Calculator{places: event.Places, participants: make(map[string]*int, len(participants))}
	for _, p := range participants {
		c.participants[p.ID] = p.Competitor
	}
	return c
}

// AddScoresheet adds one adjudicator's marks. Rows for people who are not
// participants are ignored.
func (c *Calculator) AddScoresheet(adjudicatorID string, rows []SheetRow) {
	c.sheets = append(c.sheets, sheet{adjudicatorID: adjudicatorID, rows: rows})
}

// Calculate returns the scored competitors ordered by placement. Each
// scoresheet is ranked by raw total and converted to Irish points, tied
// competitors sharing the average of the positions they span. Placement is
// the rank by summed points, ties sharing a placement.
func (c *Calculator) Calculate() []Result {
	results := map[string]*Result{}

	for _, sh := range c.sheets {
		type entry struct {
			personID string
			raw      float64
			scores   []Score
		}
		var entries []entry
		for _, row := range sh.rows {
			if _, ok := c.participants[row.PersonID]; !ok || len(row.Scores) == 0 {
				continue
			}
			e := entry{personID: row.PersonID, scores: row.Scores}
			for _, s := range row.Scores {
				e.raw += s.Value
			}
			entries = append(entries, e)
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].raw > entries[j].raw })

		for i := 0; i < len(entries); {
			j := i
			for j+1 < len(entries) && math.Abs(entries[j+1].raw-entries[i].raw) < epsilon {
				j++
			}
			var sum float64
			for pos := i + 1; pos <= j+1; pos++ {
				sum += IrishPoints(pos)
			}
			points := sum / float64(j-i+1)

			for k := i; k <= j; k++ {
				e := entries[k]
				r, ok := results[e.personID]
				if !ok {
					r = &Result{PersonID: e.personID, Competitor: c.participants[e.personID]}
					results[e.personID] = r
				}
				r.Total += e.raw
				r.ComputedTotal += points
				r.Marks = append(r.Marks, Mark{
					AdjudicatorID: sh.adjudicatorID,
					Raw:           e.raw,
					Rank:          i + 1,
					Points:        points,
					Scores:        e.scores,
				})
			}
			i = j + 1
		}
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if math.Abs(out[i].ComputedTotal-out[j].ComputedTotal) >= epsilon {
			return out[i].ComputedTotal > out[j].ComputedTotal
		}
		return lessCompetitor(out[i], out[j])
	})

	places := (len(out) + 1) / 2
	if c.places != nil {
		places = *c.places
	}
	for i := range out {
		if i > 0 && math.Abs(out[i].ComputedTotal-out[i-1].ComputedTotal) < epsilon {
			out[i].Placement = out[i-1].Placement
		} else {
			out[i].Placement = i + 1
		}
		out[i].Placed = out[i].Placement <= places
	}
	return out
}

func lessCompetitor(a, b Result) bool {
	switch {
	case a.Competitor != nil && b.Competitor != nil && *a.Competitor != *b.Competitor:
		return *a.Competitor < *b.Competitor
	case a.Competitor != nil && b.Competitor == nil:
		return true
	case a.Competitor == nil && b.Competitor != nil:
		return false
	}
	return a.PersonID < b.PersonID
}
