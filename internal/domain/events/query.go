package events

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query filters the active events of a feis.
type Query struct {
	Type   string
	Filter string
	// Champs 1 hides grades, 0 hides championships. Ignored with Filter.
	Champs *int
	// Age keeps events whose age bounds contain it. Ignored with Filter.
	Age *int
	// Status restricts by workflow state. StatusSet with an empty Status
	// means an unknown code was asked for and nothing matches.
	Status    Status
	StatusSet bool
	Recall    bool
	Stats     bool
	Skip      int
	Limit     int
}

type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func ParseQuery(values url.Values) (Query, error) {
	q := Query{
		Type:   strings.TrimSpace(values.Get("type")),
		Filter: strings.TrimSpace(values.Get("filter")),
		Recall: truthy(values.Get("recall")),
		Stats:  truthy(values.Get("stats")),
	}

	if raw := strings.TrimSpace(values.Get("champs")); raw != "" {
		champs, err := strconv.Atoi(raw)
		if err != nil {
			return q, FilterError{Field: "champs", Message: "must be 0 or 1"}
		}
		q.Champs = &champs
	}
	if raw := strings.TrimSpace(values.Get("age")); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil || age < 0 {
			return q, FilterError{Field: "age", Message: "must be a non-negative integer"}
		}
		q.Age = &age
	}
	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		q.StatusSet = true
		if status, ok := ParseStatus(strings.ToUpper(raw)); ok {
			q.Status = status
		}
	}

	var err error
	if q.Skip, err = parseNonNegative("skip", values.Get("skip")); err != nil {
		return q, err
	}
	if q.Limit, err = parseNonNegative("limit", values.Get("limit")); err != nil {
		return q, err
	}
	return q, nil
}

// ChampsApplies reports whether the champs filter is in effect.
func (q Query) ChampsApplies() bool {
	return q.Champs != nil && q.Filter == ""
}

// AgeApplies reports whether the age filter is in effect.
func (q Query) AgeApplies() bool {
	return q.Age != nil && q.Filter == ""
}

// Matches evaluates the query against a single event the same way storage
// does. Pagination is not applied.
func (q Query) Matches(e Event) bool {
	if e.Inactive {
		return false
	}
	if q.Type != "" && e.Type != q.Type {
		return false
	}
	if q.Filter != "" {
		needle := strings.ToLower(q.Filter)
		found := false
		for _, hay := range []string{e.Name, e.Code, e.Level, e.Age, TypeName(e.Type)} {
			if strings.Contains(strings.ToLower(hay), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.ChampsApplies() {
		if *q.Champs == 1 && e.Type == TypeGrades {
			return false
		}
		if *q.Champs == 0 && e.Type == TypeChampionships {
			return false
		}
	}
	if q.AgeApplies() {
		age := *q.Age
		if e.AgeMin != nil && age < *e.AgeMin {
			return false
		}
		if e.AgeMax != nil && age > *e.AgeMax {
			return false
		}
	}
	if q.StatusSet && !StatusMatches(q.Status, e) {
		return false
	}
	if q.Recall && !e.Recall {
		return false
	}
	return true
}

// StatusMatches is the status filter. It checks only the flags that define
// each state, which is looser than DeriveStatus: an event whose check-in is
// open but which was already sent to tabs matches both CI and TABS.
func StatusMatches(status Status, e Event) bool {
	switch status {
	case StatusPending:
		return !e.CIOpened && !e.CIClosed
	case StatusCheckIn:
		return e.CIOpened && !e.CIClosed
	case StatusRecall:
		return e.InResults && e.Recall && !e.Announced
	case StatusResults:
		return e.InResults && (!e.Recall || e.Announced)
	case StatusQA:
		return e.InQA && !e.InResults
	case StatusAdjudication:
		return e.CIClosed && !e.InTabs
	case StatusTabs:
		return e.InTabs && !e.InQA
	default:
		return false
	}
}

func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func parseNonNegative(field, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, FilterError{Field: field, Message: "must be a non-negative integer"}
	}
	return n, nil
}
