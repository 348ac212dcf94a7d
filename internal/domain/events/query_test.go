package events

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery(url.Values{
		"type":   {"G"},
		"filter": {" reel "},
		"champs": {"1"},
		"age":    {"9"},
		"status": {"rcl"},
		"recall": {"1"},
		"stats":  {"true"},
		"skip":   {"10"},
		"limit":  {"5"},
	})
	require.NoError(t, err)
	require.Equal(t, "G", q.Type)
	require.Equal(t, "reel", q.Filter)
	require.Equal(t, 1, *q.Champs)
	require.Equal(t, 9, *q.Age)
	require.True(t, q.StatusSet)
	require.Equal(t, StatusRecall, q.Status)
	require.True(t, q.Recall)
	require.True(t, q.Stats)
	require.Equal(t, 10, q.Skip)
	require.Equal(t, 5, q.Limit)
	require.False(t, q.ChampsApplies(), "filter disables champs")
	require.False(t, q.AgeApplies(), "filter disables age")
}

func TestParseQuery_Errors(t *testing.T) {
	_, err := ParseQuery(url.Values{"age": {"old"}})
	var filterErr FilterError
	require.ErrorAs(t, err, &filterErr)
	require.Equal(t, "age", filterErr.Field)

	_, err = ParseQuery(url.Values{"limit": {"-1"}})
	require.ErrorAs(t, err, &filterErr)
	require.Equal(t, "limit", filterErr.Field)
}

func TestParseQuery_UnknownStatusMatchesNothing(t *testing.T) {
	q, err := ParseQuery(url.Values{"status": {"NOPE"}})
	require.NoError(t, err)
	require.True(t, q.StatusSet)
	require.False(t, q.Matches(Event{Name: "Reel"}))
}

func TestQueryMatches(t *testing.T) {
	grades := Event{Name: "U10 Reel", Code: "101", Level: "Beginner", Type: TypeGrades, AgeMin: intPtr(9), AgeMax: intPtr(10)}
	champs := Event{Name: "Open Championship", Type: TypeChampionships, AgeMin: intPtr(12)}
	special := Event{Name: "Treble Reel Special"}

	require.True(t, Query{}.Matches(grades))
	require.False(t, Query{}.Matches(Event{Inactive: true}))

	require.True(t, Query{Filter: "REEL"}.Matches(special))
	require.True(t, Query{Filter: "grade"}.Matches(grades), "type name is searched")
	require.True(t, Query{Filter: "101"}.Matches(grades))
	require.False(t, Query{Filter: "jig"}.Matches(grades))

	require.False(t, Query{Champs: intPtr(1)}.Matches(grades))
	require.True(t, Query{Champs: intPtr(1)}.Matches(champs))
	require.False(t, Query{Champs: intPtr(0)}.Matches(champs))
	require.True(t, Query{Champs: intPtr(1), Filter: "reel"}.Matches(grades))

	require.True(t, Query{Age: intPtr(9)}.Matches(grades))
	require.False(t, Query{Age: intPtr(11)}.Matches(grades))
	require.True(t, Query{Age: intPtr(30)}.Matches(champs), "open upper bound")
	require.False(t, Query{Age: intPtr(8)}.Matches(champs))
	require.True(t, Query{Age: intPtr(3)}.Matches(special), "no bounds")

	require.False(t, Query{Recall: true}.Matches(grades))
	require.True(t, Query{Type: TypeGrades}.Matches(grades))
	require.False(t, Query{Type: TypeFigures}.Matches(grades))
}

func TestStatusMatches(t *testing.T) {
	require.True(t, StatusMatches(StatusPending, Event{}))
	require.False(t, StatusMatches(StatusPending, Event{CIOpened: true}))
	require.True(t, StatusMatches(StatusCheckIn, Event{CIOpened: true}))
	require.True(t, StatusMatches(StatusRecall, Event{InResults: true, Recall: true}))
	require.False(t, StatusMatches(StatusRecall, Event{InResults: true, Recall: true, Announced: true}))
	require.True(t, StatusMatches(StatusResults, Event{InResults: true}))
	require.True(t, StatusMatches(StatusResults, Event{InResults: true, Recall: true, Announced: true}))
	require.False(t, StatusMatches(StatusResults, Event{InResults: true, Recall: true}))
	require.True(t, StatusMatches(StatusQA, Event{InQA: true}))
	require.False(t, StatusMatches(StatusQA, Event{InQA: true, InResults: true}))
	require.True(t, StatusMatches(StatusAdjudication, Event{CIClosed: true}))
	require.True(t, StatusMatches(StatusTabs, Event{InTabs: true}))
	require.False(t, StatusMatches(Status("XYZ"), Event{}))
}
