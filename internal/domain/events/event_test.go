package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  Status
	}{
		{name: "nothing set", event: Event{}, want: StatusPending},
		{name: "check-in open", event: Event{CIOpened: true}, want: StatusCheckIn},
		{name: "check-in open wins over results", event: Event{CIOpened: true, InResults: true}, want: StatusCheckIn},
		{name: "check-in closed", event: Event{CIClosed: true}, want: StatusAdjudication},
		{name: "tabs", event: Event{CIClosed: true, InTabs: true}, want: StatusTabs},
		{name: "qa", event: Event{CIClosed: true, InTabs: true, InQA: true}, want: StatusQA},
		{name: "results", event: Event{InQA: true, InResults: true}, want: StatusResults},
		{name: "recall not announced", event: Event{InResults: true, Recall: true}, want: StatusRecall},
		{name: "recall announced", event: Event{InResults: true, Recall: true, Announced: true}, want: StatusResults},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.event.DeriveStatus())
			require.Equal(t, tt.want, tt.event.WithStatus().Status)
		})
	}
}

func TestTransitions(t *testing.T) {
	e := OpenCheckIn.Apply(Event{CIClosed: true})
	require.True(t, e.CIOpened)
	require.False(t, e.CIClosed)
	require.Equal(t, StatusCheckIn, e.Status)

	e = CloseCheckIn.Apply(e)
	require.Equal(t, StatusAdjudication, e.Status)

	e = CheckInToTabs.Apply(Event{CIClosed: true, InQA: true})
	require.True(t, e.InTabs)
	require.False(t, e.InQA)
	require.Equal(t, StatusTabs, e.Status)

	published := Event{InQA: true, InResults: true, Announced: true, PrintedRecall: true, PrintedPlaces: true, Recall: true}
	e = SendToQA.Apply(published)
	require.True(t, e.InQA)
	require.False(t, e.InResults || e.Announced || e.PrintedRecall || e.PrintedPlaces)
	require.Equal(t, StatusQA, e.Status)

	e = Reset.Apply(published)
	require.Equal(t, Event{Recall: true, Status: StatusPending}, e)
	require.Len(t, Reset, len(Flags))
}

func TestTypeName(t *testing.T) {
	require.Equal(t, "figures", TypeName("F"))
	require.Equal(t, "grades", TypeName("G"))
	require.Equal(t, "championships", TypeName("C"))
	require.Equal(t, "specials", TypeName("S"))
	require.Equal(t, "specials", TypeName(""))
}
