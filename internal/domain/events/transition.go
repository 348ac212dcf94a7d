package events

// Flag names a workflow column on an event.
type Flag string

const (
	FlagCIOpened      Flag = "is_ci_opened"
	FlagCIClosed      Flag = "is_ci_closed"
	FlagInTabs        Flag = "is_in_tabs"
	FlagInQA          Flag = "is_in_qa"
	FlagInResults     Flag = "is_in_results"
	FlagAnnounced     Flag = "is_announced"
	FlagPrintedRecall Flag = "prntd_recall"
	FlagPrintedPlaces Flag = "prntd_places"
)

// Flags lists every workflow flag in storage order.
var Flags = []Flag{
	FlagCIOpened,
	FlagCIClosed,
	FlagInTabs,
	FlagInQA,
	FlagInResults,
	FlagAnnounced,
	FlagPrintedRecall,
	FlagPrintedPlaces,
}

// Transition is a set of flag assignments applied atomically.
type Transition map[Flag]bool

var (
	OpenCheckIn   = Transition{FlagCIClosed: false, FlagCIOpened: true}
	CloseCheckIn  = Transition{FlagCIClosed: true, FlagCIOpened: false}
	CheckInToTabs = Transition{FlagInTabs: true, FlagInQA: false}
	SendToQA      = Transition{
		FlagInQA:          true,
		FlagInResults:     false,
		FlagAnnounced:     false,
		FlagPrintedRecall: false,
		FlagPrintedPlaces: false,
	}
	SendToResults        = Transition{FlagInResults: true}
	SetAnnounced         = Transition{FlagAnnounced: true}
	SetRecallsPrinted    = Transition{FlagPrintedRecall: true}
	SetPlacementsPrinted = Transition{FlagPrintedPlaces: true}
)

// Reset clears every flag, keeping participants and scores.
var Reset = func() Transition {
	t := make(Transition, len(Flags))
	for _, f := range Flags {
		t[f] = false
	}
	return t
}()

// Apply sets the transition's flags on e and refreshes its status.
func (t Transition) Apply(e Event) Event {
	for flag, value := range t {
		switch flag {
		case FlagCIOpened:
			e.CIOpened = value
		case FlagCIClosed:
			e.CIClosed = value
		case FlagInTabs:
			e.InTabs = value
		case FlagInQA:
			e.InQA = value
		case FlagInResults:
			e.InResults = value
		case FlagAnnounced:
			e.Announced = value
		case FlagPrintedRecall:
			e.PrintedRecall = value
		case FlagPrintedPlaces:
			e.PrintedPlaces = value
		}
	}
	return e.WithStatus()
}
