package extract

// State is the extractor run state. A run walks Idle, ListFetching,
// DetailFetching, Finalizing, Done in order; Interrupted is entered from
// DetailFetching when an interrupt is requested and leads straight to
// Finalizing with whatever completed so far.
type State string

const (
	StateIdle           State = "idle"
	StateListFetching   State = "list_fetching"
	StateDetailFetching State = "detail_fetching"
	StateInterrupted    State = "interrupted"
	StateFinalizing     State = "finalizing"
	StateDone           State = "done"
)
