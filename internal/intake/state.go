// ABOUTME: Intake pipeline states, rejection reasons, and outcomes.
// ABOUTME: States name how far an upload progressed before terminating.

package intake

// State names a stage of the intake pipeline. Handlers return the last
// state an upload reached; StateNotified, StateRejected, and StateIgnored
// are terminal, anything earlier means the run aborted with an error.
type State string

const (
	StateObserved      State = "observed"
	StateClassified    State = "classified"
	StateDownloaded    State = "downloaded"
	StateOriginDeleted State = "origin_deleted"
	StateRouted        State = "routed"
	StateVerified      State = "verified"
	StateStored        State = "stored"
	StateAccessGranted State = "access_granted"
	StateNotified      State = "notified"
	StateRejected      State = "rejected"
	StateIgnored       State = "ignored"
)

// Rejection reasons carried by StateRejected outcomes.
const (
	ReasonRouting     = "routing"
	ReasonNotModified = "not-modified"
	ReasonStorage     = "storage-error"
)

// Outcome is the terminal result of one pipeline run.
type Outcome struct {
	State  State
	Reason string
}

// label flattens the outcome into a single metric label value.
func (o Outcome) label() string {
	if o.Reason != "" {
		return string(o.State) + ":" + o.Reason
	}
	return string(o.State)
}
