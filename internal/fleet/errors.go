package fleet

import "fmt"

// EmptyRosterError reports a list call that found no instances. An
// empty fleet is a failure here, not a silent empty result: every list
// in the lifecycle happens right after a create batch, where zero
// instances means something went wrong.
type EmptyRosterError struct {
	Project string
	Zone    string
}

func (e *EmptyRosterError) Error() string {
	return fmt.Sprintf("no instances available in project %s, zone %s", e.Project, e.Zone)
}

// OperationError reports a provider operation that reached DONE with
// an error payload attached.
type OperationError struct {
	ID  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %s failed: %v", e.ID, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
