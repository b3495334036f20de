package qbo

import "fmt"

// DuplicateNameCode is the ledger's fault code for a name collision on
// entity creation. It is the one recoverable creation fault: the caller is
// expected to fetch the existing entity instead of failing.
const DuplicateNameCode = "6240"

// UpstreamError is a non-2xx response from the ledger API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ledger: upstream error %d: %s", e.Status, e.Body)
}

// DuplicateNameError reports a creation attempt on a name that already
// exists in the ledger.
type DuplicateNameError struct {
	Entity string
	Name   string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("ledger: duplicate %s name %q", e.Entity, e.Name)
}
