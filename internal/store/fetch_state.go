package store

import "github.com/abgdnv/catalogviewer/internal/catalog"

// Status is the lifecycle stage of one resource kind.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// FetchState reports the last transition of one resource kind.
type FetchState struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Snapshot is a consistent read of the store state for presentation.
type Snapshot struct {
	Products        []catalog.Product `json:"products"`
	Loading         bool              `json:"loading"`
	Error           string            `json:"error,omitempty"`
	SelectedProduct *catalog.Product  `json:"selectedProduct"`
	Filters         catalog.FilterSet `json:"filters"`
	Collection      FetchState        `json:"collection"`
	Selection       FetchState        `json:"selection"`
}

// resource tracks the request sequence of one resource kind. Only a result
// carrying the latest issued sequence number may be committed.
type resource struct {
	name  string
	seq   uint64
	state FetchState
}

func newResource(name string) resource {
	return resource{name: name, state: FetchState{Status: StatusIdle}}
}

// issue starts a new request and returns its sequence number.
func (r *resource) issue() uint64 {
	r.seq++
	r.state = FetchState{Status: StatusLoading}
	return r.seq
}

func (r *resource) isLatest(seq uint64) bool {
	return seq == r.seq
}

func (r *resource) loading() bool {
	return r.state.Status == StatusLoading
}
