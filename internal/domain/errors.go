package domain

import "fmt"

// Error kinds let transport layers map failures without inspecting messages.
const (
	KindFetch       = "fetch"
	KindExtraction  = "extraction"
	KindCacheLookup = "cache_lookup"
	KindPersistence = "persistence"
)

// FetchError reports a channel that could not retrieve articles.
type FetchError struct {
	Channel string
	Err     error
}

func (e *FetchError) Error() string { return fmt.Sprintf("channel %s: %v", e.Channel, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }
func (e *FetchError) ErrorKind() string { return KindFetch }

// ExtractionError reports a body the date analysis failed on.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string { return fmt.Sprintf("extract dates from %s: %v", e.URL, e.Err) }
func (e *ExtractionError) Unwrap() error { return e.Err }
func (e *ExtractionError) ErrorKind() string { return KindExtraction }

// CacheLookupError reports a store failure during the pre-run cache check.
type CacheLookupError struct {
	Err error
}

func (e *CacheLookupError) Error() string { return fmt.Sprintf("cache lookup: %v", e.Err) }
func (e *CacheLookupError) Unwrap() error { return e.Err }
func (e *CacheLookupError) ErrorKind() string { return KindCacheLookup }

// PersistenceError reports a failed upsert or report save. The in-memory run
// already completed when it is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persist %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }
func (e *PersistenceError) ErrorKind() string { return KindPersistence }
