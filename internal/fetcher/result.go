package fetcher

// ResultKind discriminates the outcomes of a single ticker fetch.
type ResultKind int

const (
	// ResultOk carries a usable snapshot.
	ResultOk ResultKind = iota
	// ResultTransient covers transport-level failures; the call may succeed
	// if retried later.
	ResultTransient
	// ResultInBandError means the HTTP call succeeded but the provider
	// flagged an error in the response metadata.
	ResultInBandError
)

// Result is the tagged outcome of FetchTicker. Exactly one of Snapshot, Err,
// or Reason is meaningful depending on Kind.
type Result struct {
	Kind     ResultKind
	Snapshot Snapshot
	Err      error
	Reason   string
}

func ok(snap Snapshot) Result {
	return Result{Kind: ResultOk, Snapshot: snap}
}

func transient(err error) Result {
	return Result{Kind: ResultTransient, Err: err}
}

func inBandError(reason string) Result {
	return Result{Kind: ResultInBandError, Reason: reason}
}
