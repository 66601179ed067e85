package health

// Output is the response wrapper for the liveness endpoint.
type Output struct {
	Body Data
}

// ReadyOutput is the response wrapper for the readiness endpoint.
type ReadyOutput struct {
	Body ReadyData
}
