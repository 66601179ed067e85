package health

// ServiceName identifies this service in the liveness payload.
const ServiceName = "hello-devops"

// Probe status values.
const (
	StatusHealthy = "healthy"
	StatusReady   = "ready"
)

// Data is the liveness payload.
type Data struct {
	Status  string `json:"status"  doc:"Liveness status" example:"healthy"`
	Service string `json:"service" doc:"Service name"    example:"hello-devops"`
}

// ReadyData is the readiness payload.
type ReadyData struct {
	Status string `json:"status" doc:"Readiness status" example:"ready"`
}
