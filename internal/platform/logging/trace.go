package logging

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

const (
	traceparentHeader = "traceparent"
	cloudTraceHeader  = "X-Cloud-Trace-Context"
)

var (
	// {version}-{trace-id}-{parent-id}-{trace-flags}
	traceparentRe = regexp.MustCompile(`^([0-9a-fA-F]{2})-([0-9a-fA-F]{32})-([0-9a-fA-F]{16})-([0-9a-fA-F]{2})$`)
	// TRACE_ID/SPAN_ID;o=OPTIONS
	cloudTraceRe = regexp.MustCompile(`^([0-9a-fA-F]{32})/([0-9]+)(?:;o=([01]))?$`)
)

type spanContext struct {
	traceID string
	spanID  string
	sampled bool
}

// parseTraceHeaders prefers W3C traceparent and falls back to the legacy Cloud Trace header.
func parseTraceHeaders(traceparent, cloudTrace string) (spanContext, bool) {
	if m := traceparentRe.FindStringSubmatch(traceparent); m != nil {
		return spanContext{traceID: m[2], spanID: m[3], sampled: m[4] == "01"}, true
	}
	if m := cloudTraceRe.FindStringSubmatch(cloudTrace); m != nil {
		return spanContext{traceID: m[1], spanID: m[2], sampled: m[3] == "1"}, true
	}
	return spanContext{}, false
}

func (sc spanContext) resource(project string) string {
	return fmt.Sprintf("projects/%s/traces/%s", project, sc.traceID)
}

func traceFields(sc spanContext, project string) []zap.Field {
	return []zap.Field{
		zap.String("logging.googleapis.com/trace", sc.resource(project)),
		zap.String("logging.googleapis.com/spanId", sc.spanID),
		zap.Bool("logging.googleapis.com/trace_sampled", sc.sampled),
	}
}
