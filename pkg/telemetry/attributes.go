package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span and resource attribute keys.
const (
	AttrAlgorithm  = attribute.Key("dsu.algorithm")
	AttrVertices   = attribute.Key("dsu.vertices")
	AttrThreads    = attribute.Key("dsu.threads")
	AttrRepetition = attribute.Key("bench.repetition")
	AttrOps        = attribute.Key("bench.ops")
	AttrWorkload   = attribute.Key("workload.generator")
	AttrNUMANodes  = attribute.Key("host.numa.nodes")
	AttrHostCPUs   = attribute.Key("host.cpus")
)

// HostAttributes describes the machine for the tracing resource.
func HostAttributes(nodes, cpus int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrNUMANodes.Int(nodes),
		AttrHostCPUs.Int(cpus),
	}
}
