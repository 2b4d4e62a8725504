// Package harness runs YAML scenarios end to end: a scenario names a CUE
// schema or JSON samples, a pipeline configuration, documents that must
// decode (or be rejected) with the resulting graph, and assertions on that
// graph.
//
// Each scenario runs with a fresh in-memory store and a fixed run ID, so
// the recorded generations and their hashes are reproducible.
//
// Example scenario:
//
//	name: orders
//	description: Orders inferred from two samples
//	run_id: orders-run
//	samples:
//	  - {name: Order, file: order1.json}
//	  - {name: Order, json: '{"id": 2, "placed": "2024-01-03"}'}
//	config:
//	  check_constraints: true
//	documents:
//	  - {top_level: Order, json: '{"id": 3, "placed": "2024-02-01"}', expect: decode}
//	  - {top_level: Order, json: '{"id": "x"}', expect: reject, path: $.id}
//	assertions:
//	  - {type: decodes_as, name: Order, kind: class}
//	  - {type: kind_count, kind: object, count: 0}
package harness
