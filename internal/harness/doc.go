// Package harness runs declarative end-to-end scenarios against the
// full query pipeline.
//
// A scenario is a YAML file naming a CUE schema, a set of facts to
// assert (and optionally retract), and a list of queries. The runner
// builds a fresh store, loads everything, executes each query through
// parsing, compilation, evaluation and sorting, and records the plan
// plus the rendered rows. Golden files pin the exact output, so a
// change anywhere in the pipeline that shifts a plan shape or a row
// ordering shows up as a readable text diff.
//
// Typical use from a test:
//
//	func TestScenarios(t *testing.T) {
//		harness.RunWithGolden(t, "testdata/scenarios/basic.yaml")
//	}
package harness
