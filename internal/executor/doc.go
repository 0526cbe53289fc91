// Package executor orchestrates a full workflow run: graph build, cycle
// check, topological sort, plan synthesis, and execution of the synthesized
// plan in an isolated interpreter process.
//
// A Runner streams progress as events in exactly the order the child
// process produced its output, and emits exactly one terminal event per
// run. Execution inside the child is strictly sequential: node invocations
// never overlap, because the shared global state has no concurrency
// protection. That makes sequential execution a correctness requirement,
// not an optimization choice.
package executor
