// Package orchestrator runs the agentsmith pipeline in the background.
//
// The package provides:
//   - TaskOrchestrator: classify a task, build and persist an agent from
//     the matching template, run it once and record the outcome
//   - ExecutionOrchestrator: run an existing agent against one input
//   - Dispatcher: an in-process job queue drained by a bounded worker pool
//
// Submission writes a pending row and enqueues its id. Workers claim rows
// with a conditional update, so a job delivered twice runs once. The store
// doubles as the outbox: Dispatcher.Recover re-enqueues pending rows at
// startup and fails rows a crashed process left mid-flight.
//
// Example usage:
//
//	d := orchestrator.NewDispatcher(orchestrator.DispatcherConfig{Concurrency: 4})
//	tasks := orchestrator.NewTaskOrchestrator(db, synth, runner, mirror, d)
//	d.Register(orchestrator.JobTask, tasks.Process)
//	go d.Run(ctx)
//	task, err := tasks.Submit(ctx, "user-1", "Write a blog post about Go generics", nil)
package orchestrator
