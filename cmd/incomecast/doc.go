// Package main hosts the incomecast CLI entrypoint and command graph.
//
// The Cobra command tree collects a demographic record from flags or a file,
// runs it through the prediction orchestrator while rendering perceived
// progress, and surfaces the local session history, backend status, and
// configuration scaffolding. Orchestration, persistence, and transport live in
// internal packages; this package only wires them to the terminal.
package main
