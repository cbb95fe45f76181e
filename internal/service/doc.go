// Package service implements supervision of isolated scan processes and
// the conflict-resolution protocol bridging them to the application.
//
// Overview
// The Manager owns at most one active Worker. Clients call LaunchScan,
// consume lifecycle events from Events() and answer clarification
// requests through Respond. Only one attempt may run at a time.
//
// A Worker supervises one scan attempt: it builds the duplex conflict
// channel (two OS pipes), spawns the isolated process through the Runner
// and relays channel traffic as typed events from its own goroutine, so
// blocking reads never touch the caller.
//
// Runner is a thin, opinionated wrapper around os/exec:
//   - starts the process with the channel descriptors attached
//   - captures stdout (becomes the scan log)
//   - optionally relays stderr (extra goroutine)
//   - exposes a channel delivering the terminal Result
//
// Data flow:
//
//	Manager               Worker                  Runner{cmd}        child (_scan)
//	   |                    |                        |                   |
//	LaunchScan -----------> | start() -------------> | Start()           |
//	   |                    |                        | exec + Wait()     |
//	   |<-- ScanStarted ----|                        |                   |
//	   |                    |<------- Request -------+-------------------|
//	   |<-- RequestReceived-|                        |                   |
//	Respond(answer) ------->|-------- Answer --------+------------------>|
//	   |                    |<-- EndOfCommunication -+-------------------|
//	   |<-- ScanEnded ------| finish()               |                   |
//
// Invariants:
//   - At most one Worker (and one isolated process) per Manager.
//   - Exactly one request is outstanding per channel; answers must match
//     the pending request's shape.
//   - Each attempt produces exactly one ScanEnded, whether the scan
//     succeeded, faulted or was aborted.
//   - EndOfCommunication is always the last message the receive loop
//     observes; after a kill the supervisor injects it itself.
//   - The four pipe descriptors are released exactly once, in finish().
//
// internal/service/supervisor_test.go is the best source about how to
// properly use the Manager.
package service
