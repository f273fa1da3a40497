// Command fastchannels runs and operates the VOD fast-channel pipeline.
//
// "serve" starts the HTTP event receiver. "handle" pushes one envelope
// through the same dispatcher without a daemon, which is how a function
// runtime or a replay from the journal drives it. The remaining commands
// inspect configuration, remote prerequisites, and delivery history, or run
// the pure transforms (esam, resource-id) offline.
package main
