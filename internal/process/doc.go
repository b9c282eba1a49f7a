// Package process runs provisioning subprocesses and turns their output into
// line events.
//
// Command ties a child to a context so that cancelling the context kills the
// child and everything it spawned. Pump drains stdout and stderr together and
// stops at the first line the tool reports as an error.
package process
