// Package relay forwards game telemetry records to the EDSpec endpoint.
//
// A Relay owns one delivery queue and three background workers: the sender
// drains the queue, the heartbeat keeps a presence ping going, and the
// update checker looks for a newer release once per process. Their
// outcomes land on a shared Board where the last write wins.
package relay
