// Package notifier fans status changes out to operators.
//
// The log sink always runs inline. Extra sinks (Telegram chat, Kafka topic)
// are fed through a small queue drained by a background worker, so a slow
// or unreachable remote never delays the control loop: when the queue is
// full the event is dropped for that sink and a warning is logged.
package notifier
