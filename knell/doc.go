// Package knell emits the end-of-life timing summary of a thread or process.
//
// A knell is rung at a lifecycle point chosen by the caller (thread exit,
// shutdown, halt) with a free-form tag. The Reporter combines the calling
// thread's own counters with a snapshot of the tracker totals into a Report
// and hands it to every configured Sink. The reporter only reads tracker
// state; where and how the report is written belongs to the sinks.
//
// Sinks provided here:
//
//	LogSink    structured zap entry per report
//	TableSink  human-readable table (olekukonko/tablewriter) on an io.Writer
//	SinkFunc   adapter for ad hoc sinks
//
// Sink errors are logged and dropped; ringing a knell never fails.
package knell
