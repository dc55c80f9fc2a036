// Package queue buffers accepted messages and drains them through the
// delivery orchestrator on a schedule.
//
// The HTTP layer pushes onto a Queue and returns immediately. A Drainer,
// scheduled with robfig/cron, pops everything queued on each tick and
// submits it with at most MaxConcurrent submissions in flight. Each outcome
// is appended to a bounded result log that callers read with Results.
package queue
