// Package security derives the configuration posture report exposed by
// Engine.SecurityReport.
//
// # What this package must NOT do
//
//   - Import goPasswordless. Callers copy the relevant settings into
//     [ReportInput].
package security
