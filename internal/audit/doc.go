// Package audit records the history of device operations in SQLite.
//
// Each orchestrated operation becomes one operation_log row: what ran,
// against which device, whether it succeeded, and where a record was
// exported. Pairing record payloads are never stored.
package audit
