// Package normalize maps each upstream event shape onto the canonical Bar
// and Trade records. The mapping is pure: no I/O, and a given well-formed
// input always produces the same record. Inputs missing a required field or
// carrying a value that cannot be converted fail with a
// MalformedRecordError; the caller drops and logs the record.
package normalize
