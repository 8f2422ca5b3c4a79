// Package enroll drives multi-sample fingerprint enrollment: begin, one
// capture per touch, then commit or discard.
//
// Every capture status is classified into exactly one CaptureKind. The two
// success codes stay distinct: StatusOK completes the template while
// StatusMoreData asks for another touch. StatusBadCapture is retried, and any
// other status discards the attempt and is returned as an error.
package enroll
