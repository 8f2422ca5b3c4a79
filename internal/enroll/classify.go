package enroll

import "winfp/internal/winbio"

// CaptureKind is the class of a single capture status.
type CaptureKind int

const (
	// CaptureFailed is every status not listed below. It ends the attempt.
	CaptureFailed CaptureKind = iota
	// CaptureComplete means the template has enough samples.
	CaptureComplete
	// CaptureMoreData means the sample was accepted and another is needed.
	CaptureMoreData
	// CaptureBadCapture means the sample was rejected and should be retried.
	CaptureBadCapture
)

func (k CaptureKind) String() string {
	switch k {
	case CaptureComplete:
		return "complete"
	case CaptureMoreData:
		return "more-data"
	case CaptureBadCapture:
		return "bad-capture"
	default:
		return "failed"
	}
}

// CaptureResult keeps the raw status next to its class for diagnostics.
type CaptureResult struct {
	Kind   CaptureKind
	Status winbio.Status
	Reject winbio.RejectDetail
}

// Classify maps a raw capture status onto a CaptureKind.
func Classify(status winbio.Status, reject winbio.RejectDetail) CaptureResult {
	res := CaptureResult{Status: status}
	switch status {
	case winbio.StatusOK:
		res.Kind = CaptureComplete
	case winbio.StatusMoreData:
		res.Kind = CaptureMoreData
	case winbio.StatusBadCapture:
		res.Kind = CaptureBadCapture
		res.Reject = reject
	default:
		res.Kind = CaptureFailed
	}
	return res
}
