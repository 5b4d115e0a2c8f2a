package metrics

import "time"

// Submission records the outcome of a certificate submission.
func Submission(status string) {
	if !enabled {
		return
	}
	submissionTotal.WithLabelValues(status).Inc()
}

// PinUpload records a pinning service upload.
func PinUpload(status string, d time.Duration) {
	if !enabled {
		return
	}
	pinDuration.WithLabelValues(status).Observe(d.Seconds())
}

// GasEstimate records an addSkill gas estimate.
func GasEstimate(gas uint64) {
	if !enabled {
		return
	}
	gasEstimate.Observe(float64(gas))
}

// Verification records the result variant of a verification lookup.
func Verification(result string) {
	if !enabled {
		return
	}
	verificationTotal.WithLabelValues(result).Inc()
}
