package health

import (
	"regexp"
	"strings"
	"time"

	"github.com/c360/mediaflow/node"
)

// Status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

var (
	urlRegex         = regexp.MustCompile(`[a-z][a-z0-9+.-]*://[^\s]+`)
	unixPathRegex    = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	windowsPathRegex = regexp.MustCompile(`[A-Z]:\\[^:\s]+`)
	ipAddrRegex      = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex        = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex  = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status represents the health state of a pipeline or task
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"` // "healthy", "unhealthy", "degraded"
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics contains run figures attached to a status
type Metrics struct {
	Uptime     time.Duration `json:"uptime"`
	Iterations int64         `json:"iterations"`
	Result     string        `json:"result,omitempty"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.Status == StatusHealthy
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.Status == StatusDegraded
}

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.Status == StatusUnhealthy
}

// WithMetrics returns a copy of the status with metrics attached
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// WithSubStatus adds a sub-status and returns a copy
func (s Status) WithSubStatus(subStatus Status) Status {
	subs := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(subs, s.SubStatuses)
	s.SubStatuses = append(subs, subStatus)
	return s
}

// sanitizeErrorMessage strips URLs, paths, addresses and credentials from an
// error before it is exposed on the health endpoint.
func sanitizeErrorMessage(err string) string {
	if err == "" {
		return ""
	}

	// URLs first, they contain paths
	sanitized := urlRegex.ReplaceAllString(err, "[URL]")
	sanitized = unixPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = windowsPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = ipAddrRegex.ReplaceAllString(sanitized, "[IP]")
	sanitized = portRegex.ReplaceAllString(sanitized, "[PORT]")

	lower := strings.ToLower(sanitized)
	for _, word := range []string{"password", "token", "key", "secret", "credential"} {
		if strings.Contains(lower, word) {
			sanitized = credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
			break
		}
	}
	return sanitized
}

// FromRun derives the status of one pipeline run.
//
// A running pipeline is healthy. A finished pipeline is healthy when its
// folded result is OK or END_OF_STREAM and unhealthy otherwise. A non-nil err
// (open or close failure) always makes it unhealthy.
func FromRun(name string, finished bool, result node.Result, err error) Status {
	var status Status
	switch {
	case err != nil:
		status = NewUnhealthy(name, sanitizeErrorMessage(err.Error()))
	case !finished:
		status = NewHealthy(name, "running")
	case result <= node.ResultEndOfStream:
		status = NewHealthy(name, "completed")
	default:
		status = NewUnhealthy(name, "stopped with "+result.String())
	}
	return status
}
