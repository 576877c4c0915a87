package health

import "time"

// NewHealthy creates a new healthy status
func NewHealthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   true,
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewUnhealthy creates a new unhealthy status
func NewUnhealthy(component, message string) Status {
	return Status{
		Component: component,
		Status:    StatusUnhealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewDegraded creates a new degraded status
func NewDegraded(component, message string) Status {
	return Status{
		Component: component,
		Status:    StatusDegraded,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Aggregate creates a status by aggregating sub-statuses.
// Any unhealthy sub-status makes the aggregate unhealthy; otherwise any
// degraded one makes it degraded.
func Aggregate(component string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(component, "no pipelines")
	}

	hasUnhealthy, hasDegraded := false, false
	for _, sub := range subStatuses {
		if sub.IsUnhealthy() {
			hasUnhealthy = true
		} else if sub.IsDegraded() {
			hasDegraded = true
		}
	}

	var status Status
	switch {
	case hasUnhealthy:
		status = NewUnhealthy(component, "one or more pipelines are unhealthy")
	case hasDegraded:
		status = NewDegraded(component, "one or more pipelines are degraded")
	default:
		status = NewHealthy(component, "all pipelines are healthy")
	}

	status.SubStatuses = make([]Status, len(subStatuses))
	copy(status.SubStatuses, subStatuses)
	return status
}
