package health

import "time"

// Status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

func newStatus(component, status, message string) Status {
	return Status{
		Component: component,
		Healthy:   status == StatusHealthy,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewHealthy creates a healthy status.
func NewHealthy(component, message string) Status {
	return newStatus(component, StatusHealthy, message)
}

// NewUnhealthy creates an unhealthy status.
func NewUnhealthy(component, message string) Status {
	return newStatus(component, StatusUnhealthy, message)
}

// NewDegraded creates a degraded status.
func NewDegraded(component, message string) Status {
	return newStatus(component, StatusDegraded, message)
}

// Aggregate rolls sub-statuses up into one: unhealthy if any part is
// unhealthy, else degraded if any part is degraded, else healthy. With no
// parts the meter has nothing to report and counts as healthy.
func Aggregate(component string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(component, "Nothing registered")
	}

	worst := StatusHealthy
	for _, sub := range subStatuses {
		switch {
		case sub.IsUnhealthy():
			worst = StatusUnhealthy
		case sub.IsDegraded() && worst == StatusHealthy:
			worst = StatusDegraded
		}
	}

	var status Status
	switch worst {
	case StatusUnhealthy:
		status = NewUnhealthy(component, "One or more parts are unhealthy")
	case StatusDegraded:
		status = NewDegraded(component, "One or more parts are degraded")
	default:
		status = NewHealthy(component, "All parts are healthy")
	}

	status.SubStatuses = append([]Status(nil), subStatuses...)
	return status
}
