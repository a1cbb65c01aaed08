package health

import (
	"regexp"
	"strings"
	"time"

	"github.com/c360/actmeter/client"
)

// Patterns for error message sanitization
var (
	httpURLRegex     = regexp.MustCompile(`https?://[^\s]+`)
	natsURLRegex     = regexp.MustCompile(`nats://[^\s]+`)
	wsURLRegex       = regexp.MustCompile(`wss?://[^\s]+`)
	unixPathRegex    = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	windowsPathRegex = regexp.MustCompile(`[A-Z]:\\[^:\s]+`)
	ipAddrRegex      = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex        = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex  = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status represents the health state of a component or system
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"` // true if status is "healthy"
	Status      string    `json:"status"`  // "healthy", "unhealthy", "degraded"
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics contains health-related metrics
type Metrics struct {
	State            string    `json:"state,omitempty"`
	ArchivedCount    int       `json:"archived_count"`
	LastEventAt      time.Time `json:"last_event_at,omitempty"`
	CurrentEncounter string    `json:"current_encounter,omitempty"`
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

// sanitizeErrorMessage removes potentially sensitive information from error
// messages before they are served:
//   - URLs (http, https, nats, ws, wss) become [URL]
//   - file paths become [PATH]
//   - IP addresses become [IP] and ports [PORT]
//   - password=X, token=X, key=X, secret=X become [REDACTED]
func sanitizeErrorMessage(err string) string {
	if err == "" {
		return ""
	}

	sanitized := err

	// Remove URLs first (before paths, as they contain paths)
	sanitized = httpURLRegex.ReplaceAllString(sanitized, "[URL]")
	sanitized = natsURLRegex.ReplaceAllString(sanitized, "[URL]")
	sanitized = wsURLRegex.ReplaceAllString(sanitized, "[URL]")

	// Remove file paths (Unix and Windows)
	sanitized = unixPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = windowsPathRegex.ReplaceAllString(sanitized, "[PATH]")

	// Remove IP addresses
	sanitized = ipAddrRegex.ReplaceAllString(sanitized, "[IP]")

	// Remove port numbers
	sanitized = portRegex.ReplaceAllString(sanitized, "[PORT]")

	// Remove potential credentials (basic patterns) - check against lowercase but replace in original case
	lowerSanitized := strings.ToLower(sanitized)
	if strings.Contains(lowerSanitized, "password") || strings.Contains(lowerSanitized, "token") ||
		strings.Contains(lowerSanitized, "key") || strings.Contains(lowerSanitized, "secret") ||
		strings.Contains(lowerSanitized, "credential") {
		sanitized = credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
	}

	return sanitized
}

// FromClient derives a status from a connection client's state. Connected
// is healthy, a failed connection is unhealthy, and anything in between is
// degraded.
func FromClient(name string, c *client.Client) Status {
	state := c.Status()

	var status Status
	switch state {
	case client.Connected:
		status = NewHealthy(name, "Connected to aggregator")
	case client.ConnectionFailed:
		message := "Connection failed"
		if err := c.LastError(); err != nil {
			message = sanitizeErrorMessage(err.Error())
		}
		status = NewUnhealthy(name, message)
	default:
		status = NewDegraded(name, "Not connected to aggregator")
	}

	metrics := &Metrics{
		State:         state.String(),
		ArchivedCount: c.History().Len(),
	}
	if ev := c.GetEvent(-1); ev != nil {
		metrics.LastEventAt = ev.Timestamp
		if ev.Encounter != nil {
			metrics.CurrentEncounter = ev.Encounter.Title
		}
	}
	return status.WithMetrics(metrics)
}
