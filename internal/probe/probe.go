package probe

// Status represents the outcome of a check execution.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusUnknown  Status = "unknown"
)

// StatusFromExitCode maps a monitoring plugin exit code to a Status.
// Anything outside 0-3 is unknown.
func StatusFromExitCode(code int) Status {
	switch code {
	case 0:
		return StatusOK
	case 1:
		return StatusWarning
	case 2:
		return StatusCritical
	default:
		return StatusUnknown
	}
}

// Result is the standard output format for a check run.
type Result struct {
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Metrics map[string]any `json:"metrics,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Description is the self-description format for an active check.
type Description struct {
	Name        string    `json:"name"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description"`
	Version     string    `json:"version"`
	Service     string    `json:"service,omitempty"`
	Arguments   Arguments `json:"arguments"`
}

// Arguments describes required and optional check parameters.
type Arguments struct {
	Required map[string]ArgumentSpec `json:"required,omitempty"`
	Optional map[string]ArgumentSpec `json:"optional,omitempty"`
}

// ArgumentSpec describes a single parameter.
type ArgumentSpec struct {
	Type        string   `json:"type"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description"`
	Flag        string   `json:"flag,omitempty"`
	Legacy      []string `json:"legacy,omitempty"`
}
