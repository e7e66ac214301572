package diffcfg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jandubois/diffcfg/internal/macros"
	"github.com/jandubois/diffcfg/internal/secret"
)

// ServiceDescription is the label of the service the check reports to.
const ServiceDescription = "Config Diff"

// HostContext is what the monitoring core knows about the monitored host.
type HostContext struct {
	Name   string
	Macros map[string]string
}

// macroTable returns the host macros with $HOSTNAME$ defaulting to Name.
func (h HostContext) macroTable() map[string]string {
	table := make(map[string]string, len(h.Macros)+1)
	for k, v := range h.Macros {
		table[k] = v
	}
	if _, ok := table[macros.HostName]; !ok && h.Name != "" {
		table[macros.HostName] = h.Name
	}
	return table
}

// Command is one invocation of the external check.
type Command struct {
	ServiceDescription string   `json:"service_description"`
	Arguments          []string `json:"arguments"`
}

// Redacted returns the arguments with every secret value masked. Arguments
// always come in flag/value pairs.
func (c *Command) Redacted() []string {
	out := make([]string, len(c.Arguments))
	copy(out, c.Arguments)
	for i := 0; i+1 < len(out); i += 2 {
		if isSecretFlag(out[i]) {
			out[i+1] = secret.Mask
		}
	}
	return out
}

// String renders the redacted command line.
func (c *Command) String() string {
	return fmt.Sprintf("%s: %s", c.ServiceDescription, strings.Join(c.Redacted(), " "))
}

// LogValue implements slog.LogValuer.
func (c *Command) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("service", c.ServiceDescription),
		slog.Any("arguments", c.Redacted()),
	)
}

// MarshalJSON writes the redacted form. Use Arguments directly to hand the
// command to a process.
func (c *Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ServiceDescription string   `json:"service_description"`
		Arguments          []string `json:"arguments"`
	}{c.ServiceDescription, c.Redacted()})
}

func isSecretFlag(arg string) bool {
	for _, f := range Fields {
		if f.Kind == KindSecret && f.Flag == arg {
			return true
		}
	}
	return false
}

// Build produces the check's command line from validated parameters.
// Secrets are unwrapped here and nowhere else; referenced secrets are looked
// up through r. Either a complete command is returned or an error.
func Build(ctx context.Context, params *ParameterSet, host HostContext, r secret.Resolver) (*Command, error) {
	if err := checkInvariants(params); err != nil {
		slog.Error("refusing to build diffcfg command", "error", err)
		return nil, err
	}

	table := host.macroTable()

	hostArg := macros.Replace(macros.HostName, table)
	if params.Host != nil {
		hostArg = *params.Host
	}

	netboxToken, err := params.NetboxToken.Unsafe(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("netbox_token: %w", err)
	}
	serverToken, err := params.ServerToken.Unsafe(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("server_token: %w", err)
	}

	args := make([]string, 0, 10+2*len(params.Ignore))
	args = append(args,
		"--host", hostArg,
		"--netbox", params.Netbox,
		"--netbox-token", netboxToken,
		"--server", macros.Replace(params.Server, table),
		"--server-token", serverToken,
	)
	for _, pattern := range params.Ignore {
		args = append(args, "--ignore", pattern)
	}

	return &Command{
		ServiceDescription: ServiceDescription,
		Arguments:          args,
	}, nil
}

// Commands returns every command for one check cycle. diffcfg always yields
// exactly one.
func Commands(ctx context.Context, params *ParameterSet, host HostContext, r secret.Resolver) ([]*Command, error) {
	cmd, err := Build(ctx, params, host, r)
	if err != nil {
		return nil, err
	}
	return []*Command{cmd}, nil
}

func checkInvariants(params *ParameterSet) error {
	if params == nil {
		return &InternalInvariantError{Reason: "no parameters"}
	}
	if params.Host != nil && *params.Host == "" {
		return &InternalInvariantError{Reason: "unvalidated parameters, empty host"}
	}
	var missing []string
	if params.Netbox == "" {
		missing = append(missing, "netbox")
	}
	if params.NetboxToken == nil || params.NetboxToken.IsEmpty() {
		missing = append(missing, "netbox_token")
	}
	if params.Server == "" {
		missing = append(missing, "server")
	}
	if params.ServerToken == nil || params.ServerToken.IsEmpty() {
		missing = append(missing, "server_token")
	}
	if len(missing) > 0 {
		return &InternalInvariantError{Reason: "unvalidated parameters, missing " + strings.Join(missing, ", ")}
	}
	return nil
}
