package preflight

import (
	"context"
	"fmt"
	"os"

	"winfp/internal/config"
	"winfp/internal/deps"
)

// Status is the verdict of a single check.
type Status int

const (
	StatusPass Status = iota
	StatusFail
	StatusWarn
	// StatusInfo carries a detail line without a verdict.
	StatusInfo
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusFail:
		return "FAIL"
	case StatusWarn:
		return "WARN"
	default:
		return "INFO"
	}
}

// Result reports the outcome of a single check.
type Result struct {
	Name   string
	Status Status
	Detail string
	// Hint is a suggested next step for the operator.
	Hint string
}

// Passed reports whether the result is not a failure.
func (r Result) Passed() bool { return r.Status != StatusFail }

func pass(name, detail string) Result { return Result{Name: name, Status: StatusPass, Detail: detail} }
func fail(name, detail string) Result { return Result{Name: name, Status: StatusFail, Detail: detail} }
func info(name, detail string) Result { return Result{Name: name, Status: StatusInfo, Detail: detail} }

// Section is one diagnostic level.
type Section struct {
	Title   string
	Results []Result
}

// Failed reports whether any result in the section failed.
func (s Section) Failed() bool {
	for _, r := range s.Results {
		if !r.Passed() {
			return true
		}
	}
	return false
}

// Env holds the collaborators the checks read from.
type Env struct {
	Devices     DeviceLister
	Services    ServiceOpener
	ServiceName string
	Sensor      SensorGateway
	// SensorErr explains why Sensor is nil.
	SensorErr   error
	Events      EventSource
	Databases   DatabaseRegistry
}

// RunAll executes every diagnostic level in order.
func RunAll(ctx context.Context, env Env) []Section {
	return []Section{
		CheckHardware(ctx, env.Devices),
		CheckService(env.Services, env.ServiceName),
		CheckSensor(ctx, env),
	}
}

// CheckDirectoryAccess verifies that the directory exists and is writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fail(name, fmt.Sprintf("%s (error: does not exist)", path))
		}
		return fail(name, fmt.Sprintf("%s (error: stat: %v)", path, err))
	}
	if !info.IsDir() {
		return fail(name, fmt.Sprintf("%s (error: is not a directory)", path))
	}
	probe, err := os.CreateTemp(path, ".winfp-probe-*")
	if err != nil {
		return fail(name, fmt.Sprintf("%s (error: not writable: %v)", path, err))
	}
	probeName := probe.Name()
	_ = probe.Close()
	_ = os.Remove(probeName)
	return pass(name, fmt.Sprintf("%s (read/write ok)", path))
}

// CheckSystemDeps evaluates the external binaries diagnostics rely on.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	if cfg == nil {
		return nil
	}
	return []deps.Status{deps.CheckPowerShell(cfg.PowerShellBinary())}
}
