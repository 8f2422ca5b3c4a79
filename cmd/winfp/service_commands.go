package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"winfp/internal/logging"
	"winfp/internal/svcctl"
)

var errNotElevated = errors.New("administrator privileges are required (run from an elevated prompt)")

func newServiceCommand(ctx *commandContext) *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Query or control the Windows Biometric Service",
	}
	serviceCmd.AddCommand(newServiceStatusCommand(ctx))
	serviceCmd.AddCommand(newServiceStartCommand(ctx))
	serviceCmd.AddCommand(newServiceStopCommand(ctx))
	return serviceCmd
}

// withService opens the configured service and closes it when fn returns.
func (c *commandContext) withService(access svcctl.Access, fn func(name string, svc svcctl.Service) error) error {
	name := c.configValue().Service.Name
	svc, err := c.platform.services().Open(name, access)
	if err != nil {
		return fmt.Errorf("open service %s: %w", name, err)
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			c.loggerValue().Debug("service handle close failed", logging.Error(closeErr))
		}
	}()
	return fn(name, svc)
}

func newServiceStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service state and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd)
			return ctx.withService(svcctl.AccessQuery, func(name string, svc svcctl.Service) error {
				state, err := svc.Query()
				if err != nil {
					return fmt.Errorf("query service %s: %w", name, err)
				}
				p.header(name + " Service")
				switch state.Run() {
				case svcctl.RunRunning:
					p.pass("State: %s", state)
				case svcctl.RunStopped:
					p.fail("State: %s", state)
				default:
					p.warn("State: %s", state)
				}
				cfg, err := svc.Config()
				if err != nil {
					p.warn("Could not read service configuration: %v", err)
					return nil
				}
				p.info("Display Name", orUnknownValue(cfg.DisplayName))
				p.info("Start Type", orUnknownValue(cfg.StartType))
				p.info("Binary", orUnknownValue(cfg.BinaryPath))
				p.info("Account", orUnknownValue(cfg.Account))
				return nil
			})
		},
	}
}

func newServiceStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the service and wait until it is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !ctx.isElevated() {
				return errNotElevated
			}
			p := newPrinter(cmd)
			return ctx.withService(svcctl.AccessControl, func(name string, svc svcctl.Service) error {
				p.step("Starting %s...", name)
				if err := ctx.poller().Start(cmd.Context(), svc); err != nil {
					return fmt.Errorf("start %s: %w", name, err)
				}
				p.pass("%s is running", name)
				return nil
			})
		},
	}
}

func newServiceStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the service and wait until it is stopped",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !ctx.isElevated() {
				return errNotElevated
			}
			p := newPrinter(cmd)
			return ctx.withService(svcctl.AccessControl, func(name string, svc svcctl.Service) error {
				p.step("Stopping %s...", name)
				wasRunning, err := ctx.poller().Stop(cmd.Context(), svc)
				if err != nil {
					return fmt.Errorf("stop %s: %w", name, err)
				}
				if !wasRunning {
					p.info(name, "was already stopped")
					return nil
				}
				p.pass("%s stopped", name)
				return nil
			})
		},
	}
}

func orUnknownValue(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}
