package main

import (
	"github.com/spf13/cobra"

	"winfp/internal/preflight"
)

func newDiagnoseCommands(ctx *commandContext) []*cobra.Command {
	diagnose := &cobra.Command{
		Use:   "diagnose",
		Short: "Run all diagnostic levels (hardware, service, sensor)",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd)
			p.header("Windows Fingerprint Reader Diagnostics")
			ctx.warnIfNotElevated(p)
			for _, status := range preflight.CheckSystemDeps(ctx.configValue()) {
				if !status.Available {
					p.warn("%s: %s (%s)", status.Name, status.Detail, status.Description)
				}
			}
			if dir := ctx.configValue().Storage.BackupDir; dir != "" {
				p.result(preflight.CheckDirectoryAccess("Backup directory", dir))
			}
			for _, section := range preflight.RunAll(cmd.Context(), ctx.diagnosticEnv()) {
				p.section(section)
			}
			p.blank()
			p.step("Diagnostics complete.")
			return nil
		},
	}

	hardware := &cobra.Command{
		Use:   "check-hardware",
		Short: "Level 1: PnP biometric device detection via PowerShell",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := ctx.diagnosticEnv()
			newPrinter(cmd).section(preflight.CheckHardware(cmd.Context(), env.Devices))
			return nil
		},
	}

	driver := &cobra.Command{
		Use:   "check-driver",
		Short: "Level 2: biometric service status and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := ctx.diagnosticEnv()
			newPrinter(cmd).section(preflight.CheckService(env.Services, env.ServiceName))
			return nil
		},
	}

	sensor := &cobra.Command{
		Use:   "check-sensor",
		Short: "Level 3: WinBio unit enumeration and session test",
		RunE: func(cmd *cobra.Command, args []string) error {
			newPrinter(cmd).section(preflight.CheckSensor(cmd.Context(), ctx.diagnosticEnv()))
			return nil
		},
	}

	return []*cobra.Command{diagnose, hardware, driver, sensor}
}

func (c *commandContext) diagnosticEnv() preflight.Env {
	cfg := c.configValue()
	env := preflight.Env{
		Services:    c.platform.services(),
		ServiceName: cfg.Service.Name,
		Databases:   c.registryStore(),
	}
	if c.platform.inspector != nil {
		inspector := c.platform.inspector(cfg.PowerShellBinary())
		env.Devices = inspector
		env.Events = inspector
	}
	if gw, err := c.gateway(); err != nil {
		env.SensorErr = err
	} else {
		env.Sensor = gw
	}
	return env
}
