package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"winfp/internal/enroll"
	"winfp/internal/session"
	"winfp/internal/winbio"
)

// enrollProgress prints prompts and per-touch feedback.
type enrollProgress struct {
	p *printer
}

func (e enrollProgress) Prompt(sample int) {
	e.p.step("Touch the sensor (sample %d)...", sample)
}

func (e enrollProgress) Captured(res enroll.CaptureResult) {
	switch res.Kind {
	case enroll.CaptureMoreData:
		e.p.pass("Sample accepted; more samples needed")
	case enroll.CaptureBadCapture:
		e.p.warn("Bad capture (%s); touch again", res.Reject.Reason())
	case enroll.CaptureComplete:
		e.p.pass("Sample accepted; template complete")
	}
}

func newEnrollCommand(ctx *commandContext) *cobra.Command {
	var fingerFlag int
	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Enroll a new fingerprint (requires repeated touches)",
		RunE: func(cmd *cobra.Command, args []string) error {
			finger, err := parseFingerFlag(fingerFlag)
			if err != nil {
				return err
			}
			p := newPrinter(cmd)
			p.header(fmt.Sprintf("Enroll Finger %d (%s)", finger, finger.Name()))

			gw, err := ctx.gateway()
			if err != nil {
				return err
			}
			unit, err := winbio.FirstUnit(gw)
			if err != nil {
				return fmt.Errorf("resolve sensor unit: %w", err)
			}
			p.info("Sensor", fmt.Sprintf("unit %d (%s)", unit.UnitID, unit.Description))

			return ctx.withInteractiveSession(p, func(guard *session.Guard, gw winbio.Gateway) error {
				res, runErr := enroll.Run(gw, guard.Session(), finger, unit.UnitID, enroll.Options{
					MaxAttempts: ctx.configValue().Enrollment.MaxAttempts,
					Observer:    enrollProgress{p: p},
					Logger:      ctx.loggerValue(),
				})
				ctx.recordEnrollment(cmd.Context(), res, runErr)
				if runErr != nil {
					return runErr
				}
				renderEnrollResult(p, res)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&fingerFlag, "finger", 0, fingerFlagUsage)
	_ = cmd.MarkFlagRequired("finger")
	return cmd
}

func renderEnrollResult(p *printer, res enroll.Result) {
	p.blank()
	switch res.Outcome {
	case enroll.OutcomeCommitted:
		p.pass("Enrollment committed after %d sample(s)", res.Samples)
		p.info("Identity", res.Identity.String())
		p.info("New template", yesNo(res.IsNewTemplate))
	case enroll.OutcomeDuplicate:
		p.warn("This finger is already enrolled; nothing was stored")
	case enroll.OutcomeTooManyAttempts:
		p.fail("Enrollment abandoned after %d capture attempts", res.Samples)
		p.step("Clean the sensor and try again")
	}
	if len(res.Rejects) > 0 {
		p.info("Rejected samples", fmt.Sprint(len(res.Rejects)))
	}
}
