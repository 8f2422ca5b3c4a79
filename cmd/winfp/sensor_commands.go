package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"winfp/internal/logging"
	"winfp/internal/session"
	"winfp/internal/winbio"
)

const fingerFlagUsage = "Finger position (1-10): 1=RThumb, 2=RIndex, ... 6=LThumb, 7=LIndex, ..."

func newSensorCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newIdentifyCommand(ctx),
		newVerifyCommand(ctx),
		newListFingerprintsCommand(ctx),
		newDeleteCommand(ctx),
		newCredentialStateCommand(ctx),
		newCaptureCommand(ctx),
	}
}

// withInteractiveSession opens a focused session, runs fn and tears the
// session down on every path.
func (c *commandContext) withInteractiveSession(p *printer, fn func(*session.Guard, winbio.Gateway) error) (err error) {
	c.warnIfNotElevated(p)
	guard, gw, err := c.openSession(winbio.FlagDefault, true)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := guard.Close(); closeErr != nil {
			c.loggerValue().Warn("session teardown failed", logging.Error(closeErr))
			if err == nil {
				err = closeErr
			}
		}
	}()
	if !guard.Focused() {
		p.warn("Sensor focus not acquired; the sensor may not respond to touches")
	}
	return fn(guard, gw)
}

// identify waits for a touch. A no-match or bad capture is printed and
// reported with ok=false; other failures are returned.
func identify(p *printer, guard *session.Guard, gw winbio.Gateway) (winbio.IdentifyResult, bool, error) {
	res, err := gw.Identify(guard.Session())
	switch {
	case err == nil:
		return res, true, nil
	case winbio.HasStatus(err, winbio.StatusNoMatch):
		p.fail("No match: finger not enrolled")
		if res.Reject != 0 {
			p.info("Reject reason", res.Reject.Reason())
		}
		return res, false, nil
	case winbio.HasStatus(err, winbio.StatusBadCapture):
		p.fail("Bad capture: try again")
		p.info("Reject reason", res.Reject.Reason())
		return res, false, nil
	default:
		return res, false, err
	}
}

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "identify",
		Short: "Touch the sensor to identify the current user (blocks until touch)",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd)
			p.header("Identify (touch sensor)")
			return ctx.withInteractiveSession(p, func(guard *session.Guard, gw winbio.Gateway) error {
				p.step("Session opened. Touch the sensor now...")
				res, ok, err := identify(p, guard, gw)
				if err != nil || !ok {
					return err
				}
				p.pass("Finger identified successfully")
				p.info("Unit ID", fmt.Sprint(res.Unit))
				p.info("Finger", res.Finger.Name())
				p.info("Identity", res.Identity.String())
				return nil
			})
		},
	}
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var fingerFlag int
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify that a specific finger matches the enrolled template",
		RunE: func(cmd *cobra.Command, args []string) error {
			finger, err := parseFingerFlag(fingerFlag)
			if err != nil {
				return err
			}
			p := newPrinter(cmd)
			p.header(fmt.Sprintf("Verify Finger %d (%s)", finger, finger.Name()))
			return ctx.withInteractiveSession(p, func(guard *session.Guard, gw winbio.Gateway) error {
				p.step("Touch the sensor to identify yourself first...")
				res, ok, err := identify(p, guard, gw)
				if err != nil || !ok {
					return err
				}
				p.pass("User identified")

				p.step("Now touch with finger %d (%s) to verify...", finger, finger.Name())
				verify, err := gw.Verify(guard.Session(), res.Identity, finger)
				switch {
				case winbio.HasStatus(err, winbio.StatusNoMatch):
					p.fail("Verification failed: no match")
					if verify.Reject != 0 {
						p.info("Reject reason", verify.Reject.Reason())
					}
					return nil
				case winbio.HasStatus(err, winbio.StatusBadCapture):
					p.fail("Bad capture: try again")
					p.info("Reject reason", verify.Reject.Reason())
					return nil
				case err != nil:
					return err
				}
				if verify.Match {
					p.pass("Verification succeeded: finger matches")
				} else {
					p.fail("Verification failed: finger does not match")
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&fingerFlag, "finger", 0, fingerFlagUsage)
	_ = cmd.MarkFlagRequired("finger")
	return cmd
}

func newListFingerprintsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list-fingerprints",
		Short: "List enrolled fingerprints (touch to identify the user)",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd)
			p.header("List Enrolled Fingerprints")
			return ctx.withInteractiveSession(p, func(guard *session.Guard, gw winbio.Gateway) error {
				p.step("Touch the sensor to identify yourself...")
				res, ok, err := identify(p, guard, gw)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("cannot list enrollments without an identified user")
				}
				p.pass("User identified on sensor")
				p.info("Unit ID", fmt.Sprint(res.Unit))

				fingers, err := gw.EnumEnrollments(guard.Session(), res.Unit, res.Identity)
				if err != nil {
					return err
				}
				if len(fingers) == 0 {
					p.warn("No enrolled fingerprints found for this identity")
					return nil
				}
				p.pass("%d fingerprint(s) enrolled", len(fingers))
				rows := make([][]string, 0, len(fingers))
				for i, f := range fingers {
					rows = append(rows, []string{fmt.Sprint(i + 1), fmt.Sprint(uint8(f)), f.Name()})
				}
				p.table([]string{"#", "Finger", "Name"}, rows, []columnAlignment{alignRight, alignRight, alignLeft})
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var fingerFlag int
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the fingerprint template of a specific finger",
		RunE: func(cmd *cobra.Command, args []string) error {
			finger, err := parseFingerFlag(fingerFlag)
			if err != nil {
				return err
			}
			p := newPrinter(cmd)
			p.header(fmt.Sprintf("Delete Fingerprint: Finger %d (%s)", finger, finger.Name()))
			return ctx.withInteractiveSession(p, func(guard *session.Guard, gw winbio.Gateway) error {
				p.step("Touch the sensor to identify yourself...")
				res, ok, err := identify(p, guard, gw)
				if err != nil || !ok {
					return err
				}
				p.pass("User identified")

				p.step("Deleting finger %d (%s) from unit %d...", finger, finger.Name(), res.Unit)
				err = gw.DeleteTemplate(guard.Session(), res.Unit, res.Identity, finger)
				if err != nil {
					if status, ok := winbio.StatusOf(err); ok && status.MissingRecord() {
						p.warn("No enrollment found for that finger; nothing to delete")
						return nil
					}
					return err
				}
				p.pass("Deleted finger %d (%s)", finger, finger.Name())
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&fingerFlag, "finger", 0, "Finger position (1-10) to delete")
	_ = cmd.MarkFlagRequired("finger")
	return cmd
}

func newCredentialStateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "credential-state",
		Short: "Check whether a password credential is linked to the biometric identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd)
			p.header("Credential State Check")
			return ctx.withInteractiveSession(p, func(guard *session.Guard, gw winbio.Gateway) error {
				p.step("Touch the sensor to identify yourself...")
				res, ok, err := identify(p, guard, gw)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("cannot check credential state without an identified user")
				}
				p.pass("User identified on sensor")
				p.info("Unit ID", fmt.Sprint(res.Unit))
				p.info("Finger", res.Finger.Name())

				state, err := gw.CredentialState(res.Identity)
				if err != nil {
					return err
				}
				p.blank()
				switch state {
				case winbio.CredentialSet:
					p.pass("Password credential is set; Windows Hello sign-in should work")
				case winbio.CredentialNotSet:
					p.fail("Password credential is not set")
					p.warn("No password hash is linked to the biometric identity.")
					p.warn("This is a common cause of \"fingerprint enrolled but sign-in does not work\".")
					p.step("Try: Settings > Accounts > Sign-in options > remove and re-add the fingerprint.")
				default:
					p.info("Credential state", state.String())
				}
				return nil
			})
		},
	}
}

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "capture",
		Short: "Capture a raw fingerprint sample and display its metadata",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p := newPrinter(cmd)
			p.header("Raw Fingerprint Capture")
			ctx.warnIfNotElevated(p)

			guard, gw, err := ctx.openSession(winbio.FlagRaw, false)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := guard.Close(); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			p.step("Session opened in raw mode. Touch the sensor now...")
			sample, err := gw.CaptureSample(guard.Session())
			if err != nil {
				if winbio.HasStatus(err, winbio.StatusBadCapture) {
					p.fail("Bad capture")
					p.info("Reject reason", sample.Reject.Reason())
					return nil
				}
				if status, ok := winbio.StatusOf(err); ok {
					p.fail("Capture failed: %s", status)
					return nil
				}
				return err
			}
			p.pass("Sample captured successfully")
			p.info("Unit ID", fmt.Sprint(sample.Unit))
			p.info("Sample size (bytes)", fmt.Sprint(sample.Size))
			p.info("BIR header block", blockString(sample.Header))
			p.info("BIR standard data block", blockString(sample.Standard))
			p.info("BIR vendor data block", blockString(sample.Vendor))
			if sample.Signature.Size > 0 {
				p.info("BIR signature block", blockString(sample.Signature))
			}
			return nil
		},
	}
}

func blockString(b winbio.DataBlock) string {
	return fmt.Sprintf("offset=%d, size=%d", b.Offset, b.Size)
}
