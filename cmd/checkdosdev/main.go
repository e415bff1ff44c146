// Command checkdosdev checks whether a DOS device in an Amiga memory
// image exists and has a volume mounted, and reports it as a script exit
// code: 0 mounted, 5 no disk present, 10 device not found, 20 driver not
// available. Useful for checking diskimage.device units before mounting.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	dosdev "github.com/amigactl/go-dosdev"
	"github.com/amigactl/go-dosdev/doslist"
	"github.com/amigactl/go-dosdev/status"
)

var opts struct {
	image     string
	live      bool
	driver    string
	quiet     bool
	info      bool
	mountlist bool
	debug     bool
}

var exitCode int

var rootCmd = &cobra.Command{
	Use:   "checkdosdev DEVICE",
	Short: "Check whether a DOS device in an Amiga memory image has a mounted volume",
	Long: `checkdosdev inspects the DOS device directory inside an Amiga memory
image (a raw RAM dump, optionally xz- or lz4-compressed, or a live
emulator mapping with --live) and classifies the named device.

DEVICE is a device name ("DH0", "DH0:"), a bare unit number resolved
through the driver given with --driver, or a prefix pattern with a
trailing '*' to scan every matching device.

Exit codes:
   0  device exists and has a mounted volume
   5  device exists but no disk present
  10  device not found
  20  device driver not available`,
	Example: `  checkdosdev -i a4000.mem DH0:
  checkdosdev -i a4000.mem 101
  checkdosdev -i a4000.mem 0 --driver trackdisk.device
  checkdosdev -i a4000.mem 'IHD*'
  checkdosdev -i a4000.mem --mountlist DH0`,
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&opts.image, "image", "i", os.Getenv("CHECKDOSDEV_IMAGE"),
		"Amiga memory image to inspect (default $CHECKDOSDEV_IMAGE)")
	f.BoolVar(&opts.live, "live", false, "map the image shared; it may still be written by an emulator")
	f.StringVarP(&opts.driver, "driver", "D", status.DefaultDriver, "device driver a bare unit number belongs to")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress output, report by exit code only")
	f.BoolVar(&opts.info, "info", false, "print a detailed device report instead of the status line")
	f.BoolVar(&opts.mountlist, "mountlist", false, "print a MountList stanza instead of the status line")
	f.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if exitCode == 0 {
			exitCode = status.ExitError
		}
	}
	os.Exit(exitCode)
}

func run(cmd *cobra.Command, args []string) error {
	if opts.debug {
		log.SetLevel(log.DebugLevel)
	}
	if opts.image == "" {
		exitCode = status.ExitError
		return errors.New("no memory image given (use --image or $CHECKDOSDEV_IMAGE)")
	}
	identifier := args[0]
	pattern := strings.HasSuffix(identifier, "*")
	if pattern && (opts.info || opts.mountlist) {
		exitCode = status.ExitError
		return errors.New("--info and --mountlist take a single device, not a pattern")
	}

	sys, err := openSystem()
	if err != nil {
		exitCode = status.ExitError
		return err
	}
	defer sys.Close()

	p := printer{quiet: opts.quiet}
	if pattern {
		exitCode, err = scanPattern(sys, p, identifier)
		return err
	}
	exitCode, err = checkOne(sys, p, identifier)
	return err
}

func openSystem() (*dosdev.System, error) {
	if opts.live {
		return dosdev.Map(opts.image)
	}
	return dosdev.Open(opts.image)
}

// checkOne classifies a single identifier and prints either the status
// line or, when a report switch is set and the device resolves, the
// requested report with the exit code forced to OK.
func checkOne(sys *dosdev.System, p printer, identifier string) (int, error) {
	c := &status.Classifier{Dir: sys.Dir}
	out, err := status.Check(c, sys.ProbeDriver, identifier, opts.driver)
	if err != nil {
		return status.ExitError, err
	}

	resolved := out.Classification == status.Mounted || out.Classification == status.MediaAbsent
	if (opts.info || opts.mountlist) && resolved {
		if err := report(sys, out); err != nil {
			return status.ExitError, err
		}
		return status.ExitOK, nil
	}

	if status.IsUnitNumber(identifier) {
		switch out.Classification {
		case status.NotFound:
			p.Printf("No %s found with unit %s\n", opts.driver, identifier)
			return out.Classification.ExitCode(), nil
		case status.Mounted, status.MediaAbsent:
			p.Printf("Found %s unit %s as %s:\n", opts.driver, identifier, out.Device)
		}
	}
	printStatus(p, out)
	return out.Classification.ExitCode(), nil
}

// scanPattern classifies every device matching the prefix pattern. The
// exit code is the best classification found, so scripts can ask whether
// anything with a prefix is mounted; no match at all is ERROR.
func scanPattern(sys *dosdev.System, p printer, pattern string) (int, error) {
	ok, err := sys.ProbeDriver(opts.driver)
	if err != nil || !ok {
		p.Printf("Device driver %s not available\n", opts.driver)
		return status.ExitFail, nil
	}

	c := &status.Classifier{Dir: sys.Dir}
	best := status.ExitError
	found := false
	p.Printf("Devices matching pattern %q:\n", pattern)
	err = sys.Dir.MatchPattern(pattern, func(n *doslist.DeviceNode) error {
		out, err := c.Classify(n.Name)
		if err != nil {
			return err
		}
		found = true
		p.Printf("  ")
		printStatus(p, out)
		if code := out.Classification.ExitCode(); code < best {
			best = code
		}
		return nil
	})
	if err != nil {
		return status.ExitError, err
	}
	if !found {
		p.Printf("No devices found matching pattern %q\n", pattern)
	}
	return best, nil
}

func printStatus(p printer, out *status.Outcome) {
	switch out.Classification {
	case status.Mounted:
		if out.VolumeName != "" {
			p.Printf("%s: has mounted volume %q\n", out.Device, out.VolumeName)
		} else {
			p.Printf("%s: has mounted volume\n", out.Device)
		}
	case status.MediaAbsent:
		p.Printf("%s: no disk present\n", out.Device)
	case status.NotFound:
		p.Printf("%s: device not found\n", out.Device)
	case status.DriverUnavailable:
		p.Printf("Device driver %s not available\n", opts.driver)
	}
}

// printer is the quiet switch made explicit: one value threaded to every
// print site instead of a process-wide flag.
type printer struct {
	quiet bool
}

func (p printer) Printf(format string, args ...interface{}) {
	if !p.quiet {
		fmt.Printf(format, args...)
	}
}
