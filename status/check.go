package status

import (
	"strconv"
)

// DefaultDriver is the disk-image driver a bare unit number is resolved
// against when no override is given.
const DefaultDriver = "diskimage.device"

// Probe reports whether the named driver is available at all. Open-and-
// close of unit 0 on the live machine; presence on the exec device list
// for an image.
type Probe func(driver string) (bool, error)

// IsUnitNumber reports whether the identifier is a bare unit number
// (digits only, non-empty).
func IsUnitNumber(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Check is the whole operation for one identifier: probe the driver
// first (an unavailable driver short-circuits before the directory is
// touched), resolve a bare unit number through the driver/unit query so
// the number is never treated as a name, then classify.
//
// A probe that fails internally counts as unavailable; the four-code
// contract has no slot for resource exhaustion inside the probe.
func Check(c *Classifier, probe Probe, identifier, driver string) (*Outcome, error) {
	if driver == "" {
		driver = DefaultDriver
	}
	if probe != nil {
		ok, err := probe(driver)
		if err != nil || !ok {
			return &Outcome{Classification: DriverUnavailable, Device: identifier}, nil
		}
	}

	name := identifier
	if IsUnitNumber(identifier) {
		unit, err := strconv.ParseUint(identifier, 10, 32)
		if err != nil {
			return &Outcome{Classification: NotFound, Device: identifier}, nil
		}
		node, err := c.Dir.FindByDriverUnit(driver, uint32(unit))
		if err != nil {
			return nil, err
		}
		if node == nil {
			return &Outcome{Classification: NotFound, Device: identifier}, nil
		}
		name = node.Name
	}
	return c.Classify(name)
}
