package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wagiedev/cqp-go/internal/errors"
)

// MinimumVersion is the oldest backend that supports query locks.
const MinimumVersion = "2.2.b41"

var bannerPattern = regexp.MustCompile(
	`^CQP\s+(?:\w+\s+)*([0-9]+)\.([0-9]+)(?:\.b?([0-9]+))?(?:\s+(.*))?$`,
)

// Version is the backend version negotiated from the startup banner.
type Version struct {
	Major     int
	Minor     int
	Beta      int
	BuildDate string
}

// String formats 2.x versions with a beta suffix and later versions as
// major.minor.patch.
func (v Version) String() string {
	if v.Major < 3 {
		return fmt.Sprintf("%d.%d.b%d", v.Major, v.Minor, v.Beta)
	}

	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Beta)
}

// Supported reports whether v is at least MinimumVersion.
func (v Version) Supported() bool {
	return v.Major >= 3 || (v.Major == 2 && v.Minor == 2 && v.Beta >= 41)
}

// ParseBanner parses the first line printed by the backend.
// A missing beta number is reported as 0.
func ParseBanner(line string) (Version, error) {
	line = strings.TrimRight(line, " \t\r\n")

	match := bannerPattern.FindStringSubmatch(line)
	if match == nil {
		return Version{}, &errors.HandshakeError{Banner: line}
	}

	var (
		v   Version
		err error
	)

	if v.Major, err = strconv.Atoi(match[1]); err != nil {
		return Version{}, &errors.HandshakeError{Banner: line, Err: err}
	}

	if v.Minor, err = strconv.Atoi(match[2]); err != nil {
		return Version{}, &errors.HandshakeError{Banner: line, Err: err}
	}

	if match[3] != "" {
		if v.Beta, err = strconv.Atoi(match[3]); err != nil {
			return Version{}, &errors.HandshakeError{Banner: line, Err: err}
		}
	}

	v.BuildDate = match[4]

	return v, nil
}

// CheckBanner parses line and rejects versions older than MinimumVersion.
func CheckBanner(line string) (Version, error) {
	v, err := ParseBanner(line)
	if err != nil {
		return Version{}, err
	}

	if !v.Supported() {
		return v, &errors.VersionError{Version: v.String(), Minimum: MinimumVersion}
	}

	return v, nil
}
