// Package portlist implements the optional `list()` utility named in the
// SerialIO engine surface: enumerating serial device paths likely to be
// usable as a transport.
package portlist

import (
	"path/filepath"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// patterns are the device-path globs checked, in the style of the Linux
// enumeration in Gurux's serial driver.
var patterns = []string{
	"/dev/ttyS*",
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/ttyAMA*",
	"/dev/rfcomm*",
	"/dev/cu.*",
	"/dev/tty.*",
}

var printer = message.NewPrinter(language.AmericanEnglish)

func init() {
	message.SetString(language.AmericanEnglish, "msg.no_ports_found", "no serial ports found")
}

// List returns the sorted, de-duplicated set of device paths matching the
// known serial-device glob patterns on this host.
func List() ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, pat := range patterns {
		matches, err := filepath.Glob(pat)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ErrNoneFoundMessage returns the localized text used when List returns no
// candidates and the caller wants to surface that as an error message.
func ErrNoneFoundMessage() string {
	return printer.Sprintf("msg.no_ports_found")
}
