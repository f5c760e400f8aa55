package powersupply

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.bug.st/serial/enumerator"
)

// ListResources enumerates the serial ports exposed by the backend and
// returns one Resource per port, in enumeration order. USB ports are given
// a canonical USB-class address built from their vendor/product IDs and
// serial number; anything else keeps the raw port name as its address.
func ListResources() ([]Resource, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate serial ports")
	}

	resources := make([]Resource, 0, len(ports))
	for _, port := range ports {
		resources = append(resources, newResource(port))
	}
	return resources, nil
}

// FirstResource returns the first enumerated resource, or ErrNoResources
// when the backend reports no ports at all.
func FirstResource() (Resource, error) {
	resources, err := ListResources()
	if err != nil {
		return Resource{}, err
	}
	if len(resources) == 0 {
		return Resource{}, ErrNoResources
	}
	return resources[0], nil
}

// newResource builds a Resource from enumerated port details.
func newResource(port *enumerator.PortDetails) Resource {
	if !port.IsUSB {
		return Resource{Address: port.Name}
	}

	addr := fmt.Sprintf("USB0::0x%s::0x%s::%s::%s",
		strings.ToUpper(port.VID), strings.ToUpper(port.PID),
		port.SerialNumber, instrumentSuffix)

	r := Resource{Address: FormatAddress(addr)}
	if name, ok := LookupVendor(r.Address); ok {
		r.Vendor = name
	}
	return r
}
