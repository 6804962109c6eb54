package calendar

import (
	"fmt"
	"strings"
)

// Property identifies an editable calendar field.
type Property int

const (
	PropertyUnknown Property = iota
	PropertyName
	PropertyTimezone
)

var propertyNames = map[Property]string{
	PropertyName:     "name",
	PropertyTimezone: "timezone",
}

// String returns the command-layer name of the property.
func (p Property) String() string {
	if name, ok := propertyNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParseProperty resolves a calendar property name, case-insensitively.
func ParseProperty(name string) (Property, error) {
	for prop, propName := range propertyNames {
		if strings.EqualFold(name, propName) {
			return prop, nil
		}
	}
	return PropertyUnknown, fmt.Errorf("unknown calendar property %q", name)
}

// EditableProperties lists the properties a calendar edit may change.
func EditableProperties() []Property {
	return []Property{PropertyName, PropertyTimezone}
}
