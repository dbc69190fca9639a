package descriptions

import (
	"strings"
	"unicode"
)

// interfaceAliases maps lower-case interface type prefixes, abbreviated or
// not, to one canonical spelling.
var interfaceAliases = map[string]string{
	"fa":                     "fastethernet",
	"fastethernet":           "fastethernet",
	"gi":                     "gigabitethernet",
	"gigabitethernet":        "gigabitethernet",
	"tw":                     "twogigabitethernet",
	"twogigabitethernet":     "twogigabitethernet",
	"te":                     "tengigabitethernet",
	"tengigabitethernet":     "tengigabitethernet",
	"twe":                    "twentyfivegige",
	"twentyfivegige":         "twentyfivegige",
	"fo":                     "fortygigabitethernet",
	"fortygigabitethernet":   "fortygigabitethernet",
	"hu":                     "hundredgige",
	"hundredgige":            "hundredgige",
	"hundredgigabitethernet": "hundredgige",
	"eth":                    "ethernet",
	"ethernet":               "ethernet",
	"po":                     "port-channel",
	"port-channel":           "port-channel",
	"portchannel":            "port-channel",
	"vl":                     "vlan",
	"vlan":                   "vlan",
	"lo":                     "loopback",
	"loopback":               "loopback",
	"tu":                     "tunnel",
	"tunnel":                 "tunnel",
	"mgmt":                   "mgmt",
}

// interfaceKey returns a comparison key for an interface name so that
// "Gi0/1", "gi0/1" and "GigabitEthernet0/1" are the same interface.
func interfaceKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	i := strings.IndexFunc(name, func(r rune) bool {
		return unicode.IsDigit(r)
	})
	if i <= 0 {
		return name
	}
	prefix, rest := name[:i], name[i:]
	if canonical, ok := interfaceAliases[strings.TrimSpace(prefix)]; ok {
		return canonical + rest
	}
	return name
}

// ParseDescriptions reads "show interfaces description" (IOS) or
// "show interface description" (NX-OS) output and returns the current
// description per interface, keyed by the name the device printed.
// Output without a recognisable header yields nil.
func ParseDescriptions(output string) map[string]string {
	lines := strings.Split(strings.ReplaceAll(output, "\r", ""), "\n")

	col := -1
	var result map[string]string
	for _, line := range lines {
		if col < 0 {
			if idx := strings.Index(line, "Description"); idx > 0 && isHeader(line) {
				col = idx
				result = make(map[string]string)
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.Trim(trimmed, "-") == "" {
			continue
		}
		if isHeader(line) {
			// NX-OS prints one table per interface type.
			if idx := strings.Index(line, "Description"); idx > 0 {
				col = idx
			}
			continue
		}

		fields := strings.Fields(line)
		desc := ""
		if len(line) > col {
			desc = strings.TrimSpace(line[col:])
		}
		if desc == "--" {
			desc = ""
		}
		result[fields[0]] = desc
	}
	return result
}

func isHeader(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "Interface", "Port":
		return strings.Contains(line, "Description")
	}
	return false
}
