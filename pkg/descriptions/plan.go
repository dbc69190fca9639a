// Package descriptions updates interface descriptions on IOS and NX-OS
// devices from a description plan.
package descriptions

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/ifdesc/pkg/util"
)

// maxDescriptionLen is the IOS limit for "description" text.
const maxDescriptionLen = 240

// Plan maps devices to the descriptions their interfaces should carry.
//
//	defaults:
//	  Loopback0: "router-id"
//	devices:
//	  core1:
//	    GigabitEthernet0/1: "uplink to dist1 Gi0/48"
type Plan struct {
	Defaults map[string]string            `yaml:"defaults"`
	Devices  map[string]map[string]string `yaml:"devices"`
}

// LoadPlan reads and validates a plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan %s: %w", path, err)
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks every description can be sent as a single CLI line.
func (p *Plan) Validate() error {
	v := &util.ValidationBuilder{}
	check := func(where string, descs map[string]string) {
		for _, intf := range sortedKeys(descs) {
			desc := descs[intf]
			if strings.TrimSpace(intf) == "" {
				v.AddErrorf("%s: empty interface name", where)
				continue
			}
			v.Add(!strings.ContainsAny(desc, "\r\n"), fmt.Sprintf("%s %s: description must be a single line", where, intf))
			v.Add(len(desc) <= maxDescriptionLen, fmt.Sprintf("%s %s: description longer than %d characters", where, intf, maxDescriptionLen))
		}
	}

	check("defaults", p.Defaults)
	for _, host := range sortedKeys(p.Devices) {
		check(host, p.Devices[host])
	}
	return v.Build()
}

// For returns the merged descriptions for hostname: defaults first,
// device entries override. Hostnames match case-insensitively, and a
// fully qualified inventory name matches a short plan entry.
func (p *Plan) For(hostname string) (map[string]string, bool) {
	device, ok := p.lookup(hostname)
	if !ok {
		return nil, false
	}

	merged := make(map[string]string, len(p.Defaults)+len(device))
	for intf, desc := range p.Defaults {
		merged[intf] = desc
	}
	for intf, desc := range device {
		merged[intf] = desc
	}
	return merged, true
}

func (p *Plan) lookup(hostname string) (map[string]string, bool) {
	if d, ok := p.Devices[hostname]; ok {
		return d, true
	}
	short := hostname
	if i := strings.Index(short, "."); i > 0 {
		short = short[:i]
	}
	for name, d := range p.Devices {
		if strings.EqualFold(name, hostname) || strings.EqualFold(name, short) {
			return d, true
		}
	}
	return nil, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
