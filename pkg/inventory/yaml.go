package inventory

import (
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/ifdesc/pkg/util"
)

// yamlFile is the on-disk YAML inventory layout:
//
//	devices:
//	  - hostname: core1
//	    protocol: ssh2
//	    username: admin
type yamlFile struct {
	Devices []struct {
		Hostname string `yaml:"hostname"`
		Protocol string `yaml:"protocol"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Enable   string `yaml:"enable"`
	} `yaml:"devices"`
}

func parseYAML(r io.Reader) ([]Device, error) {
	var f yamlFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	var devices []Device
	v := &util.ValidationBuilder{}
	for i, d := range f.Devices {
		if d.Hostname == "" {
			v.AddErrorf("device %d: hostname is required", i+1)
			continue
		}
		proto, err := ParseProtocol(d.Protocol)
		if err != nil {
			v.AddErrorf("device %d (%s): %v", i+1, d.Hostname, err)
			continue
		}
		devices = append(devices, Device{
			Hostname:       d.Hostname,
			Protocol:       proto,
			Username:       d.Username,
			Password:       d.Password,
			EnablePassword: d.Enable,
		})
	}

	if err := v.Build(); err != nil {
		return nil, err
	}
	return devices, nil
}
