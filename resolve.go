package main

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// DeviceSet is the fixed set of devices the controller drives. It is keyed
// by address and keeps the order in which the registry listed the devices.
type DeviceSet struct {
	order  []string
	byAddr map[string]Handle
}

func newDeviceSet() *DeviceSet {
	return &DeviceSet{byAddr: make(map[string]Handle)}
}

func (s *DeviceSet) add(h Handle) bool {
	addr := h.Address()
	if _, ok := s.byAddr[addr]; ok {
		return false
	}
	s.byAddr[addr] = h
	s.order = append(s.order, addr)
	return true
}

func (s *DeviceSet) Len() int { return len(s.order) }

func (s *DeviceSet) Contains(addr string) bool {
	_, ok := s.byAddr[addr]
	return ok
}

// Devices returns the members in set order. The slice is a copy.
func (s *DeviceSet) Devices() []Handle {
	out := make([]Handle, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, s.byAddr[addr])
	}
	return out
}

// Resolve queries the registry once and returns the paired devices whose
// name contains at least one of the patterns. Matching is case-sensitive.
// Registry failures leave the set empty.
func Resolve(registry Registry, patterns []string, log logrus.FieldLogger) *DeviceSet {
	set := newDeviceSet()

	patterns = cleanPatterns(patterns, log)
	if len(patterns) == 0 {
		log.Info("no device names configured, nothing to control")
		return set
	}

	devices, err := registry.PairedDevices()
	if err != nil {
		log.WithError(err).Warn("listing paired devices failed, nothing to control")
		return set
	}
	if len(devices) == 0 {
		log.Warn("no paired devices found, nothing to control")
		return set
	}

	for _, d := range devices {
		if !matchesAny(d.Name(), patterns) {
			continue
		}
		if set.add(d) {
			log.WithFields(logrus.Fields{
				"device":  displayName(d),
				"address": d.Address(),
			}).Info("controlling device")
		}
	}

	if set.Len() == 0 {
		log.WithField("patterns", strings.Join(patterns, ", ")).Warn("no paired device matches")
	}
	return set
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// cleanPatterns drops empty and repeated patterns. An empty pattern would
// match every device.
func cleanPatterns(patterns []string, log logrus.FieldLogger) []string {
	seen := make(map[string]bool, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			log.Warn("ignoring empty device name")
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
