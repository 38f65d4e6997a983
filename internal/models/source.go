package models

import (
	"fmt"
	"time"
)

// Region is one of the fixed set of dashboard regions. The set is static:
// clients subscribe by region name and unknown names are rejected.
type Region string

const (
	RegionUSEast      Region = "us-east"
	RegionUSWest      Region = "us-west"
	RegionEUWest      Region = "eu-west"
	RegionEUCentral   Region = "eu-central"
	RegionAPSouth     Region = "ap-south"
	RegionAPNortheast Region = "ap-northeast"
	RegionAPSoutheast Region = "ap-southeast"
	RegionSAEast      Region = "sa-east"
	RegionCACentral   Region = "ca-central"
)

var AllRegions = []Region{
	RegionUSEast,
	RegionUSWest,
	RegionEUWest,
	RegionEUCentral,
	RegionAPSouth,
	RegionAPNortheast,
	RegionAPSoutheast,
	RegionSAEast,
	RegionCACentral,
}

func ParseRegion(s string) (Region, bool) {
	for _, r := range AllRegions {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

func RegionNames() []string {
	names := make([]string, len(AllRegions))
	for i, r := range AllRegions {
		names[i] = string(r)
	}
	return names
}

// Source identifies one (provider, region) pair being polled. The set of
// sources is fixed configuration; a Source is never mutated at runtime.
type Source struct {
	Provider string        `json:"provider"`
	Region   Region        `json:"region"`
	Interval time.Duration `json:"interval"`
	URL      string        `json:"url,omitempty"`
}

// Key is the storage and scheduling identity of the source.
func (s Source) Key() string {
	return fmt.Sprintf("%s/%s", s.Provider, s.Region)
}
