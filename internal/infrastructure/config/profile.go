package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// ErrUnknownProfile is returned when a profile section does not exist.
var ErrUnknownProfile = errors.New("unknown profile")

// Profile is one client section of a profile file:
//
//	[gresham]
//	CLIENT = gresham
//	ENVIRONMENT = prod
//	TRACKING_FILE = s3://bucket/prod-gresham-latest-tracking.csv
//	POSITION_FILE = s3://custodian/apx/gresham/YYYYMMDD/Position.csv
//	THRESHOLD = Units=0.01,Price=0.01,Market Value=1
//
// Keys a tool does not use may be left out.
type Profile struct {
	Name               string
	Client             string `ini:"CLIENT"`
	Environment        string `ini:"ENVIRONMENT"`
	Region             string `ini:"REGION"`
	TrackingFile       string `ini:"TRACKING_FILE"`
	PositionFile       string `ini:"POSITION_FILE"`
	SecurityMasterFile string `ini:"SECURITY_MASTER_FILE"`
	USDSecurity        string `ini:"USD_SECURITY"`
	ReconFolder        string `ini:"RECON_FOLDER"`
	DataFolder         string `ini:"DATA_FOLDER"`

	Thresholds map[string]float64 `ini:"-"`
	Metrics    []string           `ini:"-"`
}

// LoadProfile reads the named section of an INI profile file.
func LoadProfile(path, name string) (*Profile, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	sec, err := file.GetSection(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q in %s", ErrUnknownProfile, name, path)
	}

	p := &Profile{Name: name}
	if err := sec.MapTo(p); err != nil {
		return nil, fmt.Errorf("profile %s: %w", name, err)
	}
	if sec.HasKey("THRESHOLD") {
		if p.Thresholds, err = ParseThresholds(sec.Key("THRESHOLD").String()); err != nil {
			return nil, fmt.Errorf("profile %s: %w", name, err)
		}
	}
	if sec.HasKey("METRICS") {
		p.Metrics = sec.Key("METRICS").Strings(",")
	}
	return p, nil
}

// ParseThresholds parses "Units=0.01,Price=0.01,Market Value=1".
func ParseThresholds(s string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, item := range strings.Split(s, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		name, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("threshold %q: expected name=value", item)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("threshold %q: %w", item, err)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}

// Require reports the first of the named settings left empty.
func (p *Profile) Require(keys ...string) error {
	values := map[string]string{
		"CLIENT":               p.Client,
		"ENVIRONMENT":          p.Environment,
		"REGION":               p.Region,
		"TRACKING_FILE":        p.TrackingFile,
		"POSITION_FILE":        p.PositionFile,
		"SECURITY_MASTER_FILE": p.SecurityMasterFile,
		"USD_SECURITY":         p.USDSecurity,
		"RECON_FOLDER":         p.ReconFolder,
		"DATA_FOLDER":          p.DataFolder,
	}
	for _, k := range keys {
		v, known := values[k]
		switch {
		case k == "THRESHOLD" && len(p.Thresholds) == 0,
			k == "METRICS" && len(p.Metrics) == 0,
			known && v == "":
			return fmt.Errorf("profile %s: %s is not set", p.Name, k)
		}
	}
	return nil
}
