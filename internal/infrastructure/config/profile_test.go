package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profiles = `
[gresham]
CLIENT = gresham
ENVIRONMENT = prod
REGION = us-east-1
TRACKING_FILE = s3://tracking/prod-gresham-latest-tracking.csv
POSITION_FILE = s3://custodian/apx/gresham/YYYYMMDD/Position.csv
SECURITY_MASTER_FILE = s3://custodian/apx/gresham/YYYYMMDD/Security.csv
USD_SECURITY = 99999
THRESHOLD = Units=0.01, Price=0.01,Market Value=1

[summary]
RECON_FOLDER = s3://recon/gresham/
DATA_FOLDER = s3://custodian/apx/gresham/
METRICS = units, price,mv
`

func writeProfiles(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.ini")
	require.NoError(t, os.WriteFile(path, []byte(profiles), 0o644))
	return path
}

func TestLoadProfile(t *testing.T) {
	path := writeProfiles(t)

	p, err := LoadProfile(path, "gresham")

	require.NoError(t, err)
	assert.Equal(t, "gresham", p.Name)
	assert.Equal(t, "gresham", p.Client)
	assert.Equal(t, "prod", p.Environment)
	assert.Equal(t, "s3://custodian/apx/gresham/YYYYMMDD/Position.csv", p.PositionFile)
	assert.Equal(t, "99999", p.USDSecurity)
	assert.Equal(t, map[string]float64{"Units": 0.01, "Price": 0.01, "Market Value": 1}, p.Thresholds)
	assert.Empty(t, p.Metrics)
	assert.NoError(t, p.Require("CLIENT", "THRESHOLD", "USD_SECURITY"))
	assert.Error(t, p.Require("METRICS"))
}

func TestLoadProfile_SummarySection(t *testing.T) {
	p, err := LoadProfile(writeProfiles(t), "summary")

	require.NoError(t, err)
	assert.Equal(t, []string{"units", "price", "mv"}, p.Metrics)
	assert.Equal(t, "s3://recon/gresham/", p.ReconFolder)
	assert.Error(t, p.Require("RECON_FOLDER", "CLIENT"))
}

func TestLoadProfile_Errors(t *testing.T) {
	path := writeProfiles(t)

	_, err := LoadProfile(path, "missing")
	assert.ErrorIs(t, err, ErrUnknownProfile)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "none.ini"), "gresham")
	assert.Error(t, err)
}

func TestParseThresholds(t *testing.T) {
	got, err := ParseThresholds("Units=0.01,Market Value=1,")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Units": 0.01, "Market Value": 1}, got)

	_, err = ParseThresholds("Units")
	assert.Error(t, err)
	_, err = ParseThresholds("Units=abc")
	assert.Error(t, err)
}
