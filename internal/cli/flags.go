package cli

import (
	"flag"
	"fmt"

	"github.com/araddon/dateparse"
)

// Common are the flags shared by every tool
type Common struct {
	ConfigFile  string
	ProfileFile string
	Profile     string
	Verbose     bool
	NoHistory   bool
}

// Register adds the common flags to fs.
func (c *Common) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", "", "Configuration file path")
	fs.StringVar(&c.ProfileFile, "profiles", "", "INI profile file (defaults to recon.profile_file)")
	fs.StringVar(&c.Profile, "profile", "", "Profile section to use")
	fs.BoolVar(&c.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&c.NoHistory, "no-history", false, "Do not record the run in the history database")
}

// ParseDate accepts any common date layout and returns it as YYYY-MM-DD.
func ParseDate(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("date is required")
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t.Format("2006-01-02"), nil
}
