package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/moneo/internal/flagx"
)

// Flags holds the raw command-line values registered by BindFlags.
type Flags struct {
	ConfigFile     string
	ListenAddr     string
	DatabaseDSN    string
	SigningSecret  string
	TokenMinutes   int
	AllowedOrigins string
	ProviderOrder  string
	QuoteTTL       time.Duration
}

// BindFlags registers the server flags on fs:
//
//	-c, -config string  JSON config file
//	-a string           listen address (e.g. ":8080")
//	-d string           Postgres DSN
//	-s string           token signing secret
//	-t int              token validity, minutes
//	-o string           comma-separated allowed origins
//	-p string           comma-separated provider order
//	-q duration         quote cache TTL
func BindFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ConfigFile, "config", "", "path to JSON config file")
	fs.StringVar(&f.ConfigFile, "c", "", "path to JSON config file (short)")
	fs.StringVar(&f.ListenAddr, "a", "", "address and port to run server")
	fs.StringVar(&f.DatabaseDSN, "d", "", "database DSN")
	fs.StringVar(&f.SigningSecret, "s", "", "token signing secret")
	fs.IntVar(&f.TokenMinutes, "t", 0, "token validity (in minutes)")
	fs.StringVar(&f.AllowedOrigins, "o", "", "allowed CORS origins, comma-separated")
	fs.StringVar(&f.ProviderOrder, "p", "", "quote provider preference, comma-separated")
	fs.DurationVar(&f.QuoteTTL, "q", 0, "quote cache TTL")
	return f
}

// applyFlags copies only the flags set explicitly on the command line.
func applyFlags(config *Config, fs *flag.FlagSet, f *Flags) {
	if fs == nil || f == nil {
		return
	}
	set := flagx.Visited(fs)

	if set["a"] {
		config.ListenAddr = f.ListenAddr
	}
	if set["d"] {
		config.DatabaseDSN = f.DatabaseDSN
	}
	if set["s"] {
		config.SigningSecret = f.SigningSecret
	}
	if set["t"] {
		config.TokenValidity = time.Duration(f.TokenMinutes) * time.Minute
	}
	if set["o"] {
		config.AllowedOrigins = flagx.SplitList(f.AllowedOrigins)
	}
	if set["p"] {
		config.ProviderOrder = flagx.SplitList(f.ProviderOrder)
	}
	if set["q"] {
		config.QuoteTTL = f.QuoteTTL
	}
}
