// Package config loads the server configuration from defaults, a .env file,
// BLAGAJNA_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the resolved server configuration.
type Config struct {
	DBPath    string
	Addr      string
	AdminUser string
	LogPath   string
	Location  *time.Location
	TokenTTL  time.Duration
}

// ErrHelp is returned when -h or -help was requested.
var ErrHelp = flag.ErrHelp

const usage = `Usage: blagajna [flags]

Flags:
  -d, -db <path>          SQLite database path (default: blagajna.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: Admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -tz <zone>              time zone for report days and months (default: Local)
  -h, -help               show this help and exit

Every flag can also be set in the environment or a .env file as
BLAGAJNA_DB, BLAGAJNA_ADDR, BLAGAJNA_ADMIN, BLAGAJNA_LOG, BLAGAJNA_TIMEZONE
and BLAGAJNA_TOKEN_TTL.
`

// Load resolves the configuration. envFile is read if it exists; args are
// the command-line arguments without the program name. Usage goes to out.
func Load(envFile string, args []string, out io.Writer) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetDefault("db", "blagajna.sqlite3")
	v.SetDefault("addr", ":8080")
	v.SetDefault("admin", "Admin")
	v.SetDefault("log", "")
	v.SetDefault("timezone", "Local")
	v.SetDefault("token_ttl", "168h")
	v.SetEnvPrefix("blagajna")
	v.AutomaticEnv()

	flags := flag.NewFlagSet("blagajna", flag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() { fmt.Fprint(out, usage) }

	// Short and long forms write to the same variable; defaults come from viper.
	var dbPath, addr, admin, logPath, tz string
	flags.StringVar(&dbPath, "db", "", "")
	flags.StringVar(&dbPath, "d", "", "")
	flags.StringVar(&addr, "addr", "", "")
	flags.StringVar(&addr, "a", "", "")
	flags.StringVar(&admin, "user", "", "")
	flags.StringVar(&admin, "u", "", "")
	flags.StringVar(&logPath, "log", "", "")
	flags.StringVar(&logPath, "l", "", "")
	flags.StringVar(&tz, "tz", "", "")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		flags.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", flags.Arg(0))
	}

	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db", "d":
			v.Set("db", dbPath)
		case "addr", "a":
			v.Set("addr", addr)
		case "user", "u":
			v.Set("admin", admin)
		case "log", "l":
			v.Set("log", logPath)
		case "tz":
			v.Set("timezone", tz)
		}
	})

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", v.GetString("timezone"), err)
	}

	ttl, err := time.ParseDuration(v.GetString("token_ttl"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid token lifetime %q", v.GetString("token_ttl"))
	}

	cfg := &Config{
		DBPath:    v.GetString("db"),
		Addr:      v.GetString("addr"),
		AdminUser: v.GetString("admin"),
		LogPath:   v.GetString("log"),
		Location:  loc,
		TokenTTL:  ttl,
	}
	if cfg.DBPath == "" {
		return nil, errors.New("database path must not be empty")
	}
	if cfg.AdminUser == "" {
		return nil, errors.New("admin username must not be empty")
	}
	return cfg, nil
}
