// Package cli implements the student-portal command line. Every invocation loads
// the persisted session of its profile the way a page load would.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"tuitionpay/backend/libs/logging"
	"tuitionpay/backend/services/student-portal/internal/app"
	"tuitionpay/backend/services/student-portal/internal/config"
	"tuitionpay/backend/services/student-portal/internal/service"
	"tuitionpay/backend/services/student-portal/internal/store"
)

var readPassword = term.ReadPassword // mockable

type usageError struct {
	msg string
}

func (e usageError) Error() string {
	return e.msg
}

func usagef(format string, args ...interface{}) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// env is what a command runs against.
type env struct {
	cfg    *config.Config
	app    *app.App
	svc    *service.PortalService
	logger *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	summary string
	// serve restores the session itself, in the background
	skipInit bool
	run      func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"serve":        {summary: "run the local JSON API", skipInit: true, run: runServe},
	"login":        {summary: "log in with email and password", run: runLogin},
	"register":     {summary: "create a student account and log in", run: runRegister},
	"logout":       {summary: "end the session", run: runLogout},
	"whoami":       {summary: "show the logged-in user", run: runWhoami},
	"billings":     {summary: "list your billings", run: runBillings},
	"cart":         {summary: "list, add or remove cart items", run: runCart},
	"checkout":     {summary: "pay a billing from the cart", run: runCheckout},
	"status":       {summary: "check the payment status of a billing", run: runStatus},
	"watch":        {summary: "wait until a billing is paid", run: runWatch},
	"transactions": {summary: "list payments started from this profile", run: runTransactions},
	"admin":        {summary: "superadmin management commands", run: runAdmin},
}

// Run executes args (without the program name) and returns the exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := run(ctx, args, stdout, stderr)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.As(err, new(usageError)):
		fmt.Fprintf(stderr, "error: %v\n\n", err)
		printUsage(stderr)
		return 2
	default:
		fmt.Fprintf(stderr, "error: %s\n", describe(err))
		return 1
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		configPath string
		profile    string
		ephemeral  bool
		logLevel   string
	)
	flags := pflag.NewFlagSet("student-portal", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	flags.StringVarP(&configPath, "config", "c", "", "path to YAML config (default $CONFIG_FILE)")
	flags.StringVarP(&profile, "profile", "p", "", "client profile; each profile keeps its own session and cart")
	flags.BoolVar(&ephemeral, "ephemeral", false, "keep the session in memory only")
	flags.StringVar(&logLevel, "log-level", "", "log level (default warn, info for serve)")
	flags.Usage = func() { printUsage(stderr) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageError{msg: err.Error()}
	}
	rest := flags.Args()
	if len(rest) == 0 {
		return usagef("missing command")
	}
	name, cmdArgs := rest[0], rest[1:]
	if name == "help" {
		printUsage(stdout)
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		return usagef("unknown command %q", name)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if profile != "" {
		cfg.Profile = profile
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if ephemeral {
		cfg.Storage.Driver = config.DriverMemory
	}

	level := logLevel
	if level == "" {
		level = cfg.Log.Level
	}
	if level == "" {
		level = "warn"
		if name == "serve" {
			level = "info"
		}
	}
	logger, err := logging.NewLogger(logging.Options{Level: level, Output: "stderr", Name: "student-portal"})
	if err != nil {
		return err
	}
	defer logger.Sync()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	e := &env{
		cfg:    cfg,
		app:    application,
		svc:    application.Service(),
		logger: logger,
		stdout: stdout,
		stderr: stderr,
	}
	if !cmd.skipInit {
		if err := application.Initialize(ctx); err != nil {
			if !errors.Is(err, store.ErrSessionCorrupted) && !errors.Is(err, store.ErrSessionExpired) {
				return err
			}
			fmt.Fprintf(stderr, "notice: %s\n", describe(err))
		}
	}
	return cmd.run(ctx, e, cmdArgs)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: student-portal [--config FILE] [--profile NAME] [--ephemeral] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-13s %s\n", name, commands[name].summary)
	}
}

// newFlags returns a subcommand flag set that reports errors as usage errors.
func newFlags(name string, e *env) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageError{msg: err.Error()}
	}
	return nil
}

func promptPassword(e *env, password string) (string, error) {
	if password != "" {
		return password, nil
	}
	if v := os.Getenv("PORTAL_PASSWORD"); v != "" {
		return v, nil
	}
	fmt.Fprint(e.stderr, "Password: ")
	pwd, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(e.stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(string(pwd), "\r\n"), nil
}
