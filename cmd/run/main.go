package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-clipboard/clipboard"
	"github.com/wippyai/wasm-clipboard/config"
	"github.com/wippyai/wasm-clipboard/provider"
	"github.com/wippyai/wasm-clipboard/runtime"
)

type options struct {
	env          map[string]string
	wasmFile     string
	funcName     string
	providerName string
	configPath   string
	logLevel     string
	args         []string
	argv         []string
	list         bool
	interactive  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "run --wasm <file.wasm> [--func name] [--args a,b]",
		Short: "Run a WebAssembly module with host clipboard access",
		Long: `run loads a core WebAssembly module, provides the clipboard imports
get_clipboard_text_raw and set_clipboard_text_raw, calls an exported function,
and waits for any clipboard transfers the guest started.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.interactive {
				return runInteractive(opts)
			}
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.wasmFile, "wasm", "w", "", "Path to wasm module")
	f.StringVarP(&opts.funcName, "func", "f", "", "Function to call (default: _start, run, main, or the only export)")
	f.StringSliceVarP(&opts.args, "args", "a", nil, "Function arguments (comma-separated)")
	f.StringVarP(&opts.providerName, "provider", "p", "", "Clipboard provider ("+strings.Join(provider.Names(), ", ")+")")
	f.StringVar(&opts.configPath, "config", "", "Config file path (optional)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringToStringVar(&opts.env, "env", nil, "Guest environment variables (KEY=VAL,...)")
	f.StringSliceVar(&opts.argv, "argv", nil, "Guest CLI arguments (comma-separated)")
	f.BoolVarP(&opts.list, "list", "l", false, "List exported functions and exit")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "Interactive mode with TUI")
	_ = cmd.MarkFlagRequired("wasm")

	return cmd
}

// loadConfig resolves the config file, then applies flag overrides.
func loadConfig(opts options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if opts.providerName != "" {
		cfg.Provider.Name = opts.providerName
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, cfg.Validate()
}

// newRuntime builds the logger, provider and runtime described by cfg.
func newRuntime(ctx context.Context, cfg *config.Config, opts options, observer clipboard.Observer) (*runtime.Runtime, *zap.Logger, error) {
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return nil, nil, err
	}

	p, err := provider.New(cfg.Provider.Name, cfg.Provider.Settings())
	if err != nil {
		return nil, nil, err
	}
	if !provider.Available(p) {
		logger.Warn("clipboard provider unavailable, clipboard calls are no-ops",
			zap.String("provider", p.Name()))
	}

	rc := runtime.Config{
		Provider:         p,
		Observer:         observer,
		Logger:           logger,
		ModuleName:       cfg.Host.Module,
		Callback:         cfg.Host.Callback,
		MemoryLimitPages: cfg.Runtime.MemoryLimitPages,
		WASI:             cfg.Runtime.WASI,
		SkipStart:        true,
		Env:              opts.env,
		Args:             opts.argv,
	}
	// The TUI owns the terminal; guest stdio is discarded there.
	if !opts.interactive {
		rc.Stdin, rc.Stdout, rc.Stderr = os.Stdin, os.Stdout, os.Stderr
	}

	rt, err := runtime.New(ctx, rc)
	if err != nil {
		return nil, nil, err
	}
	return rt, logger, nil
}

func run(ctx context.Context, out io.Writer, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data, err := os.ReadFile(opts.wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	rt, logger, err := newRuntime(ctx, cfg, opts, nil)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	defer rt.Close(ctx)

	mod, err := rt.Compile(ctx, data)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	exports := mod.Exports()
	fmt.Fprintf(out, "Module: %s\n", opts.wasmFile)
	fmt.Fprintf(out, "Clipboard imports: %v\n", mod.ImportsClipboard())
	fmt.Fprintf(out, "\nExported functions:\n")
	for _, fn := range exports {
		fmt.Fprintf(out, "  %s\n", fn)
	}

	if opts.list {
		return nil
	}

	funcName := opts.funcName
	if funcName == "" {
		funcName = pickEntryPoint(exports)
		if funcName == "" {
			fmt.Fprintf(out, "\nNo function specified and no common entry point found.\n")
			fmt.Fprintf(out, "Use --func to specify a function to call.\n")
			return nil
		}
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer inst.Close(ctx)

	fmt.Fprintf(out, "\nCalling %s(%s)...\n", funcName, strings.Join(opts.args, ", "))
	results, err := inst.CallArgs(ctx, funcName, opts.args)
	if err != nil && !exitedCleanly(err) {
		return fmt.Errorf("call %s: %w", funcName, err)
	}
	if len(results) > 0 {
		fmt.Fprintf(out, "Result: %s\n", strings.Join(results, ", "))
	}

	if pending := rt.Loop().Pending(); pending > 0 {
		logger.Debug("waiting for clipboard transfers", zap.Int("pending", pending))
	}
	if err := rt.Drain(ctx); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}

func pickEntryPoint(exports []runtime.FuncInfo) string {
	for _, name := range []string{"_start", "run", "main"} {
		for _, fn := range exports {
			if fn.Name == name {
				return name
			}
		}
	}
	if len(exports) == 1 {
		return exports[0].Name
	}
	return ""
}

// exitedCleanly reports whether err is a WASI proc_exit with status 0.
func exitedCleanly(err error) bool {
	var exit *sys.ExitError
	return stderrors.As(err, &exit) && exit.ExitCode() == 0
}
