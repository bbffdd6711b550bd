package runtime

import (
	"context"
	"crypto/rand"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-clipboard/clipboard"
	"github.com/wippyai/wasm-clipboard/errors"
	"github.com/wippyai/wasm-clipboard/eventloop"
	"github.com/wippyai/wasm-clipboard/provider"
)

// Config holds configuration for runtime creation
type Config struct {
	// Provider is the host clipboard. nil means the host has none.
	Provider provider.Provider

	// Observer receives clipboard request events.
	Observer clipboard.Observer

	Logger *zap.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Env    map[string]string

	// ModuleName is the import module of the clipboard functions. Default "clipboard".
	ModuleName string

	// Callback is the guest allocator export. Default "get_clipboard_text_raw_callback".
	Callback string

	Args []string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// WASI instantiates wasi_snapshot_preview1 for guests that import it.
	WASI bool

	// SkipStart disables running _start on instantiation.
	SkipStart bool
}

// Runtime hosts guest modules that import the clipboard bridge.
// Runtime is not safe for concurrent use: guest calls and Drain must
// happen on one goroutine.
type Runtime struct {
	runtime wazero.Runtime
	loop    *eventloop.Loop
	adapter *clipboard.Adapter
	logger  *zap.Logger
	cfg     Config
	closed  bool
}

// New creates a runtime with the clipboard host module (and WASI when enabled)
// already registered.
func New(ctx context.Context, cfg Config) (*Runtime, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = clipboard.Logger()
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	loop := eventloop.New(eventloop.WithLogger(logger))
	opts := []clipboard.Option{clipboard.WithLogger(logger)}
	if cfg.Observer != nil {
		opts = append(opts, clipboard.WithObserver(cfg.Observer))
	}
	adapter := clipboard.New(cfg.Provider, loop, opts...)

	host := clipboard.NewHostModule(adapter)
	if cfg.ModuleName != "" {
		host.ModuleName = cfg.ModuleName
	}
	if cfg.Callback != "" {
		host.Callback = cfg.Callback
	}
	if _, err := host.Instantiate(ctx, rt); err != nil {
		return nil, multierr.Append(err, rt.Close(ctx))
	}

	if cfg.WASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
			return nil, multierr.Append(errors.Registration("wasi_snapshot_preview1", "*", err), rt.Close(ctx))
		}
	}

	name := "none"
	if cfg.Provider != nil {
		name = cfg.Provider.Name()
	}
	logger.Debug("runtime ready",
		zap.String("provider", name),
		zap.Bool("available", provider.Available(cfg.Provider)),
		zap.String("module", host.Namespace()))

	return &Runtime{
		runtime: rt,
		loop:    loop,
		adapter: adapter,
		logger:  logger,
		cfg:     cfg,
	}, nil
}

// Adapter returns the clipboard adapter shared by all instances.
func (r *Runtime) Adapter() *clipboard.Adapter {
	return r.adapter
}

// Loop returns the event loop clipboard completions are queued on.
func (r *Runtime) Loop() *eventloop.Loop {
	return r.loop
}

// Drain runs queued clipboard completions until none are in flight. A host
// read that never resolves keeps Drain waiting until ctx ends.
func (r *Runtime) Drain(ctx context.Context) error {
	return r.loop.RunUntilIdle(ctx)
}

// Poll runs the clipboard completions that are already queued and returns
// without waiting for host calls still in flight. Long-lived hosts call it
// between guest calls so one stalled read does not hold up the rest.
func (r *Runtime) Poll(ctx context.Context) (int, error) {
	return r.loop.RunReady(ctx)
}

// Compile validates and compiles a core module without instantiating it.
func (r *Runtime) Compile(ctx context.Context, wasm []byte) (*Module, error) {
	if r.closed {
		return nil, errors.Closed(errors.PhaseRuntime, "runtime")
	}
	if len(wasm) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "empty module")
	}
	compiled, err := r.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}
	return &Module{runtime: r, compiled: compiled}, nil
}

// Instantiate compiles and instantiates wasm.
func (r *Runtime) Instantiate(ctx context.Context, wasm []byte) (*Instance, error) {
	mod, err := r.Compile(ctx, wasm)
	if err != nil {
		return nil, err
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return nil, multierr.Append(err, mod.Close(ctx))
	}
	inst.ownsModule = true
	return inst, nil
}

func (r *Runtime) moduleConfig() wazero.ModuleConfig {
	mc := wazero.NewModuleConfig().
		WithName("").
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader)
	if r.cfg.SkipStart {
		mc = mc.WithStartFunctions()
	}
	if r.cfg.Stdin != nil {
		mc = mc.WithStdin(r.cfg.Stdin)
	}
	if r.cfg.Stdout != nil {
		mc = mc.WithStdout(r.cfg.Stdout)
	}
	if r.cfg.Stderr != nil {
		mc = mc.WithStderr(r.cfg.Stderr)
	}
	if len(r.cfg.Args) > 0 {
		mc = mc.WithArgs(r.cfg.Args...)
	}
	for k, v := range r.cfg.Env {
		mc = mc.WithEnv(k, v)
	}
	return mc
}

// Close discards pending completions and releases the wazero runtime.
// Instances are closed with it.
func (r *Runtime) Close(ctx context.Context) error {
	r.closed = true
	r.loop.Close()
	return r.runtime.Close(ctx)
}

// Module is a compiled guest module.
type Module struct {
	runtime  *Runtime
	compiled wazero.CompiledModule
}

// Exports lists exported functions sorted by name.
func (m *Module) Exports() []FuncInfo {
	return exportsOf(m.compiled.ExportedFunctions())
}

// ImportsClipboard reports whether the module imports any clipboard function.
func (m *Module) ImportsClipboard() bool {
	ns := m.runtime.adapterNamespace()
	for _, def := range m.compiled.ImportedFunctions() {
		if mod, _, ok := def.Import(); ok && mod == ns {
			return true
		}
	}
	return false
}

// Instantiate creates a new instance. Each instance has its own memory;
// clipboard reads complete into the instance that requested them.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	mod, err := m.runtime.runtime.InstantiateModule(ctx, m.compiled, m.runtime.moduleConfig())
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	return &Instance{module: m, mod: mod}, nil
}

// Close releases the compiled module.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

func (r *Runtime) adapterNamespace() string {
	if r.cfg.ModuleName != "" {
		return r.cfg.ModuleName
	}
	return clipboard.DefaultModuleName
}

// Instance is an instantiated guest. Instance is NOT thread-safe.
type Instance struct {
	module     *Module
	mod        api.Module
	ownsModule bool
}

// Module returns the underlying wazero module.
func (i *Instance) Module() api.Module {
	return i.mod
}

// Exports lists exported functions sorted by name.
func (i *Instance) Exports() []FuncInfo {
	return i.module.Exports()
}

// Call invokes an exported function with raw wasm values. Clipboard reads the
// guest started are not complete until the runtime is drained.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := i.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "function", name)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindTrap, err, "call "+name)
	}
	return results, nil
}

// CallArgs parses textual arguments against the export signature, calls it,
// and formats the results.
func (i *Instance) CallArgs(ctx context.Context, name string, args []string) ([]string, error) {
	def, ok := i.mod.ExportedFunctionDefinitions()[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseRuntime, "function", name)
	}
	params, err := ParseArgs(def.ParamTypes(), args)
	if err != nil {
		return nil, err
	}
	results, err := i.Call(ctx, name, params...)
	if err != nil {
		return nil, err
	}
	return FormatResults(def.ResultTypes(), results), nil
}

// Close closes the instance, and its compiled module when created by
// Runtime.Instantiate.
func (i *Instance) Close(ctx context.Context) error {
	err := i.mod.Close(ctx)
	if i.ownsModule {
		err = multierr.Append(err, i.module.Close(ctx))
	}
	return err
}
