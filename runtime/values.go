package runtime

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-clipboard/errors"
)

// FuncInfo describes an exported core function.
type FuncInfo struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// String renders the signature, e.g. "copy(i32, i32)" or "add(i32, i32) -> i32".
func (f FuncInfo) String() string {
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteByte('(')
	b.WriteString(typeList(f.Params))
	b.WriteByte(')')
	if len(f.Results) > 0 {
		b.WriteString(" -> ")
		b.WriteString(typeList(f.Results))
	}
	return b.String()
}

func typeList(types []api.ValueType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return strings.Join(names, ", ")
}

func exportsOf(defs map[string]api.FunctionDefinition) []FuncInfo {
	out := make([]FuncInfo, 0, len(defs))
	for name, def := range defs {
		out = append(out, FuncInfo{
			Name:    name,
			Params:  def.ParamTypes(),
			Results: def.ResultTypes(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ParseArgs converts textual arguments into raw wasm values.
func ParseArgs(types []api.ValueType, args []string) ([]uint64, error) {
	if len(args) != len(types) {
		return nil, errors.InvalidInput(errors.PhaseRuntime,
			fmt.Sprintf("expected %d arguments, got %d", len(types), len(args)))
	}

	params := make([]uint64, len(args))
	for i, arg := range args {
		v, err := parseValue(types[i], strings.TrimSpace(arg))
		if err != nil {
			return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidInput, err,
				fmt.Sprintf("argument %d (%s)", i, api.ValueTypeName(types[i])))
		}
		params[i] = v
	}
	return params, nil
}

func parseValue(t api.ValueType, s string) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		// Accept both signed and unsigned spellings of a 32-bit value.
		if n, err := strconv.ParseInt(s, 0, 32); err == nil {
			return api.EncodeI32(int32(n)), nil
		}
		n, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return 0, err
		}
		return api.EncodeU32(uint32(n)), nil
	case api.ValueTypeI64:
		if n, err := strconv.ParseInt(s, 0, 64); err == nil {
			return api.EncodeI64(n), nil
		}
		return strconv.ParseUint(s, 0, 64)
	case api.ValueTypeF32:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return 0, err
		}
		return api.EncodeF32(float32(f)), nil
	case api.ValueTypeF64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return api.EncodeF64(f), nil
	default:
		return 0, fmt.Errorf("unsupported parameter type %s", api.ValueTypeName(t))
	}
}

// FormatResults renders raw wasm results for display.
func FormatResults(types []api.ValueType, results []uint64) []string {
	out := make([]string, len(results))
	for i, r := range results {
		if i >= len(types) {
			out[i] = strconv.FormatUint(r, 10)
			continue
		}
		switch types[i] {
		case api.ValueTypeI32:
			out[i] = strconv.FormatInt(int64(api.DecodeI32(r)), 10)
		case api.ValueTypeI64:
			out[i] = strconv.FormatInt(int64(r), 10)
		case api.ValueTypeF32:
			out[i] = strconv.FormatFloat(float64(api.DecodeF32(r)), 'g', -1, 32)
		case api.ValueTypeF64:
			out[i] = strconv.FormatFloat(math.Float64frombits(r), 'g', -1, 64)
		default:
			out[i] = fmt.Sprintf("0x%x", r)
		}
	}
	return out
}
