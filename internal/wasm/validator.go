package wasm

import (
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	abi "github.com/woxQAQ/wasmdemo/api/wasm"
)

// exportSignature is the expected shape of one guest export.
type exportSignature struct {
	name     string
	params   []api.ValueType
	results  []api.ValueType
	optional bool
}

var guestExports = []exportSignature{
	{
		name:    abi.ExportSize,
		params:  []api.ValueType{api.ValueTypeF64, api.ValueTypeF64},
		results: []api.ValueType{api.ValueTypeF64},
	},
	{
		name:    abi.ExportGetVersion,
		params:  []api.ValueType{},
		results: []api.ValueType{api.ValueTypeI32},
	},
	{
		name:     abi.ExportRelease,
		params:   []api.ValueType{api.ValueTypeI32},
		results:  []api.ValueType{},
		optional: true,
	},
	{
		name:     abi.ExportInitialize,
		params:   []api.ValueType{},
		results:  []api.ValueType{},
		optional: true,
	},
}

// ValidateExports returns an error if the compiled module does not export
// its memory, size and get_version with the guest ABI signatures, or exports
// release or _initialize with any other signature.
func ValidateExports(module wazero.CompiledModule) error {
	if len(module.ExportedMemories()) == 0 {
		return &SignatureError{FunctionName: "memory", Message: "module must export its linear memory"}
	}

	exported := module.ExportedFunctions()
	for _, sig := range guestExports {
		if _, ok := exported[sig.name]; !ok && sig.optional {
			continue
		}
		if err := ValidateModuleHasFunction(module, sig.name, sig.params, sig.results); err != nil {
			return err
		}
	}
	return nil
}

// ValidateModuleHasFunction returns an error if the passed module does not
// contain an exported function with the passed name, parameters and return
// values.
func ValidateModuleHasFunction(
	module wazero.CompiledModule,
	name string,
	parameters []api.ValueType,
	results []api.ValueType,
) error {
	function, ok := module.ExportedFunctions()[name]
	if !ok {
		return &FunctionNotFoundError{ModuleName: module.Name(), FunctionName: name}
	}

	if len(function.ParamTypes()) != len(parameters) {
		return &SignatureError{FunctionName: name, Message: fmt.Sprintf("should take %d parameters", len(parameters))}
	}
	for i := range parameters {
		if parameters[i] != function.ParamTypes()[i] {
			return &SignatureError{
				FunctionName: name,
				Message:      fmt.Sprintf("expected param %d to have type %s", i, api.ValueTypeName(parameters[i])),
			}
		}
	}

	if len(function.ResultTypes()) != len(results) {
		return &SignatureError{FunctionName: name, Message: fmt.Sprintf("should return %d results", len(results))}
	}
	for i := range results {
		if results[i] != function.ResultTypes()[i] {
			return &SignatureError{
				FunctionName: name,
				Message:      fmt.Sprintf("expected result %d to have type %s", i, api.ValueTypeName(results[i])),
			}
		}
	}

	return nil
}
