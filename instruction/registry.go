package instruction

import (
	"fmt"

	api "github.com/mohitkumar/flowcanvas/api/v1"
	"github.com/mohitkumar/flowcanvas/model"
)

// ConfigValidator checks a node config for one instruction type.
type ConfigValidator func(config map[string]any) error

type Definition struct {
	model.Instruction
	Validator ConfigValidator
}

type GroupInfo struct {
	Group model.InstructionGroup
	Title string
}

var DefaultGroups = []GroupInfo{
	{Group: model.INSTRUCTION_GROUP_CONTROL, Title: "Flow control"},
	{Group: model.INSTRUCTION_GROUP_MODEL, Title: "Collection operations"},
}

// Registry is the catalog of instruction types. It is filled by NewRegistry
// and only read afterwards, so it is safe to share between goroutines.
type Registry struct {
	order       []string
	definitions map[string]Definition
	groups      []GroupInfo
}

func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		definitions: make(map[string]Definition, len(defs)),
		groups:      DefaultGroups,
	}
	for _, def := range defs {
		if len(def.Type) == 0 {
			return nil, fmt.Errorf("instruction type can not be empty")
		}
		if _, ok := r.definitions[def.Type]; ok {
			return nil, fmt.Errorf("instruction %s is registered twice", def.Type)
		}
		seen := make(map[string]bool, len(def.Options))
		for _, opt := range def.Options {
			if seen[opt.Key] {
				return nil, fmt.Errorf("instruction %s declares option %s twice", def.Type, opt.Key)
			}
			seen[opt.Key] = true
		}
		r.definitions[def.Type] = def
		r.order = append(r.order, def.Type)
	}
	return r, nil
}

func (r *Registry) Get(instructionType string) (model.Instruction, error) {
	def, ok := r.definitions[instructionType]
	if !ok {
		return model.Instruction{}, api.InstructionNotFoundError{Type: instructionType}
	}
	return def.Instruction, nil
}

// Values returns every instruction in registration order.
func (r *Registry) Values() []model.Instruction {
	out := make([]model.Instruction, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.definitions[t].Instruction)
	}
	return out
}

// Groups returns the instructions grouped for creation menus. Groups without
// instructions are left out.
func (r *Registry) Groups() []model.InstructionGroupInfo {
	var out []model.InstructionGroupInfo
	for _, g := range r.groups {
		info := model.InstructionGroupInfo{Group: g.Group, Title: g.Title}
		for _, ins := range r.Values() {
			if ins.Group == g.Group {
				info.Instructions = append(info.Instructions, ins)
			}
		}
		if len(info.Instructions) > 0 {
			out = append(out, info)
		}
	}
	return out
}

// ResolveConfig builds the initial config of a new node: the value of the
// chosen option shallow-merged into an empty map.
func (r *Registry) ResolveConfig(instructionType string, optionKey string) (map[string]any, error) {
	ins, err := r.Get(instructionType)
	if err != nil {
		return nil, err
	}
	config := make(map[string]any)
	if len(optionKey) == 0 {
		return config, nil
	}
	opt, ok := ins.Option(optionKey)
	if !ok {
		return nil, api.InvalidOptionError{Type: instructionType, OptionKey: optionKey}
	}
	for k, v := range opt.Value {
		config[k] = v
	}
	return config, nil
}

func (r *Registry) ValidateConfig(instructionType string, config map[string]any) error {
	def, ok := r.definitions[instructionType]
	if !ok {
		return api.InstructionNotFoundError{Type: instructionType}
	}
	if def.Validator == nil {
		return nil
	}
	if err := def.Validator(config); err != nil {
		return api.InvalidConfigError{Type: instructionType, Reason: err.Error()}
	}
	return nil
}
