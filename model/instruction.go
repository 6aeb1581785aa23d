package model

type InstructionGroup string

const INSTRUCTION_GROUP_CONTROL InstructionGroup = "control"
const INSTRUCTION_GROUP_MODEL InstructionGroup = "model"

// Instruction describes a node type. It is static and never persisted.
type Instruction struct {
	Type        string              `json:"type"`
	Group       InstructionGroup    `json:"group"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Branching   bool                `json:"branching"`
	Options     []InstructionOption `json:"options,omitempty"`
}

// InstructionOption is a named config preset picked when a node is created.
type InstructionOption struct {
	Key   string         `json:"key"`
	Label string         `json:"label"`
	Value map[string]any `json:"value"`
}

func (i Instruction) Option(key string) (InstructionOption, bool) {
	for _, opt := range i.Options {
		if opt.Key == key {
			return opt, true
		}
	}
	return InstructionOption{}, false
}

type InstructionGroupInfo struct {
	Group        InstructionGroup `json:"group"`
	Title        string           `json:"title"`
	Instructions []Instruction    `json:"instructions"`
}
