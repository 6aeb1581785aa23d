package instruction

import "github.com/mohitkumar/flowcanvas/model"

// Builtin returns the instruction catalog shipped with the server.
func Builtin() []Definition {
	return []Definition{
		{
			Instruction: model.Instruction{
				Type:  "start",
				Group: model.INSTRUCTION_GROUP_CONTROL,
				Title: "Start",
			},
		},
		{
			Instruction: model.Instruction{
				Type:  "calculate",
				Group: model.INSTRUCTION_GROUP_CONTROL,
				Title: "Calculation",
			},
			Validator: validateCalculation,
		},
		{
			Instruction: model.Instruction{
				Type:      "condition",
				Group:     model.INSTRUCTION_GROUP_CONTROL,
				Title:     "Condition",
				Branching: true,
				Options: []model.InstructionOption{
					{Key: "rejectOnFalse", Label: "Continue when true", Value: map[string]any{"rejectOnFalse": true}},
					{Key: "branch", Label: "Branch on true and false", Value: map[string]any{"rejectOnFalse": false}},
				},
			},
			Validator: validateCondition,
		},
		{
			Instruction: model.Instruction{
				Type:      "parallel",
				Group:     model.INSTRUCTION_GROUP_CONTROL,
				Title:     "Parallel branches",
				Branching: true,
				Options: []model.InstructionOption{
					{Key: "all", Label: "All succeeded", Value: map[string]any{"mode": "all"}},
					{Key: "any", Label: "Any succeeded", Value: map[string]any{"mode": "any"}},
					{Key: "race", Label: "Any finished", Value: map[string]any{"mode": "race"}},
				},
			},
			Validator: validateParallel,
		},
		{
			Instruction: model.Instruction{
				Type:  "delay",
				Group: model.INSTRUCTION_GROUP_CONTROL,
				Title: "Delay",
			},
			Validator: validateDelay,
		},
		{
			Instruction: model.Instruction{
				Type:  "end",
				Group: model.INSTRUCTION_GROUP_CONTROL,
				Title: "End",
			},
		},
		{
			Instruction: model.Instruction{
				Type:  "query",
				Group: model.INSTRUCTION_GROUP_MODEL,
				Title: "Query record",
			},
			Validator: validateCollection,
		},
		{
			Instruction: model.Instruction{
				Type:  "create",
				Group: model.INSTRUCTION_GROUP_MODEL,
				Title: "Create record",
			},
			Validator: validateCollection,
		},
		{
			Instruction: model.Instruction{
				Type:  "update",
				Group: model.INSTRUCTION_GROUP_MODEL,
				Title: "Update record",
			},
			Validator: validateCollection,
		},
		{
			Instruction: model.Instruction{
				Type:  "destroy",
				Group: model.INSTRUCTION_GROUP_MODEL,
				Title: "Delete record",
			},
			Validator: validateCollection,
		},
	}
}
