// Package fixtures declares small model classes shared by tests and the
// scenario harness, exercising the descriptor/model contract end to end.
package fixtures

import (
	"github.com/theory-cloud/firedoc/pkg/descriptor"
	"github.com/theory-cloud/firedoc/pkg/model"
)

// Order has a single string key component.
type Order struct{}

func (Order) ClassName() string { return "Order" }

func (Order) KeySchema() map[string]descriptor.Descriptor {
	return map[string]descriptor.Descriptor{
		"id": descriptor.String("").Imm(),
	}
}

func (Order) FieldSchema() map[string]descriptor.Descriptor {
	return map[string]descriptor.Descriptor{
		"product":  descriptor.String(""),
		"quantity": descriptor.Integer("min=0"),
	}
}

// RaceResult has a compound key: an integer raceID and a string runnerName.
type RaceResult struct{}

func (RaceResult) ClassName() string { return "RaceResult" }

func (RaceResult) KeySchema() map[string]descriptor.Descriptor {
	return map[string]descriptor.Descriptor{
		"raceID":     descriptor.Integer("").Imm(),
		"runnerName": descriptor.String("").Imm(),
	}
}

func (RaceResult) FieldSchema() map[string]descriptor.Descriptor {
	return map[string]descriptor.Descriptor{
		"finishSeconds": descriptor.Number("").Opt(),
	}
}

// Widget has an immutable, defaulted integer field and a required
// non-negative integer, matching the "default on fetch" scenario.
type Widget struct{}

func (Widget) ClassName() string { return "Widget" }

func (Widget) KeySchema() map[string]descriptor.Descriptor {
	return map[string]descriptor.Descriptor{
		"id": descriptor.String("").Imm(),
	}
}

func (Widget) FieldSchema() map[string]descriptor.Descriptor {
	return map[string]descriptor.Descriptor{
		"aNonNegInt":   descriptor.Integer("min=0"),
		"immutableInt": descriptor.Integer("").Imm().WithDefault(5.0),
	}
}

// Counter has a single numeric mutable field, used to exercise incrementBy
// and contention-retry scenarios.
type Counter struct{}

func (Counter) ClassName() string { return "Counter" }

func (Counter) KeySchema() map[string]descriptor.Descriptor {
	return map[string]descriptor.Descriptor{
		"id": descriptor.String("").Imm(),
	}
}

func (Counter) FieldSchema() map[string]descriptor.Descriptor {
	return map[string]descriptor.Descriptor{
		"count": descriptor.Number(""),
	}
}

var (
	_ model.Class = Order{}
	_ model.Class = RaceResult{}
	_ model.Class = Widget{}
	_ model.Class = Counter{}
)
