// Package scenario replays end-to-end document-store scenarios as YAML
// fixtures: a small typed step list loaded with gopkg.in/yaml.v3 and played
// back against a driver.Store, instead of recompiling a Go test for every
// scenario.
package scenario

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/theory-cloud/firedoc/pkg/driver"
	"github.com/theory-cloud/firedoc/pkg/model"
	"github.com/theory-cloud/firedoc/pkg/txcontext"
)

// Scenario is one end-to-end fixture: a sequence of Steps run in order
// against a single model class.
type Scenario struct {
	Name    string         `yaml:"name"`
	Model   string         `yaml:"model"`
	Options map[string]any `yaml:"options"`
	Steps   []Step         `yaml:"steps"`
}

// Step is one operation plus the expectation it must satisfy. Op selects
// which txcontext call to make; exactly the fields that op needs are read.
type Step struct {
	Op     string         `yaml:"op"`
	Key    map[string]any `yaml:"key"`
	Values map[string]any `yaml:"values"`
	Field  string         `yaml:"field"`
	Delta  float64        `yaml:"delta"`
	Expect Expectation    `yaml:"expect"`
}

// Expectation describes what a Step must produce.
type Expectation struct {
	Ok               *bool          `yaml:"ok"`
	ErrorContains    string         `yaml:"error_contains"`
	ItemEquals       map[string]any `yaml:"item_equals"`
	IdentifierEquals any            `yaml:"identifier_equals"`
	IsNew            *bool          `yaml:"is_new"`
}

// LoadFile parses one scenario fixture.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("scenario: parse %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario: name is required")
	}
	if s.Model == "" {
		return nil, fmt.Errorf("scenario: model is required")
	}
	return &s, nil
}

// Registry resolves a scenario's Model name to a model.Class.
type Registry map[string]model.Class

// Run plays s against store using classes to resolve Model names. Each step
// opens its own txcontext.Run attempt, mirroring independent calling code
// rather than one long-lived transaction — scenarios are phrased as
// separate calls ("new context: get(...)").
func Run(ctx context.Context, store driver.Store, classes Registry, s *Scenario) error {
	cls, ok := classes[s.Model]
	if !ok {
		return fmt.Errorf("scenario %q: unknown model %q", s.Name, s.Model)
	}

	opts, err := txcontext.FromMap(s.Options)
	if err != nil {
		return fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	for i, step := range s.Steps {
		if err := runStep(ctx, store, cls, opts, step); err != nil {
			return fmt.Errorf("scenario %q: step %d (%s): %w", s.Name, i, step.Op, err)
		}
	}
	return nil
}

func runStep(ctx context.Context, store driver.Store, cls model.Class, opts txcontext.Options, step Step) error {
	var stepErr error
	var lastInst *model.Instance

	runErr := txcontext.Run(ctx, store, opts, func(tc *txcontext.Context) error {
		switch step.Op {
		case "create":
			data, err := model.DataOf(cls, merge(step.Key, step.Values))
			if err != nil {
				return err
			}
			inst, err := tc.Create(cls, data)
			lastInst = inst
			return err

		case "get":
			key, err := model.KeyOf(cls, step.Key)
			if err != nil {
				return err
			}
			inst, err := tc.Get(cls, key, txcontext.GetOptions{})
			lastInst = inst
			return err

		case "updateWithoutRead":
			data, err := model.DataOf(cls, merge(step.Key, step.Values))
			if err != nil {
				return err
			}
			return tc.UpdateWithoutRead(cls, data)

		case "incrementBy":
			key, err := model.KeyOf(cls, step.Key)
			if err != nil {
				return err
			}
			inst, err := tc.Get(cls, key, txcontext.GetOptions{})
			if err != nil {
				return err
			}
			f, ok := inst.Field(step.Field)
			if !ok {
				return fmt.Errorf("field %q not tracked", step.Field)
			}
			numeric, ok := f.(interface{ IncrementBy(float64) error })
			if !ok {
				return fmt.Errorf("field %q is not numeric", step.Field)
			}
			lastInst = inst
			return numeric.IncrementBy(step.Delta)

		case "delete":
			key, err := model.KeyOf(cls, step.Key)
			if err != nil {
				return err
			}
			return tc.Delete(cls, key)

		case "getTwice":
			key, err := model.KeyOf(cls, step.Key)
			if err != nil {
				return err
			}
			first, err := tc.Get(cls, key, txcontext.GetOptions{})
			if err != nil {
				return err
			}
			second, err := tc.Get(cls, key, txcontext.GetOptions{})
			if err != nil {
				return err
			}
			if first != second {
				return fmt.Errorf("repeated get returned distinct instances")
			}
			lastInst = second
			return nil

		default:
			return fmt.Errorf("unknown op %q", step.Op)
		}
	})

	stepErr = runErr
	return checkExpectation(step.Expect, lastInst, stepErr)
}

func checkExpectation(exp Expectation, inst *model.Instance, stepErr error) error {
	if exp.Ok != nil {
		if *exp.Ok && stepErr != nil {
			return fmt.Errorf("expected success, got error: %w", stepErr)
		}
		if !*exp.Ok && stepErr == nil {
			return fmt.Errorf("expected an error, got none")
		}
	}
	if exp.ErrorContains != "" {
		if stepErr == nil || !strings.Contains(stepErr.Error(), exp.ErrorContains) {
			return fmt.Errorf("expected error containing %q, got %v", exp.ErrorContains, stepErr)
		}
	}
	if stepErr != nil {
		return nil
	}

	if exp.IsNew != nil {
		if inst == nil {
			return fmt.Errorf("expected an instance to check is_new against, got none")
		}
		if inst.IsNew() != *exp.IsNew {
			return fmt.Errorf("expected isNew=%v, got %v", *exp.IsNew, inst.IsNew())
		}
	}

	if exp.IdentifierEquals != nil {
		if inst == nil {
			return fmt.Errorf("expected an instance to check identifier against, got none")
		}
		id, err := inst.Identifier()
		if err != nil {
			return err
		}
		if fmt.Sprint(id) != fmt.Sprint(exp.IdentifierEquals) {
			return fmt.Errorf("expected identifier %v, got %v", exp.IdentifierEquals, id)
		}
	}

	if exp.ItemEquals != nil {
		if inst == nil {
			return fmt.Errorf("expected an instance to check values against, got none")
		}
		for k, want := range exp.ItemEquals {
			got, err := inst.Get(k)
			if err != nil {
				return err
			}
			if fmt.Sprint(got) != fmt.Sprint(want) {
				return fmt.Errorf("attribute %q: expected %v, got %v", k, want, got)
			}
		}
	}

	return nil
}

func merge(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
