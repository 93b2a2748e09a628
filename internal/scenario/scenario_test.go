package scenario_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/firedoc/internal/fixtures"
	"github.com/theory-cloud/firedoc/internal/scenario"
	"github.com/theory-cloud/firedoc/pkg/memstore"
)

func TestScenarios(t *testing.T) {
	classes := scenario.Registry{
		"Order":      fixtures.Order{},
		"RaceResult": fixtures.RaceResult{},
		"Widget":     fixtures.Widget{},
		"Counter":    fixtures.Counter{},
	}

	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := scenario.LoadFile(path)
			require.NoError(t, err)

			store := memstore.New()
			err = scenario.Run(context.Background(), store, classes, s)
			require.NoError(t, err)
		})
	}
}
