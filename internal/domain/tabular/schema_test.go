package tabular_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/inboxjobs/internal/domain/tabular"
	apperrors "github.com/target/inboxjobs/internal/errors"
)

func TestRequireColumns(t *testing.T) {
	header := []string{"Job ID", "Type", "Address"}

	require.NoError(t, tabular.RequireColumns(tabular.Results, header, []string{"Job ID", "Address"}))

	err := tabular.RequireColumns(tabular.Results, header, tabular.ResultsSchema.Columns)
	require.Error(t, err)
	assert.True(t, apperrors.IsSchema(err))
	assert.Contains(t, err.Error(), "Threads")
	assert.Contains(t, err.Error(), "Search")
	assert.NotContains(t, err.Error(), "Address,")
}

func TestRequireRowColumns(t *testing.T) {
	header := tabular.JobsSchema.Columns
	ok := tabular.Row{tabular.ColJobID: "j1", tabular.ColStatus: "queued"}
	require.NoError(t, tabular.RequireRowColumns(tabular.Jobs, header, ok))

	bad := tabular.Row{tabular.ColJobID: "j1", "Lease": "x"}
	err := tabular.RequireRowColumns(tabular.Jobs, header, ok, bad)
	require.Error(t, err)
	assert.True(t, apperrors.IsSchema(err))
	assert.Contains(t, err.Error(), "Lease")
}

func TestProject(t *testing.T) {
	header := []string{"A", "B", "C"}
	assert.Equal(t, []string{"1", "", "3"}, tabular.Project(header, tabular.Row{"A": "1", "C": "3", "D": "x"}))
}

func TestMatchesKey(t *testing.T) {
	row := tabular.Row{"Job ID": "j1", "Address": "a@x.com", "Total": "3"}
	assert.True(t, tabular.MatchesKey(row, tabular.Row{"Job ID": "j1", "Address": "a@x.com"}))
	assert.False(t, tabular.MatchesKey(row, tabular.Row{"Job ID": "j1", "Address": "b@x.com"}))
	assert.False(t, tabular.MatchesKey(row, nil))
}

func TestSchemaFor(t *testing.T) {
	s, ok := tabular.SchemaFor(tabular.Aggregated)
	require.True(t, ok)
	assert.Equal(t, []string{tabular.ColAddress}, s.Key)

	s, ok = tabular.SchemaFor(tabular.Accumulators)
	require.True(t, ok)
	assert.Equal(t, []string{tabular.ColJobID}, s.Key)

	_, ok = tabular.SchemaFor("settings")
	assert.False(t, ok)
}

func TestSchemas(t *testing.T) {
	checked := tabular.Schemas()
	require.Len(t, checked, 3)
	for _, s := range checked {
		assert.NotEqual(t, tabular.Accumulators, s.Table)
	}
	all := tabular.AllSchemas()
	require.Len(t, all, 4)
	assert.Equal(t, tabular.Accumulators, all[3].Table)
}
