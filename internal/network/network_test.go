package network

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/rdrkit/internal/tabular"
	"github.com/leapstack-labs/rdrkit/internal/testutil"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

func params(matrix string) core.RunParams {
	return core.RunParams{
		Socio: "base", ProjGroup: "01", Resil: "P1", Elasticity: -0.5,
		Hazard: "100yr", Recovery: "0", MatrixName: matrix,
	}
}

func TestBuild_Base(t *testing.T) {
	s := testutil.NewScenario(t)
	runFolder := t.TempDir()
	b := NewBuilder(s.InputDir, testutil.NewTestLogger(t))

	res, err := b.Build(context.Background(), KindBase, params(core.MatrixCar), runFolder)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(runFolder, "Group01_baserun.csv"), res.Path)
	require.Len(t, res.Links, 4)

	l := res.Links[2]
	assert.Equal(t, 3, l.LinkID)
	assert.Equal(t, 1.0, l.LinkAvailable)
	assert.Equal(t, 6000.0, l.Capacity)
	assert.Equal(t, 3.7, l.TravelTime)
	assert.Equal(t, 1.5, l.Toll)
	assert.Equal(t, DefaultAlpha, l.Alpha)
	assert.Equal(t, DefaultBeta, l.Beta)

	tbl, err := tabular.Read(res.Path, Columns...)
	require.NoError(t, err)
	assert.Equal(t, Columns, tbl.Header)
	assert.Equal(t, 4, tbl.Len())
	assert.Equal(t, "6000", tbl.Value(2, "capacity"))
}

func TestBuild_NoCarUsesAlternateColumns(t *testing.T) {
	s := testutil.NewScenario(t)
	b := NewBuilder(s.InputDir, nil)

	res, err := b.Build(context.Background(), KindBase, params(core.MatrixNoCar), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Links[2].Toll)
	assert.Equal(t, 4.0, res.Links[2].TravelTime)
}

func TestBuild_Disrupt(t *testing.T) {
	s := testutil.NewScenario(t)
	runFolder := t.TempDir()
	p := params(core.MatrixCar)

	require.NoError(t, tabular.Write(filepath.Join(runFolder, p.AvailabilityFile()),
		[]string{"link_id", "link_available"},
		[][]string{{"1", "1"}, {"2", "0.5"}, {"3", ""}},
	))
	s.WriteFile(t, "LookupTables/link_types_table.csv", testutil.Lines(
		"facility_type,alpha,beta",
		"freeway,0.2,5",
		"arterial,,6",
	))
	s.WriteFile(t, "LookupTables/TrueShape.csv", testutil.Lines(
		"link_id,WKT",
		`2,"LINESTRING (1 1, 5 1)"`,
	))

	res, err := NewBuilder(s.InputDir, nil).Build(context.Background(), KindDisrupt, p, runFolder)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(runFolder, "Group01_P1_100yr_0.csv"), res.Path)
	byID := make(map[int]Link)
	for _, l := range res.Links {
		byID[l.LinkID] = l
	}

	assert.Equal(t, 800.0, byID[2].Capacity)
	assert.Equal(t, "LINESTRING (1 1, 5 1)", byID[2].WKT)
	assert.Equal(t, DefaultAlpha, byID[2].Alpha)
	assert.Equal(t, 6.0, byID[2].Beta)

	assert.Equal(t, 0.0, byID[3].LinkAvailable, "blank availability counts as closed")
	assert.Equal(t, 0.0, byID[3].Capacity)
	assert.Equal(t, 0.2, byID[3].Alpha)
	assert.Equal(t, 5.0, byID[3].Beta)

	assert.Equal(t, MissingAvailability, byID[4].LinkAvailable)
	assert.Empty(t, byID[4].WKT)
}

func TestBuild_DisruptNoMatches(t *testing.T) {
	s := testutil.NewScenario(t)
	runFolder := t.TempDir()
	p := params(core.MatrixCar)
	require.NoError(t, tabular.Write(filepath.Join(runFolder, p.AvailabilityFile()),
		[]string{"link_id", "link_available"}, [][]string{{"99", "1"}}))

	_, err := NewBuilder(s.InputDir, nil).Build(context.Background(), KindDisrupt, p, runFolder)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matched no network links")
}

func TestBuild_Errors(t *testing.T) {
	t.Run("missing availability", func(t *testing.T) {
		s := testutil.NewScenario(t)
		_, err := NewBuilder(s.InputDir, nil).Build(context.Background(), KindDisrupt, params(core.MatrixCar), t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "link availability file not found")
	})

	t.Run("missing network", func(t *testing.T) {
		s := testutil.NewScenario(t)
		s.Remove(t, "Networks/base01.csv")
		_, err := NewBuilder(s.InputDir, nil).Build(context.Background(), KindBase, params(core.MatrixCar), t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "network file not found")
	})

	t.Run("missing column", func(t *testing.T) {
		s := testutil.NewScenario(t)
		s.WriteFile(t, "Networks/base01.csv", testutil.Lines(
			"link_id,from_node_id,to_node_id,directed,length,facility_type,capacity,free_speed,lanes,allowed_uses,toll",
			"1,1,3,1,0.5,connector,9999,25,1,c,0",
		))
		_, err := NewBuilder(s.InputDir, nil).Build(context.Background(), KindBase, params(core.MatrixCar), t.TempDir())
		var mc *tabular.MissingColumnsError
		require.ErrorAs(t, err, &mc)
		assert.Equal(t, []string{"travel_time"}, mc.Columns)
	})

	t.Run("bad matrix", func(t *testing.T) {
		s := testutil.NewScenario(t)
		_, err := NewBuilder(s.InputDir, nil).Build(context.Background(), KindBase, params("truck"), t.TempDir())
		require.Error(t, err)
	})
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("disrupt")
	require.NoError(t, err)
	assert.Equal(t, KindDisrupt, k)

	_, err = ParseKind("future")
	assert.Error(t, err)
}

func TestOutputName(t *testing.T) {
	p := params(core.MatrixCar)
	assert.Equal(t, "Group01_baserun.csv", OutputName(KindBase, p))
	assert.Equal(t, "Group01_P1_100yr_0.csv", OutputName(KindDisrupt, p))
	assert.Equal(t, filepath.Join("in", "Networks", "base01.csv"), InputFile("in", p))
}
