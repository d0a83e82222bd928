package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/field"
	"github.com/san-kum/qmfsim/internal/integrators"
	"github.com/san-kum/qmfsim/internal/optim"
	"github.com/san-kum/qmfsim/internal/sim"
	"github.com/san-kum/qmfsim/internal/storage"
)

func savedRun(t *testing.T) (*storage.RunMetadata, map[string]*dynamo.History) {
	t.Helper()
	dev, err := field.NewDevice(field.Drive{Tag: "t", RF: 120, DC: 5, Frequency: 1.2e6, Radius: 4e-3}, []field.ZoneSpec{
		{Kind: field.KindIdeal, Span: 0.01},
	})
	require.NoError(t, err)

	s := sim.New(dev, func() dynamo.Integrator { return integrators.NewRK4() })
	s.AddMetric(func() sim.Metric { return &constMetric{} })
	species := []dynamo.Species{
		{Tag: "Ar+", Count: 12, Mass: 40 * 1.66e-27, Charge: 1.6e-19, SpreadX: 3e-3, SpreadY: 3e-3, SpreadVX: 300, Speed: 3e3},
		{Tag: "a/b[c]", Count: 2, Mass: 28 * 1.66e-27, Charge: 1.6e-19, Speed: 3e3},
	}
	results, err := s.RunCluster(context.Background(), species, sim.Config{Steps: 30, Seed: 1})
	require.NoError(t, err)

	st := storage.New(t.TempDir())
	runID, err := st.Save(storage.Run{Name: "x", Integrator: "rk4", Device: dev, Results: results})
	require.NoError(t, err)
	meta, histories, err := st.LoadAll(runID)
	require.NoError(t, err)
	return meta, histories
}

type constMetric struct{}

func (constMetric) Name() string                          { return "const" }
func (constMetric) Observe(ens *dynamo.Ensemble, t float64) {}
func (constMetric) Value() float64                        { return 7 }
func (constMetric) Reset()                                {}

func TestWriteXLSX(t *testing.T) {
	meta, histories := savedRun(t)
	path := filepath.Join(t.TempDir(), "run.xlsx")

	require.NoError(t, WriteXLSX(path, meta, histories))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "1 Ar+", "1 tracks Ar+", "2 a_b(c)", "2 tracks a_b(c)"}, f.GetSheetList())

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tag", "Count", "Mass (kg)", "Charge (C)", "Alive", "Lost", "Detected", "Transmission", "const"}, rows[0])
	assert.Equal(t, "Ar+", rows[1][0])
	assert.Equal(t, "12", rows[1][1])
	assert.Equal(t, "7", rows[1][8])

	final, err := f.GetRows("1 Ar+")
	require.NoError(t, err)
	assert.Len(t, final, 13)

	tracks, err := f.GetRows("2 tracks a_b(c)")
	require.NoError(t, err)
	assert.Len(t, tracks, 31)
	assert.Equal(t, []string{"Time", "Z0", "X0", "Y0", "Z1", "X1", "Y1"}, tracks[0])
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "1 a_b", sheetName("1 ", "a:b"))
	assert.Len(t, sheetName("1 tracks ", strings.Repeat("x", 40)), 31)
}

func TestWriteFigures(t *testing.T) {
	_, histories := savedRun(t)
	dir := t.TempDir()

	paths, err := WriteFigures(dir, "Ar+", histories["Ar+"], 1, 4e-3)
	require.NoError(t, err)
	require.Len(t, paths, 5)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Contains(t, string(data), "<svg")
	}
}

func TestWriteScanFigure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.svg")
	points := []optim.ScanPoint{{MassAMU: 46, Transmission: 0.1}, {MassAMU: 47, Transmission: 0.8}, {MassAMU: 48, Transmission: 0.2}}

	require.NoError(t, WriteScanFigure(path, points))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
