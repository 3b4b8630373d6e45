package csvfile

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tourlab/internal/opt"
)

func TestReadSkipsMalformedLines(t *testing.T) {
	in := strings.Join([]string{
		"10,20",
		"",
		"x,y",
		"1,2,3",
		" 3 , 4 ",
		"5.5,-6.25",
		"7;8",
		"9,",
	}, "\n")
	pts, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []opt.Point{{10, 20}, {3, 4}, {5.5, -6.25}}, pts)
}

func TestReadEmpty(t *testing.T) {
	pts, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, pts)
}

func TestWriteFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []opt.Point{{1, 2}, {0.5, -3}}))
	require.Equal(t, "1,2\n0.5,-3\n", buf.String())
}

func TestFileSaveLoad(t *testing.T) {
	f := File{Path: filepath.Join(t.TempDir(), "tour.csv")}
	pts := []opt.Point{{0, 0}, {120, 45}, {33.25, 7}}
	require.NoError(t, f.Save(context.Background(), pts))

	got, err := f.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, pts, got)
	require.Equal(t, "csv-file", f.Name())
}

func TestFileLoadMissing(t *testing.T) {
	_, err := File{Path: filepath.Join(t.TempDir(), "nope.csv")}.Load(context.Background())
	require.Error(t, err)
}
