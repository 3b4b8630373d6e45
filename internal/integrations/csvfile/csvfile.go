// Package csvfile reads and writes points as one "x,y" pair per line, no
// header.
package csvfile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"tourlab/internal/integrations"
	"tourlab/internal/opt"
)

// Read parses points from r. Lines that are not exactly two numbers
// separated by a comma are skipped.
func Read(r io.Reader) ([]opt.Point, error) {
	var pts []opt.Point
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if p, ok := parseLine(sc.Text()); ok {
			pts = append(pts, p)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("csv read: %w", err)
	}
	return pts, nil
}

func parseLine(line string) (opt.Point, bool) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 2 {
		return opt.Point{}, false
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return opt.Point{}, false
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return opt.Point{}, false
	}
	return opt.Point{X: x, Y: y}, true
}

// Write emits one "x,y" line per point using the shortest exact formatting.
func Write(w io.Writer, pts []opt.Point) error {
	bw := bufio.NewWriter(w)
	for _, p := range pts {
		bw.WriteString(strconv.FormatFloat(p.X, 'g', -1, 64))
		bw.WriteByte(',')
		bw.WriteString(strconv.FormatFloat(p.Y, 'g', -1, 64))
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	return nil
}

// File is a CSV file on disk usable as both source and sink.
type File struct {
	Path string
}

var (
	_ integrations.PointSource = File{}
	_ integrations.PointSink   = File{}
)

func (f File) Name() string { return "csv-file" }

func (f File) Load(ctx context.Context) ([]opt.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Read(fh)
}

func (f File) Save(ctx context.Context, pts []opt.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fh, err := os.Create(f.Path)
	if err != nil {
		return err
	}
	if err := Write(fh, pts); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
