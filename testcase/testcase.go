// Package testcase runs scripted path queries against a built nav mesh.
//
// A test case file is line oriented:
//
//	s <sample name>
//	f <geometry file>
//	pf sx sy sz ex ey ez includeFlags excludeFlags
//	rc sx sy sz ex ey ez includeFlags excludeFlags
//
// Flags are hexadecimal. Unknown rows are ignored.
package testcase

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gorustyt/tilemesh/detour"
)

const maxPolys = 256

var (
	ErrSyntax      = errors.New("testcase: syntax error")
	ErrUnsupported = errors.New("testcase: query type not supported")
	ErrNoPoly      = errors.New("testcase: no polygon near endpoint")
	ErrNoPath      = errors.New("testcase: path not found")
)

type TestType int

const (
	TestPathfind TestType = iota
	TestRaycast
)

func (t TestType) String() string {
	if t == TestRaycast {
		return "rc"
	}
	return "pf"
}

type Test struct {
	Type         TestType
	Start, End   [3]float32
	IncludeFlags uint16
	ExcludeFlags uint16

	StartRef, EndRef    detour.DtPolyRef
	Polys               []detour.DtPolyRef
	Partial             bool
	FindNearestPolyTime time.Duration
	FindPathTime        time.Duration
	Err                 error
}

type TestCase struct {
	SampleName   string
	GeomFileName string
	Tests        []*Test
}

func Load(path string) (*TestCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tc, nil
}

func Parse(r io.Reader) (*TestCase, error) {
	tc := &TestCase{}
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		ss := strings.Fields(sc.Text())
		if len(ss) == 0 {
			continue
		}
		if err := tc.parseRow(ss); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return tc, sc.Err()
}

func (tc *TestCase) parseRow(ss []string) error {
	switch ss[0] {
	case "s":
		tc.SampleName = strings.Join(ss[1:], " ")
	case "f":
		tc.GeomFileName = strings.Join(ss[1:], " ")
	case "pf", "rc":
		test, err := parseQuery(ss[1:])
		if err != nil {
			return err
		}
		if ss[0] == "rc" {
			test.Type = TestRaycast
		}
		tc.Tests = append(tc.Tests, test)
	}
	return nil
}

func parseQuery(ss []string) (*Test, error) {
	if len(ss) != 8 {
		return nil, fmt.Errorf("%w: want 8 values, got %d", ErrSyntax, len(ss))
	}
	test := &Test{}
	for i := 0; i < 6; i++ {
		v, err := strconv.ParseFloat(ss[i], 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		if i < 3 {
			test.Start[i] = float32(v)
		} else {
			test.End[i-3] = float32(v)
		}
	}
	for i, dst := range []*uint16{&test.IncludeFlags, &test.ExcludeFlags} {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(ss[6+i]), "0x"), 16, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		*dst = uint16(v)
	}
	return test, nil
}

// Run executes every test against q and returns how many failed.
func (tc *TestCase) Run(q *detour.NavMeshQuery) int {
	failed := 0
	for _, test := range tc.Tests {
		test.run(q)
		if test.Err != nil {
			failed++
		}
	}
	return failed
}

func (t *Test) run(q *detour.NavMeshQuery) {
	t.StartRef, t.EndRef, t.Polys, t.Partial = 0, 0, nil, false
	if t.Type != TestPathfind {
		t.Err = ErrUnsupported
		return
	}
	filter := detour.NewDtQueryFilter()
	filter.SetIncludeFlags(t.IncludeFlags)
	filter.SetExcludeFlags(t.ExcludeFlags)
	ext := []float32{2, 4, 2}

	begin := time.Now()
	t.StartRef, _, _ = q.FindNearestPoly(t.Start[:], ext, filter)
	t.EndRef, _, _ = q.FindNearestPoly(t.End[:], ext, filter)
	t.FindNearestPolyTime = time.Since(begin)
	if t.StartRef == 0 || t.EndRef == 0 {
		t.Err = ErrNoPoly
		return
	}

	begin = time.Now()
	path, status := q.FindPath(t.StartRef, t.EndRef, t.Start[:], t.End[:], filter, maxPolys)
	t.FindPathTime = time.Since(begin)
	if status.Failed() || len(path) == 0 {
		t.Err = ErrNoPath
		return
	}
	t.Polys = path
	t.Partial = status.Detail(detour.DT_PARTIAL_RESULT)
	t.Err = nil
}

// Report prints one row per test.
func (tc *TestCase) Report(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTYPE\tFROM\tTO\tPOLYS\tNEAREST\tPATH\tRESULT")
	for i, t := range tc.Tests {
		result := "ok"
		switch {
		case t.Err != nil:
			result = t.Err.Error()
		case t.Partial:
			result = "partial"
		}
		fmt.Fprintf(tw, "%d\t%s\t(%.2f, %.2f, %.2f)\t(%.2f, %.2f, %.2f)\t%d\t%.3fms\t%.3fms\t%s\n",
			i, t.Type, t.Start[0], t.Start[1], t.Start[2], t.End[0], t.End[1], t.End[2],
			len(t.Polys), ms(t.FindNearestPolyTime), ms(t.FindPathTime), result)
	}
	return tw.Flush()
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
