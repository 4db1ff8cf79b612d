package tasks

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

type sun map[string]int

func (s sun) Lookup(name string) (int, bool) {
	v, ok := s[name]
	return v, ok
}

var (
	channels = []int{17, 27, 22, 23}
	today    = sun{"sunrise": 712, "sunset": 1830}
)

func TestParseLights(t *testing.T) {
	t.Parallel()
	tests := []struct {
		tok  string
		want []int
	}{
		{tok: "*", want: channels},
		{tok: "[1,3]", want: []int{17, 22}},
		{tok: "[4]", want: []int{23}},
		{tok: "2", want: []int{27}},
	}
	for _, tt := range tests {
		got, err := parseLights(tt.tok, channels)
		if err != nil {
			t.Fatalf("parseLights(%q) error: %v", tt.tok, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("parseLights(%q) = %v, want %v", tt.tok, got, tt.want)
		}
	}
}

func TestParseLightsErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		tok  string
		want error
	}{
		{tok: "[1,5]", want: ErrPorts},
		{tok: "0", want: ErrPorts},
		{tok: "9", want: ErrPorts},
		{tok: "[a]", want: ErrSyntax},
		{tok: "[1,]", want: ErrSyntax},
		{tok: "[1", want: ErrSyntax},
		{tok: "-1", want: ErrSyntax},
		{tok: "all", want: ErrSyntax},
	}
	for _, tt := range tests {
		if _, err := parseLights(tt.tok, channels); !errors.Is(err, tt.want) {
			t.Fatalf("parseLights(%q) = %v, want %v", tt.tok, err, tt.want)
		}
	}
}

func TestParseTime(t *testing.T) {
	t.Parallel()
	tests := []struct {
		tok  string
		want int
		ok   bool
	}{
		{tok: "sunset", want: 1830, ok: true},
		{tok: "sunrise", want: 712, ok: true},
		{tok: "08:00", want: 800, ok: true},
		{tok: "8:05", want: 805, ok: true},
		{tok: "00:00", want: 0, ok: true},
		{tok: "23:59", want: 2359, ok: true},
		{tok: "24:00"},
		{tok: "12:60"},
		{tok: "noon"},
		{tok: "1200"},
		{tok: "12:5"},
	}
	for _, tt := range tests {
		got, err := parseTime(tt.tok, today)
		if tt.ok {
			if err != nil || got != tt.want {
				t.Fatalf("parseTime(%q) = %d, %v; want %d", tt.tok, got, err, tt.want)
			}
			continue
		}
		if !errors.Is(err, ErrSyntax) {
			t.Fatalf("parseTime(%q) = %v, want ErrSyntax", tt.tok, err)
		}
	}
}

func TestParseDays(t *testing.T) {
	t.Parallel()
	if d, err := parseDays("*"); err != nil || d != AllDays {
		t.Fatalf("parseDays(*) = %v, %v", d, err)
	}
	d, err := parseDays("[0,1,2,3,4]")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d.Days(), []int{0, 1, 2, 3, 4}) || d.Has(5) || d.Has(6) {
		t.Fatalf("weekdays = %v", d)
	}
	if d, _ := parseDays("6"); !d.Has(6) || d.Has(0) {
		t.Fatalf("parseDays(6) = %v", d)
	}
	for _, bad := range []string{"7", "[1,9]", "10", "mon", "[]"} {
		if _, err := parseDays(bad); !errors.Is(err, ErrSyntax) {
			t.Fatalf("parseDays(%q) = %v, want ErrSyntax", bad, err)
		}
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()
	src := `
# front garden
* 08:00 sunset *

[1,2] sunset 23:30 [5,6]
   # indented comment
4 22:00 06:00 [0,1,2,3,4]
`
	got, err := Parse(strings.NewReader(src), "lights.tasks", channels, today)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Task{
		{Outputs: channels, Start: 800, End: 1830, Days: AllDays, Line: 3},
		{Outputs: []int{17, 27}, Start: 1830, End: 2330, Days: 1<<5 | 1<<6, Line: 5},
		{Outputs: []int{23}, Start: 2200, End: 600, Days: 0b11111, Line: 7},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse =\n%v\nwant\n%v", got, want)
	}
}

func TestParseFailFast(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		src   string
		line  int
		field string
		want  error
	}{
		{name: "three fields", src: "* 08:00 sunset\n", line: 1, field: "line", want: ErrSyntax},
		{name: "five fields", src: "* 08:00 sunset * extra\n", line: 1, field: "line", want: ErrSyntax},
		{name: "bad port", src: "* 08:00 09:00 *\n[1,7] 08:00 09:00 *\n", line: 2, field: "lights", want: ErrPorts},
		{name: "unknown event", src: "1 dusk 23:00 *\n", line: 1, field: "start", want: ErrSyntax},
		{name: "bad end", src: "1 10:00 later *\n", line: 1, field: "end", want: ErrSyntax},
		{name: "bad days", src: "1 10:00 11:00 [1,x]\n", line: 1, field: "days", want: ErrSyntax},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(strings.NewReader(tt.src), "f", channels, today)
			if got != nil {
				t.Fatalf("partial schedule returned: %v", got)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if pe.Line != tt.line || pe.Field != tt.field || !errors.Is(err, tt.want) {
				t.Fatalf("ParseError = %+v, want line %d field %s (%v)", pe, tt.line, tt.field, tt.want)
			}
		})
	}
}

func TestParseWithoutEphemeris(t *testing.T) {
	t.Parallel()
	if _, err := Parse(strings.NewReader("1 sunset 23:00 *"), "f", channels, nil); !errors.Is(err, ErrSyntax) {
		t.Fatalf("err = %v, want ErrSyntax", err)
	}
}

func TestAllIsRestartable(t *testing.T) {
	t.Parallel()
	seq := All([]byte("1 08:00 09:00 *\n2 10:00 11:00 *\n"), "f", channels, nil)
	count := func() int {
		n := 0
		for _, err := range seq {
			if err != nil {
				t.Fatal(err)
			}
			n++
		}
		return n
	}
	if a, b := count(), count(); a != 2 || b != 2 {
		t.Fatalf("counts = %d, %d; want 2, 2", a, b)
	}
}

func TestWeekdayOf(t *testing.T) {
	t.Parallel()
	// 2026-10-19 is a Monday.
	mon := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		if got := WeekdayOf(mon.AddDate(0, 0, i)); got != i {
			t.Fatalf("WeekdayOf(%s) = %d, want %d", mon.AddDate(0, 0, i).Weekday(), got, i)
		}
	}
}

func TestParseOverlongLine(t *testing.T) {
	t.Parallel()
	src := "1 08:00 09:00 *\n1 08:00 09:00 *" + strings.Repeat(" ", 70000) + "x\n"
	got, err := Parse(strings.NewReader(src), "f", channels, nil)
	if got != nil {
		t.Fatalf("partial schedule returned: %v", got)
	}
	var pe *ParseError
	if !errors.As(err, &pe) || !errors.Is(err, ErrSyntax) {
		t.Fatalf("err = %v, want *ParseError wrapping ErrSyntax", err)
	}
	if pe.Line != 2 || pe.Field != "line" {
		t.Fatalf("ParseError = %+v, want line 2 field line", pe)
	}
}
