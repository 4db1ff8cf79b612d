package tasks

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
)

// Parse reads a whole task file. The first bad line aborts the parse; a
// partially parsed schedule is never returned.
func Parse(r io.Reader, file string, channels []int, ephem Lookuper) ([]Task, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var out []Task
	for t, err := range All(src, file, channels, ephem) {
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// All yields the tasks of src lazily. The sequence can be ranged over any
// number of times. It stops after yielding the first error.
//
// Line format:
//
//	lights start end days
//
//	lights: "*" | "[i,j,...]" | "i"       (1-based indexes into channels)
//	start, end: ephemeris name | "HH:MM"
//	days: "*" | "[d,...]" | "d"           (0 = Monday .. 6 = Sunday)
//
// Blank lines and lines starting with '#' are skipped.
func All(src []byte, file string, channels []int, ephem Lookuper) iter.Seq2[Task, error] {
	return func(yield func(Task, error) bool) {
		sc := bufio.NewScanner(bytes.NewReader(src))
		lineNo := 0
		for sc.Scan() {
			lineNo++
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			t, err := parseLine(line, channels, ephem)
			if err != nil {
				err.File = file
				err.Line = lineNo
				yield(Task{}, err)
				return
			}
			t.Line = lineNo
			if !yield(t, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			// Only bufio.ErrTooLong can happen on an in-memory reader.
			yield(Task{}, &ParseError{
				File:  file,
				Line:  lineNo + 1,
				Field: "line",
				Err:   fmt.Errorf("%w: %v", ErrSyntax, err),
			})
		}
	}
}

func parseLine(line string, channels []int, ephem Lookuper) (Task, *ParseError) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Task{}, &ParseError{
			Field: "line",
			Value: line,
			Err:   fmt.Errorf("%w: want 4 fields (lights start end days), got %d", ErrSyntax, len(fields)),
		}
	}

	outputs, err := parseLights(fields[0], channels)
	if err != nil {
		return Task{}, &ParseError{Field: "lights", Value: fields[0], Err: err}
	}
	start, err := parseTime(fields[1], ephem)
	if err != nil {
		return Task{}, &ParseError{Field: "start", Value: fields[1], Err: err}
	}
	end, err := parseTime(fields[2], ephem)
	if err != nil {
		return Task{}, &ParseError{Field: "end", Value: fields[2], Err: err}
	}
	days, err := parseDays(fields[3])
	if err != nil {
		return Task{}, &ParseError{Field: "days", Value: fields[3], Err: err}
	}
	return Task{Outputs: outputs, Start: start, End: end, Days: days}, nil
}

func parseLights(tok string, channels []int) ([]int, error) {
	if tok == "*" {
		return append([]int(nil), channels...), nil
	}
	items, err := listItems(tok)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(items))
	for _, it := range items {
		n, err := strconv.Atoi(it)
		if err != nil || !isDigits(it) {
			return nil, fmt.Errorf("%w: light %q is not a number", ErrSyntax, it)
		}
		if n < 1 || n > len(channels) {
			return nil, fmt.Errorf("%w: light %d out of range 1..%d", ErrPorts, n, len(channels))
		}
		out = append(out, channels[n-1])
	}
	return out, nil
}

// parseTime resolves an ephemeris name first, then an HH:MM literal.
func parseTime(tok string, ephem Lookuper) (int, error) {
	if ephem != nil {
		if hhmm, ok := ephem.Lookup(tok); ok {
			return hhmm, nil
		}
	}
	hh, mm, ok := strings.Cut(tok, ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q is neither an ephemeris name nor HH:MM", ErrSyntax, tok)
	}
	if len(hh) < 1 || len(hh) > 2 || len(mm) != 2 || !isDigits(hh) || !isDigits(mm) {
		return 0, fmt.Errorf("%w: %q is not HH:MM", ErrSyntax, tok)
	}
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q is not a clock time", ErrSyntax, tok)
	}
	return h*100 + m, nil
}

func parseDays(tok string) (Weekdays, error) {
	if tok == "*" {
		return AllDays, nil
	}
	items, err := listItems(tok)
	if err != nil {
		return 0, err
	}
	var w Weekdays
	for _, it := range items {
		if len(it) != 1 || it[0] < '0' || it[0] > '6' {
			return 0, fmt.Errorf("%w: weekday %q not in 0..6", ErrSyntax, it)
		}
		w |= 1 << uint(it[0]-'0')
	}
	return w, nil
}

// listItems splits "[a,b,c]" or a bare "a" into its items.
func listItems(tok string) ([]string, error) {
	if strings.HasPrefix(tok, "[") || strings.HasSuffix(tok, "]") {
		if len(tok) < 2 || !strings.HasPrefix(tok, "[") || !strings.HasSuffix(tok, "]") {
			return nil, fmt.Errorf("%w: unbalanced brackets in %q", ErrSyntax, tok)
		}
		items := strings.Split(tok[1:len(tok)-1], ",")
		for _, it := range items {
			if it == "" {
				return nil, fmt.Errorf("%w: empty item in %q", ErrSyntax, tok)
			}
		}
		return items, nil
	}
	if !isDigits(tok) {
		return nil, fmt.Errorf("%w: %q", ErrSyntax, tok)
	}
	return []string{tok}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
