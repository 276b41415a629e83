package params

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrParse indicates a malformed line in a parameter file.
var ErrParse = errors.New("params: parse error")

// WriteFile dumps the set as flat "name = value" lines in registration
// order. When onlyChanged is true, parameters at their default are skipped.
func (s *Set) WriteFile(path string, onlyChanged bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("params: create %q: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, p := range s.order {
		if onlyChanged && p.IsDefault() {
			continue
		}
		fmt.Fprintf(w, "%s = %s\n", p.name, p.valueString())
	}

	return w.Flush()
}

// ReadFile loads "name = value" lines, applying each through the typed
// setters so ranges and callbacks stay in force. Blank lines and lines
// starting with '#' are ignored.
func (s *Set) ReadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("params: open %q: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, found := strings.Cut(line, "=")
		if !found {
			return fmt.Errorf("%w: %s:%d: missing '='", ErrParse, path, lineno)
		}
		if err := s.setFromString(strings.TrimSpace(name), strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineno, err)
		}
	}

	return sc.Err()
}

func (p *Param) valueString() string {
	switch p.typ {
	case Bool:
		return strconv.FormatBool(p.boolVal)
	case Int:
		return strconv.Itoa(p.intVal)
	case Long:
		return strconv.FormatInt(p.longVal, 10)
	case Real:
		return strconv.FormatFloat(p.realVal, 'g', -1, 64)
	case Char:
		return string(p.charVal)
	case String:
		return strconv.Quote(p.stringVal)
	default:
		return ""
	}
}

func (s *Set) setFromString(name, value string) error {
	p, err := s.Lookup(name)
	if err != nil {
		return err
	}
	switch p.typ {
	case Bool:
		v, perr := strconv.ParseBool(value)
		if perr != nil {
			return fmt.Errorf("%w: %q: %q is not a bool", ErrParse, name, value)
		}

		return s.SetBool(name, v)
	case Int:
		v, perr := strconv.Atoi(value)
		if perr != nil {
			return fmt.Errorf("%w: %q: %q is not an int", ErrParse, name, value)
		}

		return s.SetInt(name, v)
	case Long:
		v, perr := strconv.ParseInt(value, 10, 64)
		if perr != nil {
			return fmt.Errorf("%w: %q: %q is not a long", ErrParse, name, value)
		}

		return s.SetLong(name, v)
	case Real:
		v, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return fmt.Errorf("%w: %q: %q is not a real", ErrParse, name, value)
		}

		return s.SetReal(name, v)
	case Char:
		if len(value) != 1 {
			return fmt.Errorf("%w: %q: %q is not a single character", ErrParse, name, value)
		}

		return s.SetChar(name, value[0])
	case String:
		if unq, uerr := strconv.Unquote(value); uerr == nil {
			value = unq
		}

		return s.SetString(name, value)
	default:
		return fmt.Errorf("%w: %q has invalid type", ErrParse, name)
	}
}
