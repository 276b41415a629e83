package params

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Sentinel errors for parameter operations.
var (
	// ErrUnknown indicates an operation referenced an unregistered parameter.
	ErrUnknown = errors.New("params: unknown parameter")

	// ErrDuplicate indicates a second registration under an existing name.
	ErrDuplicate = errors.New("params: duplicate parameter")

	// ErrWrongType indicates a typed accessor did not match the parameter type.
	ErrWrongType = errors.New("params: wrong parameter type")

	// ErrOutOfRange indicates a value outside the declared range.
	ErrOutOfRange = errors.New("params: value out of range")

	// ErrBadName indicates an empty or malformed parameter name.
	ErrBadName = errors.New("params: bad parameter name")
)

// Type enumerates the storable parameter types.
type Type uint8

const (
	Bool Type = iota
	Int
	Long
	Real
	Char
	String
)

// String returns the lowercase type name.
func (t Type) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Long:
		return "long"
	case Real:
		return "real"
	case Char:
		return "char"
	case String:
		return "string"
	default:
		return "invalid"
	}
}

// ChangeFn runs after a parameter's stored value has been updated.
// Returning an error propagates to the caller of the setter; the new value
// stays in the store regardless (the callback observes, it does not veto).
type ChangeFn func(set *Set, p *Param) error

// Param is one registered parameter. Values are held in the field matching
// the type; the others stay zero.
type Param struct {
	name     string
	desc     string
	typ      Type
	advanced bool
	onChange ChangeFn

	boolVal    bool
	intVal     int
	longVal    int64
	realVal    float64
	charVal    byte
	stringVal  string
	boolDef    bool
	intDef     int
	longDef    int64
	realDef    float64
	charDef    byte
	stringDef  string
	intMin     int
	intMax     int
	longMin    int64
	longMax    int64
	realMin    float64
	realMax    float64
	charAllow  string // empty = any printable
	fixedByRun bool
}

// Name returns the parameter's dot-path name.
func (p *Param) Name() string { return p.name }

// Desc returns the one-line description.
func (p *Param) Desc() string { return p.desc }

// Type returns the parameter type.
func (p *Param) Type() Type { return p.typ }

// Advanced reports whether the parameter is tagged for expert use.
func (p *Param) Advanced() bool { return p.advanced }

// Set is an ordered collection of parameters indexed by name.
type Set struct {
	byName map[string]*Param
	order  []*Param
}

// NewSet returns an empty parameter set.
func NewSet() *Set {
	return &Set{byName: make(map[string]*Param)}
}

// NParams returns the number of registered parameters.
func (s *Set) NParams() int { return len(s.order) }

// Walk calls fn for every parameter in registration order.
func (s *Set) Walk(fn func(*Param)) {
	for _, p := range s.order {
		fn(p)
	}
}

// Lookup returns the parameter registered under name, or ErrUnknown.
func (s *Set) Lookup(name string) (*Param, error) {
	p, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}

	return p, nil
}

func (s *Set) register(p *Param) error {
	if strings.TrimSpace(p.name) == "" {
		return ErrBadName
	}
	if _, ok := s.byName[p.name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, p.name)
	}
	s.byName[p.name] = p
	s.order = append(s.order, p)

	return nil
}

// AddBool registers a bool parameter.
func (s *Set) AddBool(name, desc string, def bool, advanced bool, onChange ChangeFn) error {
	return s.register(&Param{
		name: name, desc: desc, typ: Bool, advanced: advanced, onChange: onChange,
		boolVal: def, boolDef: def,
	})
}

// AddInt registers an int parameter with inclusive range [min,max].
func (s *Set) AddInt(name, desc string, def, min, max int, advanced bool, onChange ChangeFn) error {
	if def < min || def > max {
		return fmt.Errorf("%w: %q default %d not in [%d,%d]", ErrOutOfRange, name, def, min, max)
	}

	return s.register(&Param{
		name: name, desc: desc, typ: Int, advanced: advanced, onChange: onChange,
		intVal: def, intDef: def, intMin: min, intMax: max,
	})
}

// AddLong registers an int64 parameter with inclusive range [min,max].
func (s *Set) AddLong(name, desc string, def, min, max int64, advanced bool, onChange ChangeFn) error {
	if def < min || def > max {
		return fmt.Errorf("%w: %q default %d not in [%d,%d]", ErrOutOfRange, name, def, min, max)
	}

	return s.register(&Param{
		name: name, desc: desc, typ: Long, advanced: advanced, onChange: onChange,
		longVal: def, longDef: def, longMin: min, longMax: max,
	})
}

// AddReal registers a float64 parameter with inclusive range [min,max].
func (s *Set) AddReal(name, desc string, def, min, max float64, advanced bool, onChange ChangeFn) error {
	if def < min || def > max || math.IsNaN(def) {
		return fmt.Errorf("%w: %q default %g not in [%g,%g]", ErrOutOfRange, name, def, min, max)
	}

	return s.register(&Param{
		name: name, desc: desc, typ: Real, advanced: advanced, onChange: onChange,
		realVal: def, realDef: def, realMin: min, realMax: max,
	})
}

// AddChar registers a single-character parameter; allowed lists the legal
// characters ("" = any printable ASCII).
func (s *Set) AddChar(name, desc string, def byte, allowed string, advanced bool, onChange ChangeFn) error {
	if allowed != "" && !strings.ContainsRune(allowed, rune(def)) {
		return fmt.Errorf("%w: %q default %q not in %q", ErrOutOfRange, name, def, allowed)
	}

	return s.register(&Param{
		name: name, desc: desc, typ: Char, advanced: advanced, onChange: onChange,
		charVal: def, charDef: def, charAllow: allowed,
	})
}

// AddString registers a string parameter.
func (s *Set) AddString(name, desc, def string, advanced bool, onChange ChangeFn) error {
	return s.register(&Param{
		name: name, desc: desc, typ: String, advanced: advanced, onChange: onChange,
		stringVal: def, stringDef: def,
	})
}

func (s *Set) typed(name string, typ Type) (*Param, error) {
	p, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}
	if p.typ != typ {
		return nil, fmt.Errorf("%w: %q is %s, not %s", ErrWrongType, name, p.typ, typ)
	}

	return p, nil
}

// GetBool returns the value of a bool parameter.
func (s *Set) GetBool(name string) (bool, error) {
	p, err := s.typed(name, Bool)
	if err != nil {
		return false, err
	}

	return p.boolVal, nil
}

// GetInt returns the value of an int parameter.
func (s *Set) GetInt(name string) (int, error) {
	p, err := s.typed(name, Int)
	if err != nil {
		return 0, err
	}

	return p.intVal, nil
}

// GetLong returns the value of a long parameter.
func (s *Set) GetLong(name string) (int64, error) {
	p, err := s.typed(name, Long)
	if err != nil {
		return 0, err
	}

	return p.longVal, nil
}

// GetReal returns the value of a real parameter.
func (s *Set) GetReal(name string) (float64, error) {
	p, err := s.typed(name, Real)
	if err != nil {
		return 0, err
	}

	return p.realVal, nil
}

// GetChar returns the value of a char parameter.
func (s *Set) GetChar(name string) (byte, error) {
	p, err := s.typed(name, Char)
	if err != nil {
		return 0, err
	}

	return p.charVal, nil
}

// GetString returns the value of a string parameter.
func (s *Set) GetString(name string) (string, error) {
	p, err := s.typed(name, String)
	if err != nil {
		return "", err
	}

	return p.stringVal, nil
}

func (s *Set) fireChange(p *Param) error {
	if p.onChange == nil {
		return nil
	}

	return p.onChange(s, p)
}

// SetBool updates a bool parameter and fires its change callback.
func (s *Set) SetBool(name string, v bool) error {
	p, err := s.typed(name, Bool)
	if err != nil {
		return err
	}
	p.boolVal = v

	return s.fireChange(p)
}

// SetInt updates an int parameter, range-checked.
func (s *Set) SetInt(name string, v int) error {
	p, err := s.typed(name, Int)
	if err != nil {
		return err
	}
	if v < p.intMin || v > p.intMax {
		return fmt.Errorf("%w: %q = %d not in [%d,%d]", ErrOutOfRange, name, v, p.intMin, p.intMax)
	}
	p.intVal = v

	return s.fireChange(p)
}

// SetLong updates a long parameter, range-checked.
func (s *Set) SetLong(name string, v int64) error {
	p, err := s.typed(name, Long)
	if err != nil {
		return err
	}
	if v < p.longMin || v > p.longMax {
		return fmt.Errorf("%w: %q = %d not in [%d,%d]", ErrOutOfRange, name, v, p.longMin, p.longMax)
	}
	p.longVal = v

	return s.fireChange(p)
}

// SetReal updates a real parameter, range-checked.
func (s *Set) SetReal(name string, v float64) error {
	p, err := s.typed(name, Real)
	if err != nil {
		return err
	}
	if v < p.realMin || v > p.realMax || math.IsNaN(v) {
		return fmt.Errorf("%w: %q = %g not in [%g,%g]", ErrOutOfRange, name, v, p.realMin, p.realMax)
	}
	p.realVal = v

	return s.fireChange(p)
}

// SetChar updates a char parameter, checked against its allowed set.
func (s *Set) SetChar(name string, v byte) error {
	p, err := s.typed(name, Char)
	if err != nil {
		return err
	}
	if p.charAllow != "" && !strings.ContainsRune(p.charAllow, rune(v)) {
		return fmt.Errorf("%w: %q = %q not in %q", ErrOutOfRange, name, v, p.charAllow)
	}
	p.charVal = v

	return s.fireChange(p)
}

// SetString updates a string parameter.
func (s *Set) SetString(name string, v string) error {
	p, err := s.typed(name, String)
	if err != nil {
		return err
	}
	p.stringVal = v

	return s.fireChange(p)
}

// Reset restores one parameter to its default and fires its callback.
func (s *Set) Reset(name string) error {
	p, err := s.Lookup(name)
	if err != nil {
		return err
	}
	p.boolVal, p.intVal, p.longVal = p.boolDef, p.intDef, p.longDef
	p.realVal, p.charVal, p.stringVal = p.realDef, p.charDef, p.stringDef

	return s.fireChange(p)
}

// ResetAll restores every parameter to its default in registration order.
func (s *Set) ResetAll() error {
	for _, p := range s.order {
		if err := s.Reset(p.name); err != nil {
			return err
		}
	}

	return nil
}

// IsDefault reports whether the parameter currently holds its default value.
func (p *Param) IsDefault() bool {
	switch p.typ {
	case Bool:
		return p.boolVal == p.boolDef
	case Int:
		return p.intVal == p.intDef
	case Long:
		return p.longVal == p.longDef
	case Real:
		return p.realVal == p.realDef
	case Char:
		return p.charVal == p.charDef
	case String:
		return p.stringVal == p.stringDef
	default:
		return false
	}
}
