// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"fmt"
	"reflect"
	"sort"
)

// TableDef describes one table of a module.
type TableDef struct {
	Name    string
	RowType AlgebraicType
	// PrimaryKey names the row field that uniquely identifies a row. Empty
	// when the table has no primary key.
	PrimaryKey string
}

// Lifecycle marks reducers the host invokes on connection events. They are
// never called by clients.
type Lifecycle int

const (
	NotLifecycle Lifecycle = iota
	OnConnect
	OnDisconnect
)

func (l Lifecycle) String() string {
	switch l {
	case OnConnect:
		return "on_connect"
	case OnDisconnect:
		return "on_disconnect"
	default:
		return ""
	}
}

// ReducerDef describes one reducer and its argument list.
type ReducerDef struct {
	Name      string
	ArgsType  AlgebraicType
	Lifecycle Lifecycle
}

// Registry holds the table and reducer descriptors of one module. It is
// populated during setup and read-only afterwards; concurrent reads are
// safe once registration is complete.
type Registry struct {
	module   string
	tables   map[string]*TableDef
	reducers map[string]*ReducerDef
}

// NewRegistry creates an empty registry for the named module.
func NewRegistry(module string) *Registry {
	return &Registry{
		module:   module,
		tables:   make(map[string]*TableDef),
		reducers: make(map[string]*ReducerDef),
	}
}

// Module returns the module name.
func (r *Registry) Module() string { return r.module }

// AddTable registers a table.
func (r *Registry) AddTable(def TableDef) error {
	if def.Name == "" {
		return newError(InvalidSchema, "table name must not be empty")
	}
	if _, dup := r.tables[def.Name]; dup {
		return newError(InvalidSchema, "table %q registered twice", def.Name)
	}
	if def.RowType.Kind() != KindProduct {
		return newError(InvalidSchema, "table %q row type must be a product, got %s", def.Name, def.RowType.Kind())
	}
	if def.PrimaryKey != "" {
		if _, ok := def.RowType.IndexOf(def.PrimaryKey); !ok {
			return newError(InvalidSchema, "table %q primary key %q is not a row field", def.Name, def.PrimaryKey)
		}
	}
	r.tables[def.Name] = &def
	return nil
}

// AddReducer registers a reducer.
func (r *Registry) AddReducer(def ReducerDef) error {
	if def.Name == "" {
		return newError(InvalidSchema, "reducer name must not be empty")
	}
	if _, dup := r.reducers[def.Name]; dup {
		return newError(InvalidSchema, "reducer %q registered twice", def.Name)
	}
	if def.ArgsType.Kind() != KindProduct {
		return newError(InvalidSchema, "reducer %q argument type must be a product, got %s", def.Name, def.ArgsType.Kind())
	}
	r.reducers[def.Name] = &def
	return nil
}

// RegisterTable registers a table whose row type is derived from Row.
// It panics if the row type or the registration is invalid.
func RegisterTable[Row any](r *Registry, name, primaryKey string) {
	var row Row
	t, err := TypeOfReflect(reflect.TypeFor[Row]())
	if err != nil {
		panic(fmt.Sprintf("sats: registering table %q: invalid row type %T: %v", name, row, err))
	}
	if err := r.AddTable(TableDef{Name: name, RowType: t, PrimaryKey: primaryKey}); err != nil {
		panic(fmt.Sprintf("sats: registering table %q: %v", name, err))
	}
}

// RegisterReducer registers a reducer whose argument list is derived from
// Args. It panics if the argument type or the registration is invalid.
func RegisterReducer[Args any](r *Registry, name string, lifecycle Lifecycle) {
	var args Args
	t, err := TypeOfReflect(reflect.TypeFor[Args]())
	if err != nil {
		panic(fmt.Sprintf("sats: registering reducer %q: invalid args type %T: %v", name, args, err))
	}
	if err := r.AddReducer(ReducerDef{Name: name, ArgsType: t, Lifecycle: lifecycle}); err != nil {
		panic(fmt.Sprintf("sats: registering reducer %q: %v", name, err))
	}
}

// Table looks up a table by name.
func (r *Registry) Table(name string) (TableDef, error) {
	def, ok := r.tables[name]
	if !ok {
		return TableDef{}, fmt.Errorf("%w %q (available: %v)", ErrUnknownTable, name, r.tableNames())
	}
	return *def, nil
}

// Reducer looks up a reducer by name.
func (r *Registry) Reducer(name string) (ReducerDef, error) {
	def, ok := r.reducers[name]
	if !ok {
		return ReducerDef{}, fmt.Errorf("%w %q (available: %v)", ErrUnknownReducer, name, r.reducerNames())
	}
	return *def, nil
}

// Tables returns every table sorted by name.
func (r *Registry) Tables() []TableDef {
	out := make([]TableDef, 0, len(r.tables))
	for _, name := range r.tableNames() {
		out = append(out, *r.tables[name])
	}
	return out
}

// Reducers returns every reducer sorted by name.
func (r *Registry) Reducers() []ReducerDef {
	out := make([]ReducerDef, 0, len(r.reducers))
	for _, name := range r.reducerNames() {
		out = append(out, *r.reducers[name])
	}
	return out
}

func (r *Registry) tableNames() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) reducerNames() []string {
	names := make([]string, 0, len(r.reducers))
	for name := range r.reducers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EncodeReducerArgs encodes args against the named reducer's argument list.
func (r *Registry) EncodeReducerArgs(name string, args any) ([]byte, error) {
	def, err := r.Reducer(name)
	if err != nil {
		return nil, err
	}
	data, err := Encode(def.ArgsType, args)
	if err != nil {
		return nil, fmt.Errorf("reducer %s args: %w", name, err)
	}
	return data, nil
}

// DecodeReducerArgs decodes the named reducer's argument buffer.
func (r *Registry) DecodeReducerArgs(name string, data []byte) (ProductValue, error) {
	def, err := r.Reducer(name)
	if err != nil {
		return nil, err
	}
	v, err := Decode(def.ArgsType, data)
	if err != nil {
		return nil, fmt.Errorf("reducer %s args: %w", name, err)
	}
	return v.(ProductValue), nil
}

// DecodeRow decodes a single row of the named table.
func (r *Registry) DecodeRow(table string, data []byte) (ProductValue, error) {
	def, err := r.Table(table)
	if err != nil {
		return nil, err
	}
	v, err := Decode(def.RowType, data)
	if err != nil {
		return nil, fmt.Errorf("table %s row: %w", table, err)
	}
	return v.(ProductValue), nil
}

// DecodeRows decodes rows of the named table laid out back to back.
func (r *Registry) DecodeRows(table string, data []byte) ([]ProductValue, error) {
	def, err := r.Table(table)
	if err != nil {
		return nil, err
	}
	rd := NewReader(data)
	var rows []ProductValue
	for rd.Remaining() > 0 {
		start := rd.Offset()
		v, err := Deserialize(rd, def.RowType)
		if err != nil {
			return nil, fmt.Errorf("table %s row %d: %w", table, len(rows), err)
		}
		if rd.Offset() == start {
			return nil, fmt.Errorf("table %s row %d: %w", table, len(rows),
				newError(InvalidLength, "zero-width row leaves %d bytes undecoded", rd.Remaining()))
		}
		rows = append(rows, v.(ProductValue))
	}
	return rows, nil
}

// PrimaryKey returns the primary key value of a row of the named table. The
// row may be a decoded ProductValue or a bound Go struct.
func (r *Registry) PrimaryKey(table string, row any) (any, error) {
	def, err := r.Table(table)
	if err != nil {
		return nil, err
	}
	if def.PrimaryKey == "" {
		return nil, fmt.Errorf("table %s has no primary key", table)
	}
	if pv, ok := row.(ProductValue); ok {
		v, ok := pv.Get(def.PrimaryKey)
		if !ok {
			return nil, newError(TypeMismatch, "row has no field %q", def.PrimaryKey)
		}
		return v, nil
	}
	rv := indirect(reflect.ValueOf(row))
	if rv.Kind() != reflect.Struct {
		return nil, newError(TypeMismatch, "expected row of %s, got %s", table, describeValue(row))
	}
	idx, ok := cachedStructFields(rv.Type()).lookup(def.PrimaryKey, -1)
	if !ok {
		return nil, newError(TypeMismatch, "%s has no field %q", rv.Type(), def.PrimaryKey)
	}
	return rv.FieldByIndex(idx).Interface(), nil
}
