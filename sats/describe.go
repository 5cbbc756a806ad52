// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Describe entry kinds.
const (
	DescribeTable   = "table"
	DescribeReducer = "reducer"
)

// describeFields is the column layout of the Describe record.
var describeFields = []arrow.Field{
	{Name: "name", Type: arrow.BinaryTypes.String},
	{Name: "kind", Type: arrow.BinaryTypes.String},
	{Name: "type", Type: arrow.BinaryTypes.String},
	{Name: "primary_key", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "lifecycle", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "type_descriptor", Type: arrow.BinaryTypes.Binary},
	{Name: "arrow_schema_ipc", Type: arrow.BinaryTypes.Binary},
}

// serializeSchema serializes an Arrow schema to IPC format bytes.
func serializeSchema(schema *arrow.Schema) ([]byte, error) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Describe builds a record with one row per table followed by one row per
// reducer, each sorted by name. The module name is stored in the schema
// metadata. The caller must release the record.
func (r *Registry) Describe(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	meta := arrow.NewMetadata(
		[]string{MetaModule, MetaFormatVersion},
		[]string{r.module, FormatVersion},
	)
	schema := arrow.NewSchema(describeFields, &meta)

	nameBuilder := array.NewStringBuilder(mem)
	defer nameBuilder.Release()

	kindBuilder := array.NewStringBuilder(mem)
	defer kindBuilder.Release()

	typeBuilder := array.NewStringBuilder(mem)
	defer typeBuilder.Release()

	pkBuilder := array.NewStringBuilder(mem)
	defer pkBuilder.Release()

	lifecycleBuilder := array.NewStringBuilder(mem)
	defer lifecycleBuilder.Release()

	descriptorBuilder := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
	defer descriptorBuilder.Release()

	schemaBuilder := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
	defer schemaBuilder.Release()

	appendEntry := func(name, kind string, t AlgebraicType) error {
		descriptor, err := EncodeType(t)
		if err != nil {
			return fmt.Errorf("%s %s: %w", kind, name, err)
		}
		arrowSchema, err := ArrowSchema(t, nil)
		if err != nil {
			return fmt.Errorf("%s %s: %w", kind, name, err)
		}
		schemaIPC, err := serializeSchema(arrowSchema)
		if err != nil {
			return fmt.Errorf("%s %s: serializing schema: %w", kind, name, err)
		}
		nameBuilder.Append(name)
		kindBuilder.Append(kind)
		typeBuilder.Append(t.String())
		descriptorBuilder.Append(descriptor)
		schemaBuilder.Append(schemaIPC)
		return nil
	}

	for _, def := range r.Tables() {
		if err := appendEntry(def.Name, DescribeTable, def.RowType); err != nil {
			return nil, err
		}
		if def.PrimaryKey != "" {
			pkBuilder.Append(def.PrimaryKey)
		} else {
			pkBuilder.AppendNull()
		}
		lifecycleBuilder.AppendNull()
	}

	for _, def := range r.Reducers() {
		if err := appendEntry(def.Name, DescribeReducer, def.ArgsType); err != nil {
			return nil, err
		}
		pkBuilder.AppendNull()
		if def.Lifecycle != NotLifecycle {
			lifecycleBuilder.Append(def.Lifecycle.String())
		} else {
			lifecycleBuilder.AppendNull()
		}
	}

	cols := []arrow.Array{
		nameBuilder.NewArray(),
		kindBuilder.NewArray(),
		typeBuilder.NewArray(),
		pkBuilder.NewArray(),
		lifecycleBuilder.NewArray(),
		descriptorBuilder.NewArray(),
		schemaBuilder.NewArray(),
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	return array.NewRecord(schema, cols, int64(len(r.tables)+len(r.reducers))), nil
}
