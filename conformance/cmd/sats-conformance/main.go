// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// sats-conformance checks this implementation against the known-answer
// vectors, or prints the vectors as JSON for other implementations.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/Query-farm/sats-go/conformance"
)

type vectorJSON struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Hex   string `json:"hex"`
	Error string `json:"error,omitempty"`
}

func main() {
	var dump bool
	flagSet := pflag.NewFlagSet("sats-conformance", pflag.ExitOnError)
	flagSet.BoolVar(&dump, "json", false, "print the vectors as JSON instead of checking them")
	flagSet.Parse(os.Args[1:])

	if dump {
		var out []vectorJSON
		for _, v := range conformance.Vectors() {
			out = append(out, vectorJSON{Name: v.Name, Type: v.Type.String(), Hex: v.Hex})
		}
		for _, f := range conformance.Failures() {
			out = append(out, vectorJSON{Name: f.Name, Type: f.Type.String(), Hex: f.Hex, Error: f.Kind.String()})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	failed := 0
	for _, v := range conformance.Vectors() {
		if err := conformance.Check(v); err != nil {
			fmt.Printf("FAIL %v\n", err)
			failed++
			continue
		}
		fmt.Printf("ok   %s\n", v.Name)
	}
	for _, f := range conformance.Failures() {
		if err := conformance.CheckFailure(f); err != nil {
			fmt.Printf("FAIL %v\n", err)
			failed++
			continue
		}
		fmt.Printf("ok   %s\n", f.Name)
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d vectors failed\n", failed)
		os.Exit(1)
	}
}
