// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// satsdump decodes binary payloads of the chat module and prints them as
// JSON. It reads a hex string or a file, optionally strips a compression
// envelope, and can write the decoded rows as an Arrow IPC stream.
package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spf13/pflag"

	"github.com/Query-farm/sats-go/chat"
	"github.com/Query-farm/sats-go/sats"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	table         string
	reducer       string
	clientMessage bool
	describe      bool
	hexInput      string
	file          string
	compressed    bool
	arrowOut      string
	zstdIPC       bool
	verbose       bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("satsdump", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.table, "table", "", "decode rows of this table")
	flagSet.StringVar(&opts.reducer, "reducer", "", "decode arguments of this reducer")
	flagSet.BoolVar(&opts.clientMessage, "client-message", false, "decode a client call frame")
	flagSet.BoolVar(&opts.describe, "describe", false, "print the module's tables and reducers")
	flagSet.StringVar(&opts.hexInput, "hex", "", "input as a hex string")
	flagSet.StringVar(&opts.file, "file", "", "read input from this file (- for stdin)")
	flagSet.BoolVar(&opts.compressed, "compressed", false, "input starts with a compression tag byte")
	flagSet.StringVar(&opts.arrowOut, "arrow", "", "write table rows or the describe record as Arrow IPC to this file")
	flagSet.BoolVar(&opts.zstdIPC, "zstd", false, "compress Arrow IPC output with zstd")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log decoding steps")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet, stderr)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet, stderr)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	modes := 0
	for _, set := range []bool{opts.table != "", opts.reducer != "", opts.clientMessage, opts.describe} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return errors.New("exactly one of --table, --reducer, --client-message or --describe is required")
	}

	registry := chat.NewRemoteModule()
	if opts.describe {
		return describe(registry, opts, stdout)
	}

	data, err := readInput(opts, stdin)
	if err != nil {
		return err
	}
	logger.Debug("read input", "bytes", len(data))
	if opts.compressed {
		compression := sats.Compression(0)
		if len(data) > 0 {
			compression = sats.Compression(data[0])
		}
		if data, err = sats.Decompress(data); err != nil {
			return err
		}
		logger.Debug("decompressed input", "compression", compression, "bytes", len(data))
	}

	switch {
	case opts.table != "":
		rows, err := registry.DecodeRows(opts.table, data)
		if err != nil {
			return err
		}
		logger.Debug("decoded rows", "table", opts.table, "rows", len(rows))
		if opts.arrowOut != "" {
			rec, err := registry.TableRecord(memory.DefaultAllocator, opts.table, rows)
			if err != nil {
				return err
			}
			defer rec.Release()
			if err := writeArrow(opts, rec); err != nil {
				return err
			}
		}
		return printJSON(stdout, rows)

	case opts.reducer != "":
		args, err := registry.DecodeReducerArgs(opts.reducer, data)
		if err != nil {
			return err
		}
		return printJSON(stdout, args)

	default:
		msg, err := sats.DecodeClientMessage(data)
		if err != nil {
			return err
		}
		logger.Debug("decoded call frame", "reducer", msg.Reducer, "request_id", msg.RequestID)
		args, err := registry.DecodeReducerArgs(msg.Reducer, msg.Args)
		if err != nil {
			return err
		}
		return printJSON(stdout, map[string]any{
			"reducer":    msg.Reducer,
			"request_id": msg.RequestID,
			"flags":      msg.Flags.String(),
			"args":       args,
		})
	}
}

func readInput(opts options, stdin io.Reader) ([]byte, error) {
	switch {
	case opts.hexInput != "" && opts.file != "":
		return nil, errors.New("--hex and --file are mutually exclusive")
	case opts.hexInput != "":
		clean := strings.NewReplacer(" ", "", "\n", "", "\t", "").Replace(opts.hexInput)
		data, err := hex.DecodeString(clean)
		if err != nil {
			return nil, fmt.Errorf("parsing --hex: %w", err)
		}
		return data, nil
	case opts.file == "-":
		return io.ReadAll(stdin)
	case opts.file != "":
		return os.ReadFile(opts.file)
	default:
		return nil, errors.New("one of --hex or --file is required")
	}
}

type describeEntry struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Type       string `json:"type"`
	PrimaryKey string `json:"primary_key,omitempty"`
	Lifecycle  string `json:"lifecycle,omitempty"`
}

func describe(registry *sats.Registry, opts options, stdout io.Writer) error {
	if opts.arrowOut != "" {
		rec, err := registry.Describe(memory.DefaultAllocator)
		if err != nil {
			return err
		}
		defer rec.Release()
		if err := writeArrow(opts, rec); err != nil {
			return err
		}
	}
	var entries []describeEntry
	for _, t := range registry.Tables() {
		entries = append(entries, describeEntry{Name: t.Name, Kind: sats.DescribeTable, Type: t.RowType.String(), PrimaryKey: t.PrimaryKey})
	}
	for _, r := range registry.Reducers() {
		entries = append(entries, describeEntry{Name: r.Name, Kind: sats.DescribeReducer, Type: r.ArgsType.String(), Lifecycle: r.Lifecycle.String()})
	}
	return printJSON(stdout, map[string]any{"module": registry.Module(), "entries": entries})
}

func writeArrow(opts options, rec arrow.Record) error {
	f, err := os.Create(opts.arrowOut)
	if err != nil {
		return err
	}
	var ipcOpts []ipc.Option
	if opts.zstdIPC {
		ipcOpts = append(ipcOpts, ipc.WithZstd())
	}
	if err := sats.WriteIPC(f, rec, ipcOpts...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHelp(flagSet *pflag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `satsdump decodes chat module payloads and prints them as JSON.

Usage:
  satsdump (--table NAME | --reducer NAME | --client-message | --describe) [--hex HEX | --file PATH] [flags]

Examples:
  # Decode send_message arguments
  satsdump --reducer send_message --hex 020000006869

  # Decode a brotli-compressed buffer of user rows and keep an Arrow copy
  satsdump --table user --file users.bin --compressed --arrow users.arrow

Flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
