// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/reactivearray/pkg/reactivearray"
)

// Script is a YAML operation script run by the play command.
//
//	name: tasks
//	insert_policy: shift
//	seed: [write, test]
//	ops:
//	  - {kind: append, value: ship}
//	  - {kind: insert, value: plan, index: 0}
//	  - {kind: remove, index: 1}
//	  - {kind: undo}
type Script struct {
	Name         string     `yaml:"name"`
	InsertPolicy string     `yaml:"insert_policy"`
	Seed         []string   `yaml:"seed"`
	Ops          []ScriptOp `yaml:"ops"`
}

// ScriptOp is one step of a Script. Kind is an operation kind or "undo",
// which reverts the newest step not yet undone. Repeated undos walk further
// back; they never undo an undo.
type ScriptOp struct {
	Kind  string `yaml:"kind"`
	Value string `yaml:"value"`
	Index *int   `yaml:"index"`
}

const undoKind = "undo"

var errNothingToUndo = errors.New("nothing to undo")

func (s ScriptOp) operation() (op reactivearray.Operation[string], err error) {
	kind, err := reactivearray.ParseKind(s.Kind)
	if err != nil {
		return op, err
	}
	if kind != reactivearray.KindAppend && s.Index == nil {
		return op, fmt.Errorf("%w: %s requires an index", reactivearray.ErrMalformedOperation, kind)
	}

	defer reactivearray.RecoverIndexError(&err)
	switch kind {
	case reactivearray.KindAppend:
		return reactivearray.Append(s.Value), nil
	case reactivearray.KindInsert:
		return reactivearray.Insert(s.Value, *s.Index), nil
	case reactivearray.KindUpdate:
		return reactivearray.Update(s.Value, *s.Index), nil
	default:
		return reactivearray.Remove[string](*s.Index), nil
	}
}

// playEvent is one JSON line of play output.
type playEvent struct {
	Array string                           `json:"array"`
	Op    *reactivearray.Operation[string] `json:"op,omitempty"`

	Elements []string `json:"elements,omitempty"`
	Mirror   []string `json:"mirror,omitempty"`
}

func newPlayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "play <script.yaml>",
		Short: "Run an operation script against an array and its upper-cased mirror",
		Long: `play applies the operations of a YAML script to an array of strings while an
upper-cased mirror follows along. Every emitted operation is printed as a JSON
line, followed by the final contents of both arrays.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.consoleLogger(cmd, "play")
			if err != nil {
				return err
			}
			defer logger.Close()

			script, err := loadScript(args[0])
			if err != nil {
				return err
			}
			return runPlay(cmd.OutOrStdout(), script, logger.Slog())
		},
	}
}

func loadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return Script{}, fmt.Errorf("parse script %s: %w", path, err)
	}
	if script.Name == "" {
		base := filepath.Base(path)
		script.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return script, nil
}

// runPlay applies script and writes the JSON line report to out. It stops
// at the first step that fails.
func runPlay(out io.Writer, script Script, logger *slog.Logger) error {
	policy, err := reactivearray.ParseInsertPolicy(script.InsertPolicy)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	var writeErr error
	printer := func(name string) func(reactivearray.Operation[string]) {
		return func(op reactivearray.Operation[string]) {
			if writeErr == nil {
				writeErr = enc.Encode(playEvent{Array: name, Op: &op})
			}
		}
	}

	src := reactivearray.FromSlice(script.Seed,
		reactivearray.WithName(script.Name),
		reactivearray.WithInsertPolicy(policy),
		reactivearray.WithLogger(logger),
	)
	src.Signal().Observe(printer(src.Name()))
	journal := reactivearray.NewJournal[string](len(script.Ops) + 1)
	journal.Attach(src.Signal())

	upper := reactivearray.Mirror(src, strings.ToUpper,
		reactivearray.WithName(script.Name+".upper"),
		reactivearray.WithLogger(logger),
	)
	defer upper.Close()
	upper.Signal().Observe(printer(upper.Name()))

	undo := &undoLog{journal: journal}
	for i, step := range script.Ops {
		if err := playStep(src, undo, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Kind, err)
		}
		if writeErr != nil {
			return fmt.Errorf("write output: %w", writeErr)
		}
	}

	logger.Debug("script finished",
		"array", src.Name(),
		"steps", len(script.Ops),
		"journaled", journal.Len(),
	)
	return enc.Encode(playEvent{
		Array:    src.Name(),
		Elements: src.ToSlice(),
		Mirror:   upper.ToSlice(),
	})
}

func playStep(src *reactivearray.Array[string], undo *undoLog, step ScriptOp) (err error) {
	var op reactivearray.Operation[string]
	if step.Kind == undoKind {
		applied, ok := undo.pop()
		if !ok {
			return errNothingToUndo
		}
		// Every later step has been undone, so the current length is the
		// length right after applied.
		if op, err = reactivearray.Inverse(applied, src.Len(), src.InsertPolicy()); err != nil {
			return err
		}
	} else if op, err = step.operation(); err != nil {
		return err
	}

	defer reactivearray.RecoverIndexError(&err)
	src.Apply(op)
	if step.Kind != undoKind {
		undo.push()
	}
	return nil
}

// undoLog is a stack of journal sequence numbers of steps not yet undone.
type undoLog struct {
	journal *reactivearray.Journal[string]
	seqs    []uint64
}

// push records the newest journal entry as undoable.
func (u *undoLog) push() {
	if latest, ok := u.journal.Latest(); ok {
		u.seqs = append(u.seqs, latest.Seq)
	}
}

// pop returns the newest undoable operation still held by the journal.
func (u *undoLog) pop() (reactivearray.Operation[string], bool) {
	for len(u.seqs) > 0 {
		seq := u.seqs[len(u.seqs)-1]
		u.seqs = u.seqs[:len(u.seqs)-1]
		if entries := u.journal.Since(seq - 1); len(entries) > 0 && entries[0].Seq == seq {
			return entries[0].Op, true
		}
	}
	return reactivearray.Operation[string]{}, false
}
