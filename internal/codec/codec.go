// Package codec serializes lifetime records to the flat text blob kept by the
// durable store.
//
// Records are separated by ';' and fields by '|'. The current record shape is
//
//	packId|shotIndex|bestSuccesses|attemptsAtBest|totalBoostAtBest|totalSuccessfulBoostAtBest|minBoost
//
// Older blobs carry a six-field shape without attemptsAtBest; those records
// decode with attemptsAtBest set to model.DefaultMaxAttempts.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/verte-zerg/ctrainer/internal/model"
)

const (
	recordSep = ";"
	fieldSep  = "|"

	currentFields = 7
	legacyFields  = 6
)

// ErrMalformed is returned when a record holds a field that does not parse.
var ErrMalformed = errors.New("malformed lifetime record")

// Encode writes every record of the store in the current shape, ordered by
// pack id and shot index. The blob has no per-pack header, so a pack whose
// table is empty writes nothing and is absent after Decode.
func Encode(store model.PersistentStore) string {
	packIDs := make([]string, 0, len(store))
	for packID := range store {
		packIDs = append(packIDs, packID)
	}
	sort.Strings(packIDs)

	records := make([]string, 0, len(store))
	for _, packID := range packIDs {
		table := store[packID]
		indexes := make([]int, 0, len(table))
		for idx := range table {
			indexes = append(indexes, idx)
		}
		sort.Ints(indexes)
		for _, idx := range indexes {
			records = append(records, encodeRecord(packID, idx, table[idx]))
		}
	}
	return strings.Join(records, recordSep)
}

func encodeRecord(packID string, idx int, lt model.Lifetime) string {
	fields := []string{
		packID,
		strconv.Itoa(idx),
		strconv.Itoa(lt.BestSuccesses),
		strconv.Itoa(lt.AttemptsAtBest),
		formatFloat(lt.TotalBoostAtBest),
		formatFloat(lt.TotalSuccessfulBoostAtBest),
		formatFloat(lt.MinBoost),
	}
	return strings.Join(fields, fieldSep)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Decode parses a blob produced by Encode or by an older writer. Records with
// an unknown field count are skipped. Any numeric field that fails to parse
// fails the whole call so callers never merge a partially decoded store.
func Decode(blob string) (model.PersistentStore, error) {
	store := model.PersistentStore{}
	if strings.TrimSpace(blob) == "" {
		return store, nil
	}
	blob = strings.TrimRight(blob, "\r\n")
	for i, record := range strings.Split(blob, recordSep) {
		fields := strings.Split(record, fieldSep)
		if len(fields) != currentFields && len(fields) != legacyFields {
			continue
		}
		packID := fields[0]
		idx, lt, err := decodeFields(fields)
		if err != nil {
			return model.PersistentStore{}, fmt.Errorf("record %d (%q): %w", i, record, err)
		}
		table, ok := store[packID]
		if !ok {
			table = model.PackTable{}
			store[packID] = table
		}
		table[idx] = lt
	}
	return store, nil
}

func decodeFields(fields []string) (int, model.Lifetime, error) {
	var lt model.Lifetime
	idx, err := parseInt(fields[1], "shot index")
	if err != nil {
		return 0, lt, err
	}
	if lt.BestSuccesses, err = parseInt(fields[2], "best successes"); err != nil {
		return 0, lt, err
	}

	boostFields := fields[3:]
	if len(fields) == currentFields {
		if lt.AttemptsAtBest, err = parseInt(fields[3], "attempts at best"); err != nil {
			return 0, lt, err
		}
		boostFields = fields[4:]
	} else {
		lt.AttemptsAtBest = model.DefaultMaxAttempts
	}

	if lt.TotalBoostAtBest, err = parseFloat(boostFields[0], "total boost at best"); err != nil {
		return 0, lt, err
	}
	if lt.TotalSuccessfulBoostAtBest, err = parseFloat(boostFields[1], "total successful boost at best"); err != nil {
		return 0, lt, err
	}
	if lt.MinBoost, err = parseFloat(boostFields[2], "min boost"); err != nil {
		return 0, lt, err
	}
	return idx, lt, nil
}

func parseInt(s, name string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return v, nil
}

// parseFloat accepts text written at either float32 or float64 precision.
func parseFloat(s, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return v, nil
}
