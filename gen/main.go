// Copyright 2024 The tiffmeta Authors
// SPDX-License-Identifier: MIT

// Command gen rewrites the tag name table of the embedded registry from tags.csv.
//
//go:generate go run main.go
package main

import (
	"encoding/csv"
	"encoding/json"
	"log"
	"os"
	"strconv"
)

const (
	csvFilename      = "tags.csv"
	registryFilename = "../registry.json"
)

func main() {
	tags, err := readTags(csvFilename)
	if err != nil {
		log.Fatal(err)
	}

	b, err := os.ReadFile(registryFilename)
	if err != nil {
		log.Fatal(err)
	}
	var reg map[string]json.RawMessage
	if err := json.Unmarshal(b, &reg); err != nil {
		log.Fatal(err)
	}

	if reg["tags"], err = json.Marshal(tags); err != nil {
		log.Fatal(err)
	}

	out, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(registryFilename, append(out, '\n'), 0o644); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %d tag names to %s", len(tags), registryFilename)
}

func readTags(filename string) (map[uint16]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	tags := make(map[uint16]string, len(records))
	for i, rec := range records {
		if i == 0 {
			// Header.
			continue
		}
		code, err := strconv.ParseUint(rec[0], 10, 16)
		if err != nil {
			return nil, err
		}
		tags[uint16(code)] = rec[1]
	}
	return tags, nil
}
