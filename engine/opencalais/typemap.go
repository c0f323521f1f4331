package opencalais

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/knakk/rdf"
	"github.com/textgraph/enricher/helper"
)

//go:embed calaisTypeMap.txt
var defaultTypeMap string

var typeMapSeparator = regexp.MustCompile(`\s*=\s*`)

// LoadTypeMap reads a type map rewriting Calais type IRIs to other
// ontologies. Each line holds "source = target"; empty lines and lines
// starting with '#' are ignored. With an empty path the embedded default
// map is used.
func LoadTypeMap(path string) (map[string]rdf.IRI, error) {
	var r io.Reader
	if strings.TrimSpace(path) != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, helper.NewError("open type map file", err)
		}
		defer f.Close()
		r = f
	} else {
		r = strings.NewReader(defaultTypeMap)
	}
	return parseTypeMap(r)
}

func parseTypeMap(r io.Reader) (map[string]rdf.IRI, error) {
	typeMap := map[string]rdf.IRI{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry := typeMapSeparator.Split(line, -1)
		if len(entry) != 2 {
			continue
		}
		target, err := rdf.NewIRI(entry[1])
		if err != nil {
			return nil, helper.NewError("parse type map",
				fmt.Errorf("invalid target IRI on line %d: %w", lineNo, err))
		}
		typeMap[entry[0]] = target
	}
	if err := scanner.Err(); err != nil {
		return nil, helper.NewError("read type map", err)
	}
	return typeMap, nil
}
