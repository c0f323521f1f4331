package uima

import (
	"encoding/xml"
	"io"
	"strconv"
)

// featureStructure is one annotation element of an XMI document. Type
// is the element's local name, Features holds every attribute besides
// the offsets and the xmi/sofa bookkeeping ones.
type featureStructure struct {
	Type     string
	Begin    int
	End      int
	Features map[string]string
}

// bookkeeping attributes that never carry pipeline output.
var reservedAttrs = map[string]bool{
	"begin": true,
	"end":   true,
	"sofa":  true,
	"id":    true,
}

// parseXMI extracts the feature structures of an XMI document. Any
// element carrying both a begin and an end attribute is treated as an
// annotation structure, everything else (the XMI root, views, sofas)
// is skipped.
func parseXMI(r io.Reader) ([]featureStructure, error) {
	dec := xml.NewDecoder(r)
	var structures []featureStructure

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		elem, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		fs, ok := toStructure(elem)
		if !ok {
			continue
		}
		structures = append(structures, fs)
	}
	return structures, nil
}

func toStructure(elem xml.StartElement) (featureStructure, bool) {
	fs := featureStructure{
		Type:     elem.Name.Local,
		Begin:    -1,
		End:      -1,
		Features: map[string]string{},
	}
	for _, attr := range elem.Attr {
		switch attr.Name.Local {
		case "begin":
			if v, err := strconv.Atoi(attr.Value); err == nil {
				fs.Begin = v
			}
		case "end":
			if v, err := strconv.Atoi(attr.Value); err == nil {
				fs.End = v
			}
		default:
			if !reservedAttrs[attr.Name.Local] && attr.Name.Space != "http://www.omg.org/XMI" {
				fs.Features[attr.Name.Local] = attr.Value
			}
		}
	}
	if fs.Begin < 0 || fs.End < 0 {
		return featureStructure{}, false
	}
	return fs, true
}
